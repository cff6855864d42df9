package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_results (
    id           UUID PRIMARY KEY,
    room_code    TEXT        NOT NULL,
    total_rounds INTEGER     NOT NULL,
    winner       TEXT        NOT NULL DEFAULT '',
    leaderboard  JSONB       NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS game_results_finished_at_idx ON game_results (finished_at DESC);
`

// PostgresArchive stores records in the game_results table.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

func NewPostgresArchive(ctx context.Context, connString string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresArchive{pool: pool}, nil
}

// EnsureSchema creates the results table if it does not exist.
func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create game_results: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Record(ctx context.Context, rec GameRecord) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO game_results (id, room_code, total_rounds, winner, leaderboard, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.RoomCode, rec.TotalRounds, rec.Winner, rec.Leaderboard, rec.CreatedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert game result: %w", err)
	}
	log.Debug().Str("room_code", rec.RoomCode).Str("game_id", rec.ID.String()).Msg("game result archived")
	return nil
}

func (a *PostgresArchive) Recent(ctx context.Context, limit int) ([]GameRecord, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT id, room_code, total_rounds, winner, leaderboard, created_at, finished_at
		FROM game_results
		ORDER BY finished_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query game results: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (GameRecord, error) {
		var rec GameRecord
		err := row.Scan(&rec.ID, &rec.RoomCode, &rec.TotalRounds, &rec.Winner, &rec.Leaderboard, &rec.CreatedAt, &rec.FinishedAt)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan game results: %w", err)
	}
	return out, nil
}

func (a *PostgresArchive) Close() {
	a.pool.Close()
}
