package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/pricegame/go/internal/models"
)

// GameRecord is the result of one finished game.
type GameRecord struct {
	ID          uuid.UUID                 `json:"id"`
	RoomCode    string                    `json:"room_code"`
	TotalRounds int                       `json:"total_rounds"`
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	Winner      string                    `json:"winner,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	FinishedAt  time.Time                 `json:"finished_at"`
}

// NewGameRecord builds a record from a final leaderboard.
func NewGameRecord(code string, totalRounds int, board []models.LeaderboardEntry, createdAt, finishedAt time.Time) GameRecord {
	rec := GameRecord{
		ID:          uuid.New(),
		RoomCode:    code,
		TotalRounds: totalRounds,
		Leaderboard: board,
		CreatedAt:   createdAt,
		FinishedAt:  finishedAt,
	}
	if len(board) > 0 {
		rec.Winner = board[0].Username
	}
	return rec
}

// Archive stores finished games.
type Archive interface {
	Record(ctx context.Context, rec GameRecord) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]GameRecord, error)
}

const DefaultMemoryCapacity = 100

// MemoryArchive keeps the most recent records in a ring.
type MemoryArchive struct {
	mu       sync.RWMutex
	records  []GameRecord
	next     int
	full     bool
	capacity int
}

func NewMemoryArchive(capacity int) *MemoryArchive {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryArchive{
		records:  make([]GameRecord, capacity),
		capacity: capacity,
	}
}

func (a *MemoryArchive) Record(_ context.Context, rec GameRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records[a.next] = rec
	a.next = (a.next + 1) % a.capacity
	if a.next == 0 {
		a.full = true
	}
	return nil
}

func (a *MemoryArchive) Recent(_ context.Context, limit int) ([]GameRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	size := a.next
	if a.full {
		size = a.capacity
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]GameRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (a.next - i + a.capacity) % a.capacity
		out = append(out, a.records[idx])
	}
	return out, nil
}
