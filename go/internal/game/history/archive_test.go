package history

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/pricegame/go/internal/models"
)

func record(code string) GameRecord {
	now := time.Now()
	return NewGameRecord(code, 5, []models.LeaderboardEntry{{Username: "ann", Score: 10}}, now, now)
}

func TestNewGameRecord(t *testing.T) {
	rec := NewGameRecord("ABC123", 3, []models.LeaderboardEntry{
		{Username: "bob", Score: 1500},
		{Username: "ann", Score: 200},
	}, time.Unix(0, 0), time.Unix(60, 0))

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, "bob", rec.Winner)

	empty := NewGameRecord("ABC123", 3, nil, time.Unix(0, 0), time.Unix(60, 0))
	assert.Empty(t, empty.Winner)
}

func TestMemoryArchive_RecentNewestFirst(t *testing.T) {
	a := NewMemoryArchive(3)
	ctx := context.Background()
	for _, code := range []string{"A", "B", "C", "D"} {
		require.NoError(t, a.Record(ctx, record(code)))
	}

	recs, err := a.Recent(ctx, 10)
	require.NoError(t, err)
	codes := make([]string, len(recs))
	for i, r := range recs {
		codes[i] = r.RoomCode
	}
	assert.Equal(t, []string{"D", "C", "B"}, codes)

	recs, err = a.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "D", recs[0].RoomCode)
}

func TestMemoryArchive_Empty(t *testing.T) {
	recs, err := NewMemoryArchive(0).Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
