package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/pricegame/go/internal/models"
)

func TestRoom_PlayersKeepJoinOrder(t *testing.T) {
	now := time.Now()
	r := newRoom("CODE01", 5, now)

	r.AddPlayer("h1", "ann")
	r.AddPlayer("h2", "bob")
	r.AddPlayer("h3", "cid")
	assert.True(t, r.EmptySince.IsZero())

	assert.Equal(t, []string{"h1", "h2", "h3"}, r.Handles())
	host, ok := r.Host()
	require.True(t, ok)
	assert.Equal(t, "h1", host.Handle)

	assert.True(t, r.RemovePlayer("h1", now))
	assert.False(t, r.RemovePlayer("h1", now))
	assert.Equal(t, []string{"h2", "h3"}, r.Handles())
	host, _ = r.Host()
	assert.Equal(t, "h2", host.Handle)
}

func TestRoom_RemoveLastPlayerStampsEmptySince(t *testing.T) {
	created := time.Unix(1000, 0)
	r := newRoom("CODE01", 5, created)
	r.AddPlayer("h1", "ann")

	left := created.Add(time.Minute)
	r.RemovePlayer("h1", left)

	assert.Empty(t, r.Players)
	assert.Equal(t, left, r.EmptySince)
	_, ok := r.Host()
	assert.False(t, ok)
}

func TestRoom_LeaderboardDoesNotReorderRoster(t *testing.T) {
	r := newRoom("CODE01", 5, time.Now())
	r.AddPlayer("h1", "ann").Score = 50
	r.AddPlayer("h2", "bob").Score = 100

	board := r.Leaderboard()

	assert.Equal(t, "bob", board[0].Username)
	assert.Equal(t, []string{"h1", "h2"}, r.Handles())
}

func TestRound_GuessesLastWriteWins(t *testing.T) {
	rd := NewRound(models.Product{Title: "Lamp", Price: 30}, time.Now(), 10*time.Second)

	assert.True(t, rd.RecordGuess("h1", 10))
	assert.True(t, rd.RecordGuess("h1", 25))
	assert.Equal(t, 25.0, rd.Guesses["h1"])

	assert.True(t, rd.End())
	assert.False(t, rd.End())
	assert.False(t, rd.RecordGuess("h1", 30))
	assert.Equal(t, 25.0, rd.Guesses["h1"])
}

func TestRoom_SnapshotHidesOpenPrice(t *testing.T) {
	now := time.Unix(5000, 0)
	r := newRoom("CODE01", 5, now)
	r.AddPlayer("h1", "ann")
	r.IsStarted = true
	r.RoundNumber = 1
	r.Phase = PhaseRoundActive
	r.CurrentRound = NewRound(models.Product{Title: "Lamp", Image: "lamp.png", Price: 30}, now, 10*time.Second)
	r.CurrentRound.RecordGuess("h1", 20)

	s := r.Snapshot(now.Add(4 * time.Second))
	require.NotNil(t, s.CurrentRound)
	assert.Nil(t, s.CurrentRound.ActualPrice)
	assert.Equal(t, 1, s.CurrentRound.GuessCount)
	require.NotNil(t, s.TimeRemaining)
	assert.Equal(t, 6, *s.TimeRemaining)
	assert.True(t, r.GuessWindowOpen())

	r.CurrentRound.End()
	s = r.Snapshot(now.Add(11 * time.Second))
	require.NotNil(t, s.CurrentRound.ActualPrice)
	assert.Equal(t, 30.0, *s.CurrentRound.ActualPrice)
	assert.Nil(t, s.TimeRemaining)
	assert.False(t, r.GuessWindowOpen())

	sum := r.Summarize()
	assert.Equal(t, Summary{RoomCode: "CODE01", Phase: PhaseRoundActive, Players: 1, RoundNumber: 1, TotalRounds: 5}, sum)
}
