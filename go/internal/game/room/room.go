package room

import (
	"sync"
	"time"

	"github.com/mcdev12/pricegame/go/internal/game/scoring"
	"github.com/mcdev12/pricegame/go/internal/models"
)

// Phase is where a room sits in the round lifecycle.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseFetching    Phase = "fetching"
	PhaseRoundActive Phase = "round_active"
	PhaseRoundEnded  Phase = "round_ended"
	PhaseStalled     Phase = "stalled"
	PhaseGameEnded   Phase = "game_ended"
)

// Room is one game session. Every field is guarded by the embedded mutex;
// callers lock the room for the whole of a state transition.
type Room struct {
	sync.Mutex

	Code         string
	Players      []*models.Player // join order
	CurrentRound *Round
	RoundNumber  int
	TotalRounds  int
	IsStarted    bool
	Phase        Phase
	CreatedAt    time.Time
	// EmptySince is when the roster last became empty, zero while occupied.
	EmptySince time.Time

	closed bool
}

func newRoom(code string, totalRounds int, now time.Time) *Room {
	return &Room{
		Code:        code,
		TotalRounds: totalRounds,
		Phase:       PhaseIdle,
		CreatedAt:   now,
		EmptySince:  now,
	}
}

// Closed reports whether the room was removed from its registry. A closed
// room must not be mutated any further.
func (r *Room) Closed() bool {
	return r.closed
}

// AddPlayer appends a player with a zero score.
func (r *Room) AddPlayer(handle, username string) *models.Player {
	p := &models.Player{Handle: handle, Username: username}
	r.Players = append(r.Players, p)
	r.EmptySince = time.Time{}
	return p
}

// RemovePlayer drops every seat held by handle and reports whether any was.
func (r *Room) RemovePlayer(handle string, now time.Time) bool {
	kept := r.Players[:0]
	removed := false
	for _, p := range r.Players {
		if p.Handle == handle {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(r.Players); i++ {
		r.Players[i] = nil
	}
	r.Players = kept
	if removed && len(r.Players) == 0 {
		r.EmptySince = now
	}
	return removed
}

// HasPlayer reports whether handle is seated in the room.
func (r *Room) HasPlayer(handle string) bool {
	return r.Player(handle) != nil
}

// Player returns the seat held by handle.
func (r *Room) Player(handle string) *models.Player {
	for _, p := range r.Players {
		if p.Handle == handle {
			return p
		}
	}
	return nil
}

// Host is the earliest joiner still present.
func (r *Room) Host() (models.Player, bool) {
	if len(r.Players) == 0 {
		return models.Player{}, false
	}
	return *r.Players[0], true
}

// Handles returns the roster handles in join order.
func (r *Room) Handles() []string {
	out := make([]string, len(r.Players))
	for i, p := range r.Players {
		out[i] = p.Handle
	}
	return out
}

// Roster returns a copy of the players in join order.
func (r *Room) Roster() []models.Player {
	out := make([]models.Player, len(r.Players))
	for i, p := range r.Players {
		out[i] = *p
	}
	return out
}

// Leaderboard ranks the current roster by score.
func (r *Room) Leaderboard() []models.LeaderboardEntry {
	return scoring.Leaderboard(r.Roster())
}

// GuessWindowOpen reports whether guesses are currently accepted.
func (r *Room) GuessWindowOpen() bool {
	return r.CurrentRound != nil && !r.CurrentRound.Ended
}
