package room

import (
	"time"

	"github.com/mcdev12/pricegame/go/internal/models"
)

// State is a read-only view of a room for the state API.
type State struct {
	RoomCode      string                    `json:"room_code"`
	Phase         Phase                     `json:"phase"`
	IsStarted     bool                      `json:"is_started"`
	RoundNumber   int                       `json:"round_number"`
	TotalRounds   int                       `json:"total_rounds"`
	Players       []models.Player           `json:"players"`
	Leaderboard   []models.LeaderboardEntry `json:"leaderboard"`
	CurrentRound  *RoundState               `json:"current_round,omitempty"`
	TimeRemaining *int                      `json:"time_remaining_sec,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}

// RoundState never exposes the price of a round that is still open.
type RoundState struct {
	Title       string    `json:"title"`
	Image       string    `json:"image"`
	Ended       bool      `json:"ended"`
	GuessCount  int       `json:"guess_count"`
	StartedAt   time.Time `json:"started_at"`
	EndsAt      time.Time `json:"ends_at"`
	ActualPrice *float64  `json:"actual_price,omitempty"`
}

// Summary is a room line for the active-rooms listing.
type Summary struct {
	RoomCode    string `json:"room_code"`
	Phase       Phase  `json:"phase"`
	Players     int    `json:"players"`
	RoundNumber int    `json:"round_number"`
	TotalRounds int    `json:"total_rounds"`
}

// Snapshot copies the room state. The caller must hold the room's lock.
func (r *Room) Snapshot(now time.Time) State {
	s := State{
		RoomCode:    r.Code,
		Phase:       r.Phase,
		IsStarted:   r.IsStarted,
		RoundNumber: r.RoundNumber,
		TotalRounds: r.TotalRounds,
		Players:     r.Roster(),
		Leaderboard: r.Leaderboard(),
		CreatedAt:   r.CreatedAt,
	}
	if rd := r.CurrentRound; rd != nil {
		rs := &RoundState{
			Title:      rd.Product.Title,
			Image:      rd.Product.Image,
			Ended:      rd.Ended,
			GuessCount: len(rd.Guesses),
			StartedAt:  rd.StartedAt,
			EndsAt:     rd.EndsAt,
		}
		if rd.Ended {
			price := rd.Product.Price
			rs.ActualPrice = &price
		} else if remaining := int(rd.EndsAt.Sub(now).Seconds()); remaining > 0 {
			s.TimeRemaining = &remaining
		}
		s.CurrentRound = rs
	}
	return s
}

// Summarize returns the listing line. The caller must hold the room's lock.
func (r *Room) Summarize() Summary {
	return Summary{
		RoomCode:    r.Code,
		Phase:       r.Phase,
		Players:     len(r.Players),
		RoundNumber: r.RoundNumber,
		TotalRounds: r.TotalRounds,
	}
}
