package room

import (
	"time"

	"github.com/mcdev12/pricegame/go/internal/models"
)

// Round lives from round start until its results are computed. A room
// replaces its round for every new one; it is never reused.
type Round struct {
	Product   models.Product
	Guesses   map[string]float64
	Ended     bool
	StartedAt time.Time
	EndsAt    time.Time
}

func NewRound(product models.Product, startedAt time.Time, window time.Duration) *Round {
	return &Round{
		Product:   product,
		Guesses:   make(map[string]float64),
		StartedAt: startedAt,
		EndsAt:    startedAt.Add(window),
	}
}

// RecordGuess stores a guess, overwriting an earlier one from the same
// handle. It refuses once the round has ended.
func (rd *Round) RecordGuess(handle string, guess float64) bool {
	if rd.Ended {
		return false
	}
	rd.Guesses[handle] = guess
	return true
}

// End marks the round as ended. Only the first call returns true.
func (rd *Round) End() bool {
	if rd.Ended {
		return false
	}
	rd.Ended = true
	return true
}
