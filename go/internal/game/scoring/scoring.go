// Package scoring turns a round's guesses into winners and point awards.
package scoring

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mcdev12/pricegame/go/internal/models"
)

const (
	// WinBonus is added for every player tied for the closest guess.
	WinBonus = 1000
	// ProximityScale is the proximity bonus of an exact guess.
	ProximityScale = 500
)

var half = decimal.NewFromFloat(0.5)

// Outcome is the result of one round.
type Outcome struct {
	// Winners are the handles with the smallest difference, in roster order.
	Winners []string
	// Awards maps every roster handle to the points earned this round.
	Awards map[string]int
}

// IsWinner reports whether handle is among the winners.
func (o Outcome) IsWinner(handle string) bool {
	for _, w := range o.Winners {
		if w == handle {
			return true
		}
	}
	return false
}

// Evaluate scores a round. order is the roster in join order; guesses by
// handles outside the roster and non-finite guesses are ignored.
func Evaluate(actualPrice float64, order []string, guesses map[string]float64) Outcome {
	out := Outcome{
		Winners: []string{},
		Awards:  make(map[string]int, len(order)),
	}
	for _, h := range order {
		out.Awards[h] = 0
	}
	if !finite(actualPrice) {
		return out
	}

	actual := decimal.NewFromFloat(actualPrice)
	diffs := make(map[string]decimal.Decimal, len(guesses))
	var best decimal.Decimal
	found := false

	for _, h := range order {
		g, ok := guesses[h]
		if !ok || !finite(g) {
			continue
		}
		if _, seen := diffs[h]; seen {
			continue
		}
		d := decimal.NewFromFloat(g).Sub(actual).Abs()
		diffs[h] = d

		switch {
		case !found || d.LessThan(best):
			best = d
			found = true
			out.Winners = []string{h}
		case d.Equal(best):
			out.Winners = append(out.Winners, h)
		}
	}

	for h, d := range diffs {
		award := proximity(d, actual)
		if out.IsWinner(h) {
			award += WinBonus
		}
		out.Awards[h] = award
	}
	return out
}

// ProximityBonus is round(500 * (1 - |guess-actual| / actual)). It is not
// clamped, so guesses more than twice the price away go negative.
func ProximityBonus(guess, actualPrice float64) int {
	if !finite(guess) || !finite(actualPrice) {
		return 0
	}
	actual := decimal.NewFromFloat(actualPrice)
	return proximity(decimal.NewFromFloat(guess).Sub(actual).Abs(), actual)
}

func proximity(diff, actual decimal.Decimal) int {
	if !actual.IsPositive() {
		return 0
	}
	ratio := decimal.NewFromInt(1).Sub(diff.Div(actual))
	// round half up, matching the client-side rounding players see
	return int(ratio.Mul(decimal.NewFromInt(ProximityScale)).Add(half).Floor().IntPart())
}

// Leaderboard orders players by score, highest first. Equal scores keep the
// order of players, which callers pass in join order.
func Leaderboard(players []models.Player) []models.LeaderboardEntry {
	sorted := append([]models.Player(nil), players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	board := make([]models.LeaderboardEntry, len(sorted))
	for i, p := range sorted {
		board[i] = models.LeaderboardEntry{Username: p.Username, Score: p.Score}
	}
	return board
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
