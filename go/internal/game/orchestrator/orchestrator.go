package orchestrator

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pricegame/go/internal/game/events"
	"github.com/mcdev12/pricegame/go/internal/game/history"
	"github.com/mcdev12/pricegame/go/internal/game/product"
	"github.com/mcdev12/pricegame/go/internal/game/room"
	"github.com/mcdev12/pricegame/go/internal/game/scoring"
)

// ErrNotHost is returned when host enforcement is on and someone other than
// the host asks to start.
var ErrNotHost = errors.New("only the host can start the game")

// Settings controls round timing.
type Settings struct {
	GuessWindow  time.Duration
	RoundPause   time.Duration
	FetchTimeout time.Duration
	EmptyRoomTTL time.Duration
	ReapInterval time.Duration
	EnforceHost  bool
}

func DefaultSettings() Settings {
	return Settings{
		GuessWindow:  10 * time.Second,
		RoundPause:   5 * time.Second,
		FetchTimeout: 10 * time.Second,
		EmptyRoomTTL: 10 * time.Minute,
		ReapInterval: time.Minute,
	}
}

// Orchestrator drives every room through its rounds. Each transition runs
// under the room's lock; timers are never cancelled and instead re-check the
// room and round they were scheduled for when they fire.
type Orchestrator struct {
	rooms      *room.Registry
	notifier   events.Notifier
	supplier   product.Supplier
	archive    history.Archive
	settings   Settings
	clock      clockwork.Clock
	instanceID string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Orchestrator)

func WithClock(c clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithArchive records every finished game.
func WithArchive(a history.Archive) Option {
	return func(o *Orchestrator) { o.archive = a }
}

// NewOrchestrator creates an orchestrator. Zero settings fall back to the defaults.
func NewOrchestrator(rooms *room.Registry, notifier events.Notifier, supplier product.Supplier, settings Settings, opts ...Option) *Orchestrator {
	def := DefaultSettings()
	if settings.GuessWindow <= 0 {
		settings.GuessWindow = def.GuessWindow
	}
	if settings.RoundPause <= 0 {
		settings.RoundPause = def.RoundPause
	}
	if settings.FetchTimeout <= 0 {
		settings.FetchTimeout = def.FetchTimeout
	}
	if settings.EmptyRoomTTL <= 0 {
		settings.EmptyRoomTTL = def.EmptyRoomTTL
	}
	if settings.ReapInterval <= 0 {
		settings.ReapInterval = def.ReapInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		rooms:      rooms,
		notifier:   notifier,
		supplier:   supplier,
		settings:   settings,
		clock:      rooms.Clock(),
		instanceID: uuid.New().String()[:8],
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartGame starts the game in the room. Repeated starts are ignored.
func (o *Orchestrator) StartGame(handle, code string) error {
	r, ok := o.rooms.Get(code)
	if !ok {
		return room.ErrRoomNotFound
	}

	r.Lock()
	defer r.Unlock()
	if r.Closed() {
		return room.ErrRoomNotFound
	}
	if r.IsStarted {
		log.Debug().Str("room_code", r.Code).Str("handle", handle).Msg("ignoring start: game already started")
		return nil
	}
	if o.settings.EnforceHost {
		host, ok := r.Host()
		if !ok || host.Handle != handle {
			return ErrNotHost
		}
	}

	r.IsStarted = true
	log.Info().Str("room_code", r.Code).Str("handle", handle).Int("players", len(r.Players)).Msg("game started")
	o.notifier.Broadcast(r.Code, events.New(events.TypeGameStarted, nil))
	o.advance(r)
	return nil
}

// SubmitGuess records a guess for the open round. It reports false when the
// guess was dropped.
func (o *Orchestrator) SubmitGuess(handle, code string, guess float64) bool {
	if math.IsNaN(guess) || math.IsInf(guess, 0) {
		return false
	}
	r, ok := o.rooms.Get(code)
	if !ok {
		return false
	}

	r.Lock()
	defer r.Unlock()
	if r.Closed() || !r.HasPlayer(handle) || !r.GuessWindowOpen() {
		log.Debug().Str("room_code", r.Code).Str("handle", handle).Msg("guess dropped")
		return false
	}
	return r.CurrentRound.RecordGuess(handle, guess)
}

// advance moves to the next round or ends the game. The caller holds r's lock.
func (o *Orchestrator) advance(r *room.Room) {
	r.RoundNumber++
	if r.RoundNumber > r.TotalRounds {
		o.finish(r)
		return
	}

	r.Phase = room.PhaseFetching
	if o.ctx.Err() != nil {
		return
	}
	number := r.RoundNumber
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.openRound(r, number)
	}()
}

// openRound fetches a product outside the lock and opens round number.
func (o *Orchestrator) openRound(r *room.Room, number int) {
	ctx, cancel := context.WithTimeout(o.ctx, o.settings.FetchTimeout)
	p, err := o.supplier.Fetch(ctx)
	cancel()

	r.Lock()
	defer r.Unlock()
	if r.Closed() || r.RoundNumber != number || r.Phase != room.PhaseFetching {
		log.Debug().Str("room_code", r.Code).Int("round_number", number).Msg("discarding product for stale round")
		return
	}
	if err == nil && !p.Valid() {
		err = product.ErrUnavailable
	}
	if err != nil {
		r.Phase = room.PhaseStalled
		log.Error().Err(err).Str("room_code", r.Code).Int("round_number", number).Msg("failed to fetch product, game stalled")
		return
	}

	rd := room.NewRound(p, o.clock.Now(), o.settings.GuessWindow)
	r.CurrentRound = rd
	r.Phase = room.PhaseRoundActive

	o.notifier.Broadcast(r.Code, events.New(events.TypeNewRound, events.NewRoundPayload{
		Title:        p.Title,
		Image:        p.Image,
		RoundNumber:  r.RoundNumber,
		TotalRounds:  r.TotalRounds,
		TimeLimitSec: int(o.settings.GuessWindow / time.Second),
		EndsAt:       rd.EndsAt,
	}))
	log.Info().Str("room_code", r.Code).Int("round_number", number).Str("product", p.Title).Msg("round started")

	o.clock.AfterFunc(o.settings.GuessWindow, func() {
		o.endRound(r, rd)
	})
}

// endRound scores rd and schedules the next round. Only the first call for a
// given round has any effect.
func (o *Orchestrator) endRound(r *room.Room, rd *room.Round) bool {
	if o.ctx.Err() != nil {
		return false
	}
	r.Lock()
	defer r.Unlock()
	if r.Closed() || r.CurrentRound != rd || !rd.End() {
		log.Debug().Str("room_code", r.Code).Msg("ignoring stale round end")
		return false
	}

	price := rd.Product.Price
	outcome := scoring.Evaluate(price, r.Handles(), rd.Guesses)
	for _, p := range r.Players {
		p.Score += outcome.Awards[p.Handle]
	}
	r.Phase = room.PhaseRoundEnded

	o.notifier.Broadcast(r.Code, events.New(events.TypeRoundEnd, events.RoundEndPayload{
		ActualPrice: price,
		Winners:     outcome.Winners,
		Leaderboard: r.Leaderboard(),
	}))
	log.Info().
		Str("room_code", r.Code).
		Int("round_number", r.RoundNumber).
		Int("guesses", len(rd.Guesses)).
		Strs("winners", outcome.Winners).
		Msg("round ended")

	o.clock.AfterFunc(o.settings.RoundPause, func() {
		o.nextRound(r, rd)
	})
	return true
}

// nextRound runs when the pause after prev is over.
func (o *Orchestrator) nextRound(r *room.Room, prev *room.Round) {
	if o.ctx.Err() != nil {
		return
	}
	r.Lock()
	defer r.Unlock()
	if r.Closed() || r.CurrentRound != prev || r.Phase != room.PhaseRoundEnded {
		log.Debug().Str("room_code", r.Code).Msg("ignoring stale round pause")
		return
	}
	o.advance(r)
}

// finish ends the game and removes the room. The caller holds r's lock.
func (o *Orchestrator) finish(r *room.Room) {
	r.Phase = room.PhaseGameEnded
	board := r.Leaderboard()

	o.notifier.Broadcast(r.Code, events.New(events.TypeGameEnd, events.GameEndPayload{Leaderboard: board}))
	o.rooms.Remove(r)
	o.notifier.Disband(r.Code)
	log.Info().Str("room_code", r.Code).Int("total_rounds", r.TotalRounds).Msg("game ended")

	if o.archive == nil {
		return
	}
	rec := history.NewGameRecord(r.Code, r.TotalRounds, board, r.CreatedAt, o.clock.Now())
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.archive.Record(ctx, rec); err != nil {
			log.Error().Err(err).Str("room_code", rec.RoomCode).Msg("failed to archive game result")
		}
	}()
}

// Close stops pending rounds from progressing and waits for in-flight
// fetches and archive writes.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// Settings returns the effective timing settings.
func (o *Orchestrator) Settings() Settings {
	return o.settings
}
