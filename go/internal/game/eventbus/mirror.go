package eventbus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pricegame/go/internal/game/events"
)

const (
	DefaultQueueSize = 1024
	publishTimeout   = 5 * time.Second
)

// Mirror forwards everything to the wrapped Notifier and additionally
// publishes room broadcasts to the bus. Publishing never blocks the game:
// events are queued and dropped when the queue is full.
type Mirror struct {
	events.Notifier
	publisher Publisher
	clock     clockwork.Clock
	queue     chan Envelope
}

func NewMirror(next events.Notifier, publisher Publisher, queueSize int, clock clockwork.Clock) *Mirror {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Mirror{
		Notifier:  next,
		publisher: publisher,
		clock:     clock,
		queue:     make(chan Envelope, queueSize),
	}
}

func (m *Mirror) Broadcast(roomCode string, ev events.Event) {
	m.Notifier.Broadcast(roomCode, ev)
	m.mirror(roomCode, ev)
}

func (m *Mirror) BroadcastExcept(roomCode, except string, ev events.Event) {
	m.Notifier.BroadcastExcept(roomCode, except, ev)
	m.mirror(roomCode, ev)
}

func (m *Mirror) mirror(roomCode string, ev events.Event) {
	env := Envelope{
		ID:        uuid.New(),
		Type:      ev.Type,
		RoomCode:  roomCode,
		Timestamp: m.clock.Now().UTC(),
		Payload:   ev.Data,
	}
	select {
	case m.queue <- env:
	default:
		log.Warn().Str("room_code", roomCode).Str("event_type", string(ev.Type)).Msg("event bus queue full, dropping event")
	}
}

// Run publishes queued events until ctx is cancelled, then drains what is
// left with a short deadline.
func (m *Mirror) Run(ctx context.Context) {
	log.Info().Msg("event bus mirror started")
	for {
		select {
		case <-ctx.Done():
			m.drain()
			log.Info().Msg("event bus mirror stopped")
			return
		case env := <-m.queue:
			m.publish(ctx, env)
		}
	}
}

func (m *Mirror) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	for {
		select {
		case env := <-m.queue:
			m.publish(ctx, env)
		default:
			return
		}
	}
}

func (m *Mirror) publish(ctx context.Context, env Envelope) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := m.publisher.Publish(ctx, env); err != nil {
		log.Error().
			Err(err).
			Str("room_code", env.RoomCode).
			Str("event_type", string(env.Type)).
			Str("event_id", env.ID.String()).
			Msg("failed to publish room event")
	}
}
