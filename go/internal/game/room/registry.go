package room

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	codeAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultCodeLength  = 6
	DefaultTotalRounds = 5
	maxCodeAttempts    = 64
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrCodeSpaceExhausted = errors.New("could not generate an unused room code")
)

// CodeGenerator returns a candidate room code.
type CodeGenerator func() (string, error)

// Registry owns every live Room, keyed by upper-case code.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[string]*Room
	generate    CodeGenerator
	clock       clockwork.Clock
	totalRounds int
}

type Option func(*Registry)

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(g CodeGenerator) Option {
	return func(r *Registry) { r.generate = g }
}

func WithClock(c clockwork.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithTotalRounds sets the round count of newly created rooms.
func WithTotalRounds(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.totalRounds = n
		}
	}
}

// WithCodeLength sets the length of generated codes.
func WithCodeLength(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.generate = RandomCode(n)
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms:       make(map[string]*Room),
		generate:    RandomCode(DefaultCodeLength),
		clock:       clockwork.NewRealClock(),
		totalRounds: DefaultTotalRounds,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RandomCode draws codes of length n from A-Z0-9 using crypto/rand.
func RandomCode(n int) CodeGenerator {
	return func() (string, error) {
		var sb strings.Builder
		sb.Grow(n)
		max := big.NewInt(int64(len(codeAlphabet)))
		for i := 0; i < n; i++ {
			idx, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("read random: %w", err)
			}
			sb.WriteByte(codeAlphabet[idx.Int64()])
		}
		return sb.String(), nil
	}
}

// NormalizeCode makes lookups case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create registers a new empty room under a code not currently in use.
func (r *Registry) Create() (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := r.generate()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		code = NormalizeCode(code)
		if code == "" {
			continue
		}
		if _, taken := r.rooms[code]; taken {
			log.Debug().Str("room_code", code).Int("attempt", attempt).Msg("room code collision, regenerating")
			continue
		}

		room := newRoom(code, r.totalRounds, r.clock.Now())
		r.rooms[code] = room
		log.Info().Str("room_code", code).Int("total_rounds", r.totalRounds).Msg("room created")
		return room, nil
	}
	return nil, ErrCodeSpaceExhausted
}

// Get looks a room up by code, ignoring case.
func (r *Registry) Get(code string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[NormalizeCode(code)]
	return room, ok
}

// Holds reports whether room is still the registered room for its code.
func (r *Registry) Holds(room *Room) bool {
	cur, ok := r.Get(room.Code)
	return ok && cur == room
}

// Remove unregisters room and marks it closed. It only deletes the entry if
// it still points at this room. The caller must hold room's lock.
func (r *Registry) Remove(room *Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room.closed = true
	if cur, ok := r.rooms[room.Code]; ok && cur == room {
		delete(r.rooms, room.Code)
		log.Info().Str("room_code", room.Code).Msg("room deleted")
		return true
	}
	return false
}

// Delete removes the room registered under code, if any.
func (r *Registry) Delete(code string) {
	room, ok := r.Get(code)
	if !ok {
		return
	}
	room.Lock()
	defer room.Unlock()
	r.Remove(room)
}

// Rooms returns a snapshot of the registered rooms.
func (r *Registry) Rooms() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Clock is the time source rooms are stamped with.
func (r *Registry) Clock() clockwork.Clock {
	return r.clock
}
