package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pricegame/go/internal/game/events"
	"github.com/mcdev12/pricegame/go/internal/game/room"
)

var ErrUsernameRequired = errors.New("username is required")

// Tracker seats connections in rooms and cleans up after them.
type Tracker struct {
	rooms    *room.Registry
	notifier events.Notifier

	mu    sync.Mutex
	seats map[string]string // handle -> room code
}

func NewTracker(rooms *room.Registry, notifier events.Notifier) *Tracker {
	return &Tracker{
		rooms:    rooms,
		notifier: notifier,
		seats:    make(map[string]string),
	}
}

// Join seats handle in the room under code. A handle already seated
// elsewhere leaves that room first.
func (t *Tracker) Join(handle, username, code string) error {
	if strings.TrimSpace(username) == "" {
		return ErrUsernameRequired
	}
	r, ok := t.rooms.Get(code)
	if !ok {
		return room.ErrRoomNotFound
	}

	if prev, seated := t.RoomOf(handle); seated && prev != r.Code {
		t.leave(handle, prev)
	}

	r.Lock()
	defer r.Unlock()
	if r.Closed() {
		return room.ErrRoomNotFound
	}

	if r.HasPlayer(handle) {
		t.notifier.SendTo(handle, events.New(events.TypeJoinedRoom, events.JoinedRoomPayload{
			RoomCode: r.Code,
			Players:  r.Roster(),
		}))
		return nil
	}

	r.AddPlayer(handle, username)
	t.setSeat(handle, r.Code)
	roster := r.Roster()

	t.notifier.Subscribe(r.Code, handle)
	t.notifier.SendTo(handle, events.New(events.TypeJoinedRoom, events.JoinedRoomPayload{
		RoomCode: r.Code,
		Players:  roster,
	}))
	t.notifier.BroadcastExcept(r.Code, handle, events.New(events.TypePlayerJoined, events.RosterPayload{Players: roster}))
	if len(roster) == 1 {
		t.notifier.SendTo(handle, events.New(events.TypeHostGame, nil))
	}

	log.Info().
		Str("room_code", r.Code).
		Str("handle", handle).
		Str("username", username).
		Int("players", len(roster)).
		Msg("player joined")
	return nil
}

// Disconnect removes handle from every room. Rooms left empty are deleted.
func (t *Tracker) Disconnect(handle string) {
	t.mu.Lock()
	delete(t.seats, handle)
	t.mu.Unlock()

	for _, r := range t.rooms.Rooms() {
		t.removeFrom(r, handle)
	}
}

// RoomOf returns the code of the room handle is seated in. Seats in rooms
// that have since been removed are forgotten.
func (t *Tracker) RoomOf(handle string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	code, ok := t.seats[handle]
	if ok && !t.live(code) {
		delete(t.seats, handle)
		return "", false
	}
	return code, ok
}

// Seated returns the number of connections seated in live rooms.
func (t *Tracker) Seated() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for handle, code := range t.seats {
		if !t.live(code) {
			delete(t.seats, handle)
		}
	}
	return len(t.seats)
}

// live reports whether a room under code still exists. Game end and the
// reaper remove rooms without going through the tracker.
func (t *Tracker) live(code string) bool {
	_, ok := t.rooms.Get(code)
	return ok
}

func (t *Tracker) leave(handle, code string) {
	if r, ok := t.rooms.Get(code); ok {
		t.removeFrom(r, handle)
	}
}

func (t *Tracker) removeFrom(r *room.Room, handle string) {
	r.Lock()
	defer r.Unlock()
	if r.Closed() {
		return
	}
	prevHost, _ := r.Host()
	if !r.RemovePlayer(handle, t.rooms.Clock().Now()) {
		return
	}
	t.notifier.Unsubscribe(r.Code, handle)

	if len(r.Players) == 0 {
		t.rooms.Remove(r)
		t.notifier.Disband(r.Code)
		log.Info().Str("room_code", r.Code).Str("handle", handle).Msg("last player left, room removed")
		return
	}

	t.notifier.Broadcast(r.Code, events.New(events.TypePlayerLeft, events.RosterPayload{Players: r.Roster()}))
	if host, _ := r.Host(); prevHost.Handle == handle && !r.IsStarted {
		t.notifier.SendTo(host.Handle, events.New(events.TypeHostGame, nil))
	}
	log.Info().Str("room_code", r.Code).Str("handle", handle).Int("players", len(r.Players)).Msg("player left")
}

func (t *Tracker) setSeat(handle, code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seats[handle] = code
}
