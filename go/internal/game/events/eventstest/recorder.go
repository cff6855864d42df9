// Package eventstest provides a Notifier that records deliveries for tests.
package eventstest

import (
	"sort"
	"sync"

	"github.com/mcdev12/pricegame/go/internal/game/events"
)

// Kind tells how an event was addressed.
type Kind string

const (
	KindUnicast   Kind = "unicast"
	KindBroadcast Kind = "broadcast"
)

// Delivery is one recorded Notifier call that carried an event.
type Delivery struct {
	Kind   Kind
	Room   string
	Handle string
	Except string
	Event  events.Event
}

// Recorder is an in-memory events.Notifier. It tracks group membership so
// tests can assert what each connection would have received.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	groups     map[string]map[string]bool
	inbox      map[string][]events.Event
}

var _ events.Notifier = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{
		groups: make(map[string]map[string]bool),
		inbox:  make(map[string][]events.Event),
	}
}

func (r *Recorder) SendTo(handle string, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{Kind: KindUnicast, Handle: handle, Event: ev})
	r.inbox[handle] = append(r.inbox[handle], ev)
}

func (r *Recorder) Broadcast(roomCode string, ev events.Event) {
	r.BroadcastExcept(roomCode, "", ev)
}

func (r *Recorder) BroadcastExcept(roomCode, except string, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{Kind: KindBroadcast, Room: roomCode, Except: except, Event: ev})
	for handle := range r.groups[roomCode] {
		if handle == except {
			continue
		}
		r.inbox[handle] = append(r.inbox[handle], ev)
	}
}

func (r *Recorder) Subscribe(roomCode, handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.groups[roomCode] == nil {
		r.groups[roomCode] = make(map[string]bool)
	}
	r.groups[roomCode][handle] = true
}

func (r *Recorder) Unsubscribe(roomCode, handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups[roomCode], handle)
	if len(r.groups[roomCode]) == 0 {
		delete(r.groups, roomCode)
	}
}

func (r *Recorder) Disband(roomCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, roomCode)
}

// Deliveries returns a copy of every recorded delivery in call order.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.deliveries...)
}

// OfType returns the deliveries carrying events of type t.
func (r *Recorder) OfType(t events.Type) []Delivery {
	var out []Delivery
	for _, d := range r.Deliveries() {
		if d.Event.Type == t {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many deliveries carried events of type t.
func (r *Recorder) Count(t events.Type) int {
	return len(r.OfType(t))
}

// Last returns the most recent delivery of type t.
func (r *Recorder) Last(t events.Type) (Delivery, bool) {
	ds := r.OfType(t)
	if len(ds) == 0 {
		return Delivery{}, false
	}
	return ds[len(ds)-1], true
}

// Inbox returns the events a connection would have received.
func (r *Recorder) Inbox(handle string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.inbox[handle]...)
}

// Members returns the sorted handles subscribed to a room's group.
func (r *Recorder) Members(roomCode string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.groups[roomCode]))
	for h := range r.groups[roomCode] {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Reset forgets recorded deliveries and inboxes but keeps group membership.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = nil
	r.inbox = make(map[string][]events.Event)
}
