package orchestrator

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Run sweeps abandoned rooms until ctx is cancelled. A room is abandoned once
// it has had no players for longer than the empty-room TTL, which also
// covers rooms that were created and never joined.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info().
		Str("instance", o.instanceID).
		Dur("interval", o.settings.ReapInterval).
		Dur("empty_room_ttl", o.settings.EmptyRoomTTL).
		Msg("room reaper started")

	ticker := o.clock.NewTicker(o.settings.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", o.instanceID).Msg("room reaper shutting down")
			return nil
		case <-ticker.Chan():
			if n := o.ReapEmptyRooms(); n > 0 {
				log.Info().Str("instance", o.instanceID).Int("removed", n).Msg("reaped empty rooms")
			}
		}
	}
}

// ReapEmptyRooms removes abandoned rooms and returns how many it removed.
func (o *Orchestrator) ReapEmptyRooms() int {
	removed := 0
	for _, r := range o.rooms.Rooms() {
		r.Lock()
		if !r.Closed() && len(r.Players) == 0 && !r.EmptySince.IsZero() &&
			o.clock.Since(r.EmptySince) >= o.settings.EmptyRoomTTL {
			if o.rooms.Remove(r) {
				o.notifier.Disband(r.Code)
				removed++
			}
		}
		r.Unlock()
	}
	return removed
}
