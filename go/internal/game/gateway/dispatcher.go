package gateway

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pricegame/go/internal/game/events"
	"github.com/mcdev12/pricegame/go/internal/game/orchestrator"
	"github.com/mcdev12/pricegame/go/internal/game/room"
	"github.com/mcdev12/pricegame/go/internal/game/session"
)

var ErrInvalidGuess = errors.New("guess is not a finite number")

// Client-facing error messages.
const (
	msgInvalidRoomCode  = "Invalid room code"
	msgUsernameRequired = "Username is required"
	msgNotHost          = "Only the host can start the game"
	msgMalformed        = "Malformed message"
	msgUnknownEvent     = "Unknown event type"
)

// Sessions seats and unseats connections.
type Sessions interface {
	Join(handle, username, code string) error
	Disconnect(handle string)
}

// Game runs the rounds of a room.
type Game interface {
	StartGame(handle, code string) error
	SubmitGuess(handle, code string, guess float64) bool
}

// Dispatcher decodes client events and routes them. Rejected requests that
// the client can fix are answered with an error event; stale ones are dropped.
type Dispatcher struct {
	sessions Sessions
	game     Game
	notifier events.Notifier
}

func NewDispatcher(sessions Sessions, game Game, notifier events.Notifier) *Dispatcher {
	return &Dispatcher{sessions: sessions, game: game, notifier: notifier}
}

func (d *Dispatcher) HandleMessage(handle string, message []byte) {
	var ev events.ClientEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		d.reject(handle, msgMalformed)
		return
	}

	switch ev.Type {
	case events.TypeJoinRoom:
		var req events.JoinRoomRequest
		if err := decode(ev.Data, &req); err != nil {
			d.reject(handle, msgMalformed)
			return
		}
		d.join(handle, req)
	case events.TypeStartGame:
		var req events.StartGameRequest
		if err := decode(ev.Data, &req); err != nil {
			d.reject(handle, msgMalformed)
			return
		}
		d.start(handle, req)
	case events.TypeSubmitGuess:
		var req events.SubmitGuessRequest
		if err := decode(ev.Data, &req); err != nil {
			log.Debug().Err(err).Str("handle", handle).Msg("dropping undecodable guess")
			return
		}
		d.guess(handle, req)
	default:
		d.reject(handle, msgUnknownEvent)
	}
}

func (d *Dispatcher) HandleDisconnect(handle string) {
	d.sessions.Disconnect(handle)
}

func (d *Dispatcher) join(handle string, req events.JoinRoomRequest) {
	err := d.sessions.Join(handle, req.Username, req.RoomCode)
	switch {
	case err == nil:
	case errors.Is(err, room.ErrRoomNotFound):
		d.reject(handle, msgInvalidRoomCode)
	case errors.Is(err, session.ErrUsernameRequired):
		d.reject(handle, msgUsernameRequired)
	default:
		log.Error().Err(err).Str("handle", handle).Str("room_code", req.RoomCode).Msg("join failed")
		d.reject(handle, err.Error())
	}
}

func (d *Dispatcher) start(handle string, req events.StartGameRequest) {
	err := d.game.StartGame(handle, req.RoomCode)
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrNotHost):
		d.reject(handle, msgNotHost)
	case errors.Is(err, room.ErrRoomNotFound):
		log.Debug().Str("handle", handle).Str("room_code", req.RoomCode).Msg("ignoring start for unknown room")
	default:
		log.Error().Err(err).Str("handle", handle).Str("room_code", req.RoomCode).Msg("start failed")
	}
}

func (d *Dispatcher) guess(handle string, req events.SubmitGuessRequest) {
	g, err := ParseGuess(req.Guess)
	if err != nil {
		log.Debug().Err(err).Str("handle", handle).Str("room_code", req.RoomCode).Msg("dropping guess")
		return
	}
	d.game.SubmitGuess(handle, req.RoomCode, g)
}

func (d *Dispatcher) reject(handle, message string) {
	d.notifier.SendTo(handle, events.New(events.TypeError, events.ErrorPayload{Message: message}))
}

// ParseGuess accepts a JSON number or a numeric string. A leading currency
// sign and surrounding whitespace are ignored.
func ParseGuess(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, ErrInvalidGuess
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, ErrInvalidGuess
		}
		s = strings.TrimPrefix(strings.TrimSpace(s), "$")
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, ErrInvalidGuess
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidGuess
	}
	return f, nil
}

// decode treats a missing payload as an empty object.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}
