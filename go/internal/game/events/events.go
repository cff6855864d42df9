package events

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/pricegame/go/internal/models"
)

// Type is the wire name of an event.
type Type string

// Inbound client events.
const (
	TypeJoinRoom    Type = "join-room"
	TypeStartGame   Type = "start-game"
	TypeSubmitGuess Type = "submit-guess"
)

// Outbound server events.
const (
	TypeJoinedRoom   Type = "joined-room"
	TypePlayerJoined Type = "player-joined"
	TypePlayerLeft   Type = "player-left"
	TypeHostGame     Type = "host-game"
	TypeGameStarted  Type = "game-started"
	TypeNewRound     Type = "new-round"
	TypeRoundEnd     Type = "round-end"
	TypeGameEnd      Type = "game-end"
	TypeError        Type = "error"
)

// Event is the envelope written to clients.
type Event struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// New builds an event; a nil payload is sent as an empty object.
func New(t Type, data any) Event {
	if data == nil {
		data = struct{}{}
	}
	return Event{Type: t, Data: data}
}

// ClientEvent is the envelope read from clients.
type ClientEvent struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// JoinRoomRequest is the payload of join-room.
type JoinRoomRequest struct {
	Username string `json:"username"`
	RoomCode string `json:"roomCode"`
}

// StartGameRequest is the payload of start-game.
type StartGameRequest struct {
	RoomCode string `json:"roomCode"`
}

// SubmitGuessRequest is the payload of submit-guess. Guess may be a JSON
// number or a numeric string.
type SubmitGuessRequest struct {
	RoomCode string          `json:"roomCode"`
	Guess    json.RawMessage `json:"guess"`
}

// JoinedRoomPayload is sent only to the player who joined.
type JoinedRoomPayload struct {
	RoomCode string          `json:"roomCode"`
	Players  []models.Player `json:"players"`
}

// RosterPayload carries player-joined and player-left.
type RosterPayload struct {
	Players []models.Player `json:"players"`
}

// NewRoundPayload announces a round. TimeLimitSec lets clients run a visual
// countdown; the server timer stays authoritative.
type NewRoundPayload struct {
	Title        string    `json:"title"`
	Image        string    `json:"image"`
	RoundNumber  int       `json:"roundNumber"`
	TotalRounds  int       `json:"totalRounds"`
	TimeLimitSec int       `json:"timeLimitSec"`
	EndsAt       time.Time `json:"endsAt"`
}

// RoundEndPayload reveals the price and the standings after a round.
type RoundEndPayload struct {
	ActualPrice float64                   `json:"actualPrice"`
	Winners     []string                  `json:"winners"`
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
}

// GameEndPayload carries the final standings.
type GameEndPayload struct {
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
}

// ErrorPayload is sent to a single client when its request was rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}
