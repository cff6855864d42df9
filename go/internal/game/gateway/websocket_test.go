package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/pricegame/go/internal/game/events"
	"github.com/mcdev12/pricegame/go/internal/game/history"
	"github.com/mcdev12/pricegame/go/internal/game/orchestrator"
	"github.com/mcdev12/pricegame/go/internal/game/product"
	"github.com/mcdev12/pricegame/go/internal/game/room"
	"github.com/mcdev12/pricegame/go/internal/game/session"
	"github.com/mcdev12/pricegame/go/internal/models"
)

type serverEvent struct {
	Type events.Type     `json:"type"`
	Data json.RawMessage `json:"data"`
}

type roster struct {
	RoomCode string          `json:"roomCode"`
	Players  []models.Player `json:"players"`
}

func startGameServer(t *testing.T, connCfg ConnectionConfig) (*httptest.Server, *room.Registry) {
	t.Helper()
	rooms := room.NewRegistry(room.WithClock(clockwork.NewFakeClock()))
	svc := NewService(Config{ConnectionConfig: connCfg}, rooms, history.NewMemoryArchive(10))

	orch := orchestrator.NewOrchestrator(rooms, svc.Notifier(),
		product.NewStatic(models.Product{Title: "Desk Lamp", Image: "lamp.png", Price: 30}),
		orchestrator.Settings{})
	svc.SetHandler(NewDispatcher(session.NewTracker(rooms, svc.Notifier()), orch, svc.Notifier()))

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Start(ctx)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		orch.Close()
		cancel()
	})
	return srv, rooms
}

func createRoomHTTP(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/create-room", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body CreateRoomResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.RoomCode
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ events.Type, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": typ, "data": data}))
}

func expect(t *testing.T, conn *websocket.Conn, typ events.Type) serverEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev serverEvent
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, typ, ev.Type, "unexpected event: %s", ev.Data)
	return ev
}

func decodeRoster(t *testing.T, ev serverEvent) roster {
	t.Helper()
	var r roster
	require.NoError(t, json.Unmarshal(ev.Data, &r))
	return r
}

func usernames(players []models.Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.Username
	}
	return out
}

func TestWebSocket_GameFlow(t *testing.T) {
	srv, rooms := startGameServer(t, DefaultConnectionConfig())
	code := createRoomHTTP(t, srv)

	ann := dial(t, srv)
	send(t, ann, events.TypeJoinRoom, map[string]string{"username": "ann", "roomCode": strings.ToLower(code)})
	joined := decodeRoster(t, expect(t, ann, events.TypeJoinedRoom))
	assert.Equal(t, code, joined.RoomCode)
	assert.Equal(t, []string{"ann"}, usernames(joined.Players))
	expect(t, ann, events.TypeHostGame)

	bob := dial(t, srv)
	send(t, bob, events.TypeJoinRoom, map[string]string{"username": "bob", "roomCode": code})
	assert.Equal(t, []string{"ann", "bob"}, usernames(decodeRoster(t, expect(t, bob, events.TypeJoinedRoom)).Players))
	assert.Equal(t, []string{"ann", "bob"}, usernames(decodeRoster(t, expect(t, ann, events.TypePlayerJoined)).Players))

	stranger := dial(t, srv)
	send(t, stranger, events.TypeJoinRoom, map[string]string{"username": "eve", "roomCode": "NOPE00"})
	var payload events.ErrorPayload
	require.NoError(t, json.Unmarshal(expect(t, stranger, events.TypeError).Data, &payload))
	assert.Equal(t, "Invalid room code", payload.Message)

	send(t, ann, events.TypeStartGame, map[string]string{"roomCode": code})
	for _, c := range []*websocket.Conn{ann, bob} {
		expect(t, c, events.TypeGameStarted)
		var nr events.NewRoundPayload
		require.NoError(t, json.Unmarshal(expect(t, c, events.TypeNewRound).Data, &nr))
		assert.Equal(t, "Desk Lamp", nr.Title)
		assert.Equal(t, 1, nr.RoundNumber)
		assert.Equal(t, room.DefaultTotalRounds, nr.TotalRounds)
	}

	send(t, bob, events.TypeSubmitGuess, map[string]any{"roomCode": code, "guess": "28"})

	require.NoError(t, bob.Close())
	left := decodeRoster(t, expect(t, ann, events.TypePlayerLeft))
	assert.Equal(t, []string{"ann"}, usernames(left.Players))

	require.NoError(t, ann.Close())
	require.Eventually(t, func() bool {
		_, ok := rooms.Get(code)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_RateLimit(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.MessagesPerSecond = 0.001
	cfg.Burst = 1
	srv, _ := startGameServer(t, cfg)

	conn := dial(t, srv)
	send(t, conn, events.TypeJoinRoom, map[string]string{"username": "ann", "roomCode": "NOPE00"})
	expect(t, conn, events.TypeError)

	send(t, conn, events.TypeJoinRoom, map[string]string{"username": "ann", "roomCode": "NOPE00"})
	var payload events.ErrorPayload
	require.NoError(t, json.Unmarshal(expect(t, conn, events.TypeError).Data, &payload))
	assert.Equal(t, "Too many requests", payload.Message)
}

func TestWebSocket_Stats(t *testing.T) {
	srv, _ := startGameServer(t, DefaultConnectionConfig())
	code := createRoomHTTP(t, srv)
	conn := dial(t, srv)
	send(t, conn, events.TypeJoinRoom, map[string]string{"username": "ann", "roomCode": code})
	expect(t, conn, events.TypeJoinedRoom)

	resp, err := http.Get(srv.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats ConnectionStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.ActiveRooms)
	assert.Equal(t, 1, stats.RoomConnections[code])
}
