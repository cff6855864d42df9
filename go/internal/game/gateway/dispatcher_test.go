package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/pricegame/go/internal/game/events"
	"github.com/mcdev12/pricegame/go/internal/game/events/eventstest"
	"github.com/mcdev12/pricegame/go/internal/game/orchestrator"
	"github.com/mcdev12/pricegame/go/internal/game/room"
	"github.com/mcdev12/pricegame/go/internal/game/session"
)

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Join(handle, username, code string) error {
	return m.Called(handle, username, code).Error(0)
}

func (m *MockSessions) Disconnect(handle string) {
	m.Called(handle)
}

type MockGame struct {
	mock.Mock
}

func (m *MockGame) StartGame(handle, code string) error {
	return m.Called(handle, code).Error(0)
}

func (m *MockGame) SubmitGuess(handle, code string, guess float64) bool {
	return m.Called(handle, code, guess).Bool(0)
}

func setupDispatcher() (*Dispatcher, *MockSessions, *MockGame, *eventstest.Recorder) {
	sessions := new(MockSessions)
	game := new(MockGame)
	rec := eventstest.NewRecorder()
	return NewDispatcher(sessions, game, rec), sessions, game, rec
}

func errorMessage(t *testing.T, rec *eventstest.Recorder, handle string) string {
	t.Helper()
	d, ok := rec.Last(events.TypeError)
	require.True(t, ok, "expected an error event")
	assert.Equal(t, handle, d.Handle)
	return d.Event.Data.(events.ErrorPayload).Message
}

func TestDispatcher_Join(t *testing.T) {
	d, sessions, _, rec := setupDispatcher()
	sessions.On("Join", "h1", "ann", "abc123").Return(nil)

	d.HandleMessage("h1", []byte(`{"type":"join-room","data":{"username":"ann","roomCode":"abc123"}}`))

	sessions.AssertExpectations(t)
	assert.Empty(t, rec.Deliveries())
}

func TestDispatcher_JoinUnknownRoom(t *testing.T) {
	d, sessions, _, rec := setupDispatcher()
	sessions.On("Join", "h1", "ann", "NOPE").Return(room.ErrRoomNotFound)

	d.HandleMessage("h1", []byte(`{"type":"join-room","data":{"username":"ann","roomCode":"NOPE"}}`))

	assert.Equal(t, "Invalid room code", errorMessage(t, rec, "h1"))
	assert.Equal(t, 0, rec.Count(events.TypePlayerJoined))
}

func TestDispatcher_JoinWithoutUsername(t *testing.T) {
	d, sessions, _, rec := setupDispatcher()
	sessions.On("Join", "h1", "", "ABC123").Return(session.ErrUsernameRequired)

	d.HandleMessage("h1", []byte(`{"type":"join-room","data":{"roomCode":"ABC123"}}`))

	assert.Equal(t, "Username is required", errorMessage(t, rec, "h1"))
}

func TestDispatcher_Start(t *testing.T) {
	d, _, game, rec := setupDispatcher()
	game.On("StartGame", "h1", "ABC123").Return(nil).Once()
	game.On("StartGame", "h2", "GONE00").Return(room.ErrRoomNotFound).Once()
	game.On("StartGame", "h3", "ABC123").Return(orchestrator.ErrNotHost).Once()

	d.HandleMessage("h1", []byte(`{"type":"start-game","data":{"roomCode":"ABC123"}}`))
	d.HandleMessage("h2", []byte(`{"type":"start-game","data":{"roomCode":"GONE00"}}`))
	assert.Empty(t, rec.Deliveries(), "unknown room on start is ignored")

	d.HandleMessage("h3", []byte(`{"type":"start-game","data":{"roomCode":"ABC123"}}`))
	assert.Equal(t, "Only the host can start the game", errorMessage(t, rec, "h3"))
	game.AssertExpectations(t)
}

func TestDispatcher_Guess(t *testing.T) {
	d, _, game, rec := setupDispatcher()
	game.On("SubmitGuess", "h1", "ABC123", 42.5).Return(true).Once()
	game.On("SubmitGuess", "h1", "ABC123", 19.99).Return(false).Once()

	d.HandleMessage("h1", []byte(`{"type":"submit-guess","data":{"roomCode":"ABC123","guess":"42.5"}}`))
	d.HandleMessage("h1", []byte(`{"type":"submit-guess","data":{"roomCode":"ABC123","guess":19.99}}`))
	d.HandleMessage("h1", []byte(`{"type":"submit-guess","data":{"roomCode":"ABC123","guess":"lots"}}`))

	game.AssertExpectations(t)
	game.AssertNumberOfCalls(t, "SubmitGuess", 2)
	assert.Empty(t, rec.Deliveries(), "guesses never get a reply")
}

func TestDispatcher_BadMessages(t *testing.T) {
	d, _, _, rec := setupDispatcher()

	d.HandleMessage("h1", []byte(`not json`))
	assert.Equal(t, "Malformed message", errorMessage(t, rec, "h1"))

	d.HandleMessage("h1", []byte(`{"type":"dance"}`))
	assert.Equal(t, "Unknown event type", errorMessage(t, rec, "h1"))

	d.HandleMessage("h1", []byte(`{"type":"join-room","data":"ann"}`))
	assert.Equal(t, "Malformed message", errorMessage(t, rec, "h1"))
}

func TestDispatcher_Disconnect(t *testing.T) {
	d, sessions, _, _ := setupDispatcher()
	sessions.On("Disconnect", "h1").Return()

	d.HandleDisconnect("h1")

	sessions.AssertExpectations(t)
}

func TestParseGuess(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{name: "number", raw: `12.5`, want: 12.5},
		{name: "integer", raw: `7`, want: 7},
		{name: "numeric string", raw: `"109.95"`, want: 109.95},
		{name: "padded string", raw: `" 3 "`, want: 3},
		{name: "currency", raw: `"$20"`, want: 20},
		{name: "negative", raw: `-4`, want: -4},
		{name: "word", raw: `"cheap"`, wantErr: true},
		{name: "empty string", raw: `""`, wantErr: true},
		{name: "nan string", raw: `"NaN"`, wantErr: true},
		{name: "inf string", raw: `"Inf"`, wantErr: true},
		{name: "null", raw: `null`, wantErr: true},
		{name: "missing", raw: ``, wantErr: true},
		{name: "object", raw: `{"v":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGuess(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidGuess)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
