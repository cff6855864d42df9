package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pricegame/go/internal/game/events"
	"github.com/mcdev12/pricegame/go/internal/game/history"
	"github.com/mcdev12/pricegame/go/internal/game/room"
)

// Service bundles the websocket gateway with the room HTTP and RPC APIs.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	roomHandler       *RoomHandler
	roomService       *RoomService
}

// Config holds configuration for the gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
	PublicURL        string
}

func DefaultConfig() Config {
	return Config{ConnectionConfig: DefaultConnectionConfig()}
}

func NewService(config Config, rooms *room.Registry, archive history.Archive) *Service {
	cm := NewConnectionManager(config.ConnectionConfig)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
		roomHandler:       NewRoomHandler(rooms, archive, config.PublicURL),
		roomService:       NewRoomService(rooms),
	}
}

// Notifier is the connection manager as seen by the game.
func (s *Service) Notifier() events.Notifier {
	return s.connectionManager
}

// SetHandler installs the inbound message handler.
func (s *Service) SetHandler(h MessageHandler) {
	s.connectionManager.SetHandler(h)
}

// Start runs the delivery queue until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting game gateway")
	s.connectionManager.Start(ctx)
	log.Info().Msg("game gateway stopped")
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.roomHandler.RegisterRoutes(mux)
	path, handler := NewRoomServiceHandler(s.roomService)
	mux.Handle(path, handler)
	log.Info().Msg("game gateway routes registered")
}

func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
