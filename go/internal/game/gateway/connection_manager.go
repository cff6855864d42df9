package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mcdev12/pricegame/go/internal/game/events"
)

// MessageHandler receives every inbound frame and the end of each connection.
type MessageHandler interface {
	HandleMessage(handle string, message []byte)
	HandleDisconnect(handle string)
}

// ConnectionManager owns the websocket connections and the per-room
// broadcast groups. Sends and membership changes go through one ordered
// queue, so a client never sees events of a room it has already left.
type ConnectionManager struct {
	connections map[string]*Connection
	groups      map[string]map[string]*Connection
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  MessageHandler

	ops  chan op
	done chan struct{}
	stop sync.Once
}

// Connection is one client socket. Its handle is the player identity.
type Connection struct {
	Handle  string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	limiter     *rate.Limiter
	ConnectedAt time.Time
	closeOnce   sync.Once
}

// ConnectionConfig holds configuration for websocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	QueueSize       int
	// MessagesPerSecond and Burst limit inbound frames per connection.
	MessagesPerSecond float64
	Burst             int
	CheckOrigin       func(r *http.Request) bool
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:      10 * time.Second,
		ReadTimeout:       60 * time.Second,
		PingInterval:      30 * time.Second,
		MaxMessageSize:    1024,
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		SendBufferSize:    256,
		QueueSize:         1000,
		MessagesPerSecond: 10,
		Burst:             20,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

type opKind int

const (
	opSend opKind = iota
	opBroadcast
	opSubscribe
	opUnsubscribe
	opDisband
)

type op struct {
	kind   opKind
	room   string
	handle string // target for send, subject for membership, excluded for broadcast
	event  events.Event
}

func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	def := DefaultConnectionConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = def.SendBufferSize
	}
	if config.CheckOrigin == nil {
		config.CheckOrigin = def.CheckOrigin
	}
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		groups:      make(map[string]map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		ops:    make(chan op, config.QueueSize),
		done:   make(chan struct{}),
	}
}

// SetHandler installs the inbound message handler. Call before serving.
func (cm *ConnectionManager) SetHandler(h MessageHandler) {
	cm.handler = h
}

// Start processes queued sends and membership changes until ctx is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	defer cm.stop.Do(func() { close(cm.done) })

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case o := <-cm.ops:
			cm.apply(o)
		}
	}
}

func (cm *ConnectionManager) enqueue(o op) {
	select {
	case cm.ops <- o:
	case <-cm.done:
	}
}

func (cm *ConnectionManager) SendTo(handle string, ev events.Event) {
	cm.enqueue(op{kind: opSend, handle: handle, event: ev})
}

func (cm *ConnectionManager) Broadcast(roomCode string, ev events.Event) {
	cm.enqueue(op{kind: opBroadcast, room: roomCode, event: ev})
}

func (cm *ConnectionManager) BroadcastExcept(roomCode, except string, ev events.Event) {
	cm.enqueue(op{kind: opBroadcast, room: roomCode, handle: except, event: ev})
}

func (cm *ConnectionManager) Subscribe(roomCode, handle string) {
	cm.enqueue(op{kind: opSubscribe, room: roomCode, handle: handle})
}

func (cm *ConnectionManager) Unsubscribe(roomCode, handle string) {
	cm.enqueue(op{kind: opUnsubscribe, room: roomCode, handle: handle})
}

func (cm *ConnectionManager) Disband(roomCode string) {
	cm.enqueue(op{kind: opDisband, room: roomCode})
}

func (cm *ConnectionManager) apply(o op) {
	switch o.kind {
	case opSend:
		cm.mu.RLock()
		conn, ok := cm.connections[o.handle]
		cm.mu.RUnlock()
		if ok {
			cm.deliver(o.event, []*Connection{conn})
		}
	case opBroadcast:
		cm.mu.RLock()
		targets := make([]*Connection, 0, len(cm.groups[o.room]))
		for handle, conn := range cm.groups[o.room] {
			if handle != o.handle {
				targets = append(targets, conn)
			}
		}
		cm.mu.RUnlock()
		cm.deliver(o.event, targets)
		log.Debug().
			Str("event_type", string(o.event.Type)).
			Str("room_code", o.room).
			Int("connections", len(targets)).
			Msg("event broadcasted")
	case opSubscribe:
		cm.mu.Lock()
		if conn, ok := cm.connections[o.handle]; ok {
			if cm.groups[o.room] == nil {
				cm.groups[o.room] = make(map[string]*Connection)
			}
			cm.groups[o.room][o.handle] = conn
		}
		cm.mu.Unlock()
	case opUnsubscribe:
		cm.mu.Lock()
		cm.leaveGroupLocked(o.room, o.handle)
		cm.mu.Unlock()
	case opDisband:
		cm.mu.Lock()
		delete(cm.groups, o.room)
		cm.mu.Unlock()
	}
}

func (cm *ConnectionManager) leaveGroupLocked(room, handle string) {
	members, ok := cm.groups[room]
	if !ok {
		return
	}
	delete(members, handle)
	if len(members) == 0 {
		delete(cm.groups, room)
	}
}

func (cm *ConnectionManager) deliver(ev events.Event, targets []*Connection) {
	if len(targets) == 0 {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("failed to marshal event")
		return
	}

	// Send is closed under the write lock, so only registered connections
	// are written to while the read lock is held.
	var slow []*Connection
	cm.mu.RLock()
	for _, conn := range targets {
		if cm.connections[conn.Handle] != conn {
			continue
		}
		select {
		case conn.Send <- data:
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().Str("handle", conn.Handle).Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// UpgradeConnection upgrades the request and starts the connection pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	conn := &Connection{
		Handle:      uuid.New().String(),
		Conn:        ws,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		limiter:     rate.NewLimiter(rate.Limit(cm.config.MessagesPerSecond), cm.config.Burst),
		ConnectedAt: time.Now(),
	}
	cm.registerConnection(conn)

	go conn.writePump()
	go conn.readPump()

	log.Info().Str("handle", conn.Handle).Str("remote_addr", r.RemoteAddr).Msg("websocket connection established")
	return conn, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[conn.Handle] = conn
	log.Debug().Str("handle", conn.Handle).Int("total_connections", len(cm.connections)).Msg("connection registered")
}

// unregisterConnection drops the connection and closes its send queue.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cur, ok := cm.connections[conn.Handle]; !ok || cur != conn {
		return
	}
	delete(cm.connections, conn.Handle)
	for room, members := range cm.groups {
		if members[conn.Handle] == conn {
			cm.leaveGroupLocked(room, conn.Handle)
		}
	}
	conn.closeOnce.Do(func() { close(conn.Send) })
	log.Info().Str("handle", conn.Handle).Msg("connection unregistered")
}

// ConnectionStats describes the live connections.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
}

func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	stats := ConnectionStats{
		TotalConnections: len(cm.connections),
		ActiveRooms:      len(cm.groups),
		RoomConnections:  make(map[string]int, len(cm.groups)),
	}
	for room, members := range cm.groups {
		stats.RoomConnections[room] = len(members)
	}
	return stats
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("handle", c.Handle).Msg("failed to write message to websocket")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("handle", c.Handle).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump dispatches inbound frames in order. The disconnect callback runs
// here, after the last frame was handled.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
		if h := c.Manager.handler; h != nil {
			h.HandleDisconnect(c.Handle)
		}
		log.Info().Str("handle", c.Handle).Dur("connected_for", time.Since(c.ConnectedAt)).Msg("websocket connection closed")
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("handle", c.Handle).Msg("unexpected websocket close error")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))

		if !c.limiter.Allow() {
			log.Warn().Str("handle", c.Handle).Msg("rate limit exceeded, dropping message")
			c.Manager.SendTo(c.Handle, events.New(events.TypeError, events.ErrorPayload{Message: "Too many requests"}))
			continue
		}
		if h := c.Manager.handler; h != nil {
			h.HandleMessage(c.Handle, message)
		}
	}
}
