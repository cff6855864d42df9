package gateway

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/mcdev12/pricegame/go/internal/game/history"
	"github.com/mcdev12/pricegame/go/internal/game/room"
)

const (
	qrSize             = 320
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// CreateRoomResponse is the body of POST /create-room.
type CreateRoomResponse struct {
	RoomCode string `json:"roomCode"`
}

// RoomHandler serves the room HTTP API.
type RoomHandler struct {
	rooms     *room.Registry
	archive   history.Archive
	publicURL string
}

// NewRoomHandler creates the handler. An empty publicURL derives join links
// from the request host.
func NewRoomHandler(rooms *room.Registry, archive history.Archive, publicURL string) *RoomHandler {
	return &RoomHandler{
		rooms:     rooms,
		archive:   archive,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// HandleCreateRoom handles POST /create-room.
func (h *RoomHandler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Create()
	if err != nil {
		log.Error().Err(err).Msg("failed to create room")
		http.Error(w, "Failed to create room", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, CreateRoomResponse{RoomCode: rm.Code})
}

// HandleGetRoomState handles GET /api/rooms/{code}/state.
func (h *RoomHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	state, ok := RoomState(h.rooms, r.PathValue("code"))
	if !ok {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandleGetActiveRooms handles GET /api/rooms/active.
func (h *RoomHandler) HandleGetActiveRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.rooms.Rooms()
	out := make([]room.Summary, 0, len(rooms))
	for _, rm := range rooms {
		rm.Lock()
		if !rm.Closed() {
			out = append(out, rm.Summarize())
		}
		rm.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomCode < out[j].RoomCode })
	writeJSON(w, http.StatusOK, out)
}

// HandleRoomQR handles GET /api/rooms/{code}/qr.png with a join link.
func (h *RoomHandler) HandleRoomQR(w http.ResponseWriter, r *http.Request) {
	code := room.NormalizeCode(r.PathValue("code"))
	if _, ok := h.rooms.Get(code); !ok {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(h.joinURL(r, code), qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("room_code", code).Msg("qr generation failed")
		http.Error(w, "QR generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// HandleRecentGames handles GET /api/games/recent?limit=N.
func (h *RoomHandler) HandleRecentGames(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeJSON(w, http.StatusOK, []history.GameRecord{})
		return
	}

	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRecentLimit)
	}

	recs, err := h.archive.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to load recent games")
		http.Error(w, "Failed to load recent games", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []history.GameRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *RoomHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /create-room", h.HandleCreateRoom)
	mux.HandleFunc("POST /create-game", h.HandleCreateRoom)
	mux.HandleFunc("GET /api/rooms/active", h.HandleGetActiveRooms)
	mux.HandleFunc("GET /api/rooms/{code}/state", h.HandleGetRoomState)
	mux.HandleFunc("GET /api/rooms/{code}/qr.png", h.HandleRoomQR)
	mux.HandleFunc("GET /api/games/recent", h.HandleRecentGames)
}

func (h *RoomHandler) joinURL(r *http.Request, code string) string {
	base := h.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?room=" + url.QueryEscape(code)
}

// RoomState snapshots the room registered under code.
func RoomState(rooms *room.Registry, code string) (room.State, bool) {
	rm, ok := rooms.Get(code)
	if !ok {
		return room.State{}, false
	}
	rm.Lock()
	defer rm.Unlock()
	if rm.Closed() {
		return room.State{}, false
	}
	return rm.Snapshot(rooms.Clock().Now()), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
