package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/pricegame/go/internal/config"
)

const serviceName = "pricegame"

func setupServer(cfg config.Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// Game routes: websocket, room API, Connect RPC
	services.Gateway.RegisterRoutes(mux)

	setupHealthCheck(mux)
	setupInfo(mux, services)
	setupStatic(mux, cfg.Server.StaticDir)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h2c.NewHandler(handler, &http2.Server{}),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

func setupInfo(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("GET /info", func(w http.ResponseWriter, r *http.Request) {
		stats := services.Gateway.GetStats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"service":     serviceName,
			"rooms":       services.Rooms.Len(),
			"connections": stats.TotalConnections,
			"seated":      services.Sessions.Seated(),
			"event_bus":   services.Mirror != nil,
		})
	})
}

func setupStatic(mux *http.ServeMux, dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		log.Warn().Err(err).Str("static_dir", dir).Msg("static directory unavailable, not serving client files")
		return
	}
	mux.Handle("GET /", http.FileServer(http.Dir(dir)))
}
