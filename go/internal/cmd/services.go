package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pricegame/go/clients"
	"github.com/mcdev12/pricegame/go/clients/fakestore_client"
	"github.com/mcdev12/pricegame/go/internal/config"
	"github.com/mcdev12/pricegame/go/internal/game/eventbus"
	"github.com/mcdev12/pricegame/go/internal/game/events"
	"github.com/mcdev12/pricegame/go/internal/game/gateway"
	"github.com/mcdev12/pricegame/go/internal/game/history"
	"github.com/mcdev12/pricegame/go/internal/game/orchestrator"
	"github.com/mcdev12/pricegame/go/internal/game/product"
	"github.com/mcdev12/pricegame/go/internal/game/room"
	"github.com/mcdev12/pricegame/go/internal/game/session"
)

type Services struct {
	Rooms        *room.Registry
	Gateway      *gateway.Service
	Orchestrator *orchestrator.Orchestrator
	Sessions     *session.Tracker
	Mirror       *eventbus.Mirror
	Archive      history.Archive

	closers []func()
}

func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	s := &Services{}

	// Registry
	s.Rooms = room.NewRegistry(
		room.WithTotalRounds(cfg.Game.TotalRounds),
		room.WithCodeLength(cfg.Game.CodeLength),
	)

	// Archive
	archive, err := setupArchive(ctx, cfg.DB)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Archive = archive

	// Gateway and notifier chain
	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.PublicURL = cfg.Server.PublicURL
	s.Gateway = gateway.NewService(gatewayConfig, s.Rooms, s.Archive)

	var notifier events.Notifier = s.Gateway.Notifier()
	if cfg.NATS.URL != "" {
		jsCfg := eventbus.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATS.URL
		jsCfg.StreamName = cfg.NATS.StreamName
		jsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix

		publisher, err := eventbus.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to set up event bus: %w", err)
		}
		s.closers = append(s.closers, func() { publisher.Close() })
		s.Mirror = eventbus.NewMirror(notifier, publisher, eventbus.DefaultQueueSize, s.Rooms.Clock())
		notifier = s.Mirror
		log.Info().Str("nats_url", cfg.NATS.URL).Str("stream", jsCfg.StreamName).Msg("event bus mirror enabled")
	}

	// Game
	s.Orchestrator = orchestrator.NewOrchestrator(s.Rooms, notifier, setupSupplier(cfg.Catalog, s.Rooms), orchestrator.Settings{
		GuessWindow:  cfg.Game.GuessWindow.Std(),
		RoundPause:   cfg.Game.RoundPause.Std(),
		FetchTimeout: cfg.Catalog.FetchTimeout.Std(),
		EmptyRoomTTL: cfg.Game.EmptyRoomTTL.Std(),
		ReapInterval: cfg.Game.ReapInterval.Std(),
		EnforceHost:  cfg.Game.EnforceHost,
	}, orchestrator.WithArchive(s.Archive))
	s.Sessions = session.NewTracker(s.Rooms, notifier)
	s.Gateway.SetHandler(gateway.NewDispatcher(s.Sessions, s.Orchestrator, notifier))

	return s, nil
}

func setupArchive(ctx context.Context, cfg config.DBConfig) (history.Archive, error) {
	if cfg.URL == "" {
		log.Info().Msg("no database configured, keeping game history in memory")
		return history.NewMemoryArchive(history.DefaultMemoryCapacity), nil
	}

	pg, err := history.NewPostgresArchive(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	log.Info().Msg("connected to database, archiving game results")
	return pg, nil
}

func setupSupplier(cfg config.CatalogConfig, rooms *room.Registry) product.Supplier {
	source := clients.ExternalSource(cfg.Source)
	client := fakestore_client.NewFakeStoreClient(clients.ResolveBaseURL(source, cfg.URL))
	client.SetTimeout(cfg.FetchTimeout.Std())

	var supplier product.Supplier = product.NewCatalogSupplier(client,
		product.WithCacheTTL(cfg.CacheTTL.Std()),
		product.WithCatalogClock(rooms.Clock()),
	)
	if cfg.Retries > 0 {
		supplier = product.NewRetryingSupplier(supplier, cfg.Retries, cfg.RetryBackoff.Std(), rooms.Clock())
	}

	log.Info().
		Str("source", string(source)).
		Str("base_url", client.BaseURL()).
		Int("retries", cfg.Retries).
		Msg("product catalog configured")
	return supplier
}

// Close releases external connections after the game has stopped.
func (s *Services) Close() {
	if s.Orchestrator != nil {
		s.Orchestrator.Close()
	}
	if pg, ok := s.Archive.(*history.PostgresArchive); ok {
		pg.Close()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
