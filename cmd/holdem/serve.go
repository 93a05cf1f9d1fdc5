package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/Silozo17/homeholdem-sub001/internal/broadcast"
	"github.com/Silozo17/homeholdem-sub001/internal/config"
	"github.com/Silozo17/homeholdem-sub001/internal/server"
	"github.com/Silozo17/homeholdem-sub001/internal/store"
	"github.com/Silozo17/homeholdem-sub001/internal/store/memory"
	"github.com/Silozo17/homeholdem-sub001/internal/store/postgres"
	"github.com/Silozo17/homeholdem-sub001/internal/table"
	"github.com/Silozo17/homeholdem-sub001/internal/tournament"
)

// ServeCmd runs the HTTP API, websocket gateway and tournament scheduler
type ServeCmd struct {
	Config string `short:"c" default:"holdem.hcl" help:"HCL configuration file"`
	Env    string `default:".env" help:"dotenv file loaded before the configuration"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	if err := config.LoadDotEnv(c.Env); err != nil {
		return err
	}
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	timing, err := cfg.ParsedTiming()
	if err != nil {
		return err
	}
	logger := newLogger(cli.Debug, cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	bus, closeBus, err := openBus(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	manager := table.NewManager(table.Options{
		Store:          st,
		Publisher:      bus,
		Logger:         logger,
		ActionTimeout:  timing.ActionTimeout,
		RunoutDelay:    timing.RunoutDelay,
		SilenceTimeout: 3 * timing.HeartbeatInterval,
	})
	if _, err := manager.Restore(ctx); err != nil {
		return fmt.Errorf("restore tables: %w", err)
	}
	if err := createTables(ctx, manager, cfg.Tables, logger); err != nil {
		return err
	}

	controller := tournament.NewController(manager, tournament.Options{Logger: logger, AutoDeal: true})
	if err := scheduleTournaments(controller, cfg.Tournaments); err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:           cfg.Address(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		JWTSecret:      cfg.Auth.JWTSecret,
	}, manager, controller, bus, logger)

	logger.Info("Starting holdem server",
		"address", cfg.Address(),
		"tables", len(manager.Tables()),
		"tournaments", len(cfg.Tournaments),
		"action_timeout", timing.ActionTimeout,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx) })
	g.Go(func() error { return controller.Run(ctx, timing.TournamentTick) })
	g.Go(func() error {
		ticker := time.NewTicker(timing.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				manager.Sweep(ctx)
			}
		}
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (store.Store, func(), error) {
	if cfg.Database == nil || cfg.Database.URL == "" {
		logger.Warn("No database configured, state is kept in memory")
		return memory.New(), func() {}, nil
	}
	pool, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	pg := postgres.New(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}

func openBus(cfg *config.Config, logger *log.Logger) (server.Channel, func(), error) {
	if cfg.NATS == nil || cfg.NATS.URL == "" {
		bus := broadcast.NewMemoryBus()
		return bus, func() { _ = bus.Close() }, nil
	}
	bus, err := broadcast.ConnectNATS(broadcast.NATSConfig{
		URL:   cfg.NATS.URL,
		Token: cfg.NATS.Token,
		Name:  cfg.NATS.Name,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return bus, func() { _ = bus.Close() }, nil
}

// createTables opens configured tables that did not survive in the store
func createTables(ctx context.Context, manager *table.Manager, tables []config.TableConfig, logger *log.Logger) error {
	for _, tc := range tables {
		if _, err := manager.Get(tc.Name); err == nil {
			continue
		}
		interval, err := tc.Interval()
		if err != nil {
			return err
		}
		if _, err := manager.Create(ctx, table.Config{
			ID:            tc.Name,
			Name:          tc.Name,
			HostID:        table.System,
			MaxSeats:      tc.MaxSeats,
			SmallBlind:    tc.SmallBlind,
			BigBlind:      tc.BigBlind,
			Ante:          tc.Ante,
			BlindInterval: interval,
			BuyInMin:      tc.BuyInMin,
			BuyInMax:      tc.BuyInMax,
		}); err != nil {
			return fmt.Errorf("create table %q: %w", tc.Name, err)
		}
		logger.Info("Created table", "table", tc.Name)
	}
	return nil
}

func scheduleTournaments(controller *tournament.Controller, configs []config.TournamentConfig) error {
	for _, tc := range configs {
		start, err := time.Parse(time.RFC3339, tc.Start)
		if err != nil {
			return fmt.Errorf("tournament %q: start: %w", tc.Name, err)
		}
		level, err := time.ParseDuration(tc.LevelDuration)
		if err != nil {
			return fmt.Errorf("tournament %q: level_duration: %w", tc.Name, err)
		}
		payouts, err := tc.PayoutTable()
		if err != nil {
			return fmt.Errorf("tournament %q: %w", tc.Name, err)
		}
		buyIn, err := tc.BuyInAmount()
		if err != nil {
			return fmt.Errorf("tournament %q: %w", tc.Name, err)
		}
		if err := controller.Schedule(tournament.Config{
			ID:            tc.Name,
			Name:          tc.Name,
			Start:         start,
			TableSize:     tc.TableSize,
			StartingStack: tc.StartingStack,
			SmallBlind:    tc.SmallBlind,
			BigBlind:      tc.BigBlind,
			LevelDuration: level,
			BuyIn:         buyIn,
			Payouts:       payouts,
		}); err != nil {
			return err
		}
		for _, p := range tc.Players {
			if err := controller.Register(tc.Name, p); err != nil {
				return fmt.Errorf("tournament %q: register %s: %w", tc.Name, p, err)
			}
		}
	}
	return nil
}
