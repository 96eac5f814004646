// Package app assembles the orchestrator: store, launcher, notifier,
// dispatch loops, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/prdflow/internal/config"
	"git.home.luguber.info/inful/prdflow/internal/dispatch"
	"git.home.luguber.info/inful/prdflow/internal/launcher"
	"git.home.luguber.info/inful/prdflow/internal/logfields"
	"git.home.luguber.info/inful/prdflow/internal/notify"
	"git.home.luguber.info/inful/prdflow/internal/server/handlers"
	"git.home.luguber.info/inful/prdflow/internal/server/httpserver"
	"git.home.luguber.info/inful/prdflow/internal/store"
)

// App owns the orchestrator's long-lived components.
type App struct {
	cfg       *config.Config
	store     *store.SQLStore
	bus       *notify.EventBus
	notifier  *notify.Notifier
	scheduler *dispatch.Scheduler
	server    *httpserver.Server
}

// New builds the component graph from configuration. Nothing starts running
// until Start.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	var bus *notify.EventBus
	if cfg.NATSURL != "" {
		bus, err = notify.NewEventBus(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			// The bus is an optional fanout; a dead broker must not keep
			// builds from running.
			slog.Warn("Event bus unavailable, continuing without it",
				logfields.URL(cfg.NATSURL),
				logfields.Error(err))
			bus = nil
		}
	}

	notifier := notify.New(st, notify.Options{
		NotifierURL: cfg.NotifierURL,
		Bearer:      cfg.NotifierBearer,
		Bus:         bus,
	})

	var l launcher.Launcher
	if cfg.DryRun {
		l = launcher.NewDryRun()
	} else {
		l, err = launcher.NewCloudRun(ctx, cfg.RunProject, cfg.RunRegion, cfg.RunJobName,
			cfg.OrchestratorURL, cfg.WebhookSecret)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to init cloud run launcher: %w", err)
		}
	}

	scheduler, err := dispatch.NewScheduler()
	if err != nil {
		st.Close()
		return nil, err
	}

	dispatcher := dispatch.NewDispatcher(st, l, notifier, cfg.MaxConcurrent)
	if err := scheduler.AddDispatchTick(ctx, dispatcher, cfg.PollInterval); err != nil {
		st.Close()
		return nil, err
	}
	recovery := dispatch.NewRecovery(st, cfg.StaleAfter)
	if err := scheduler.AddRecoverySweep(ctx, recovery, cfg.RecoveryInterval); err != nil {
		st.Close()
		return nil, err
	}

	server := httpserver.New(cfg.Addr(), cfg.WebhookSecret, handlers.New(st, notifier))

	return &App{
		cfg:       cfg,
		store:     st,
		bus:       bus,
		notifier:  notifier,
		scheduler: scheduler,
		server:    server,
	}, nil
}

// Start brings up the fanout pool, the periodic loops, and the HTTP listener.
func (a *App) Start(ctx context.Context) error {
	a.notifier.Start()
	a.scheduler.Start()
	if err := a.server.Start(ctx); err != nil {
		return err
	}
	slog.Info("Orchestrator started",
		slog.String("addr", a.cfg.Addr()),
		slog.Bool("dry_run", a.cfg.DryRun))
	return nil
}

// Stop shuts down in reverse order: drain the listener first so no new work
// arrives, then the loops, then the store.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if err := a.server.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.scheduler.Stop(); err != nil {
		errs = append(errs, err)
	}
	a.notifier.Stop()
	if a.bus != nil {
		a.bus.Close()
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	slog.Info("Orchestrator stopped")
	return nil
}
