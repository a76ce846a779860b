package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"healthwatch/config"
	"healthwatch/internals/app"
	"healthwatch/internals/security"
	"healthwatch/internals/server"
	"healthwatch/pkg/logger"

	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	once := flag.Bool("once", false, "run a single check cycle and exit")
	issueToken := flag.String("issue-token", "", "print an API token for the given subject and exit")
	scopes := flag.String("scopes", security.ScopeRead+","+security.ScopeRunChecks, "comma separated scopes for -issue-token")
	flag.Parse()

	// Load config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if *issueToken != "" {
		if err := printToken(cfg, *issueToken, *scopes); err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		return
	}

	// SIGINT/SIGTERM cancel ctx
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// logger for the whole process
	logg, err := logger.Init(cfg)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	logg.Info().
		Int("targets", len(cfg.Targets)).
		Dur("check_interval", cfg.Monitoring.CheckInterval).
		Int("failure_threshold", cfg.Monitoring.FailureThreshold).
		Str("storage", cfg.Storage.Driver).
		Msg("configuration loaded")

	// wire stores, notifiers, engine and API
	container, err := app.NewContainer(ctx, cfg, logg)
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to initialize dependencies")
	}
	logg.Info().Msg("dependencies initialized")

	// Rebuild incident state and attach incidents left open by the last run
	loaded, err := container.Tracker.Load(ctx)
	if err != nil {
		_ = container.Shutdown(context.Background())
		logg.Fatal().Err(err).Msg("failed to load incident history")
	}
	resumed := container.Engine.Reconcile(ctx)
	logg.Info().Int("incidents", loaded).Int("resumed", resumed).Msg("incident state restored")

	container.AlertSvc.Start()

	if cfg.Notification.StartupCheck {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Notification.SendTimeout)
		if err := container.Notifier.Ping(pingCtx); err != nil {
			logg.Warn().Err(err).Msg("notification channel check failed, continuing")
		} else {
			logg.Info().Msg("notification channels reachable")
		}
		cancel()
	}

	if *once {
		container.Engine.RunCycle(context.WithoutCancel(ctx))
		shutdown(container, logg)
		return
	}

	// status API serves in the background until shutdown
	var srv *server.Server
	var srvErr <-chan error
	if cfg.API.Enabled {
		router := app.RegisterRoutes(container)
		srv = server.New(cfg.API.Addr, router, logg)
		srvErr = srv.Start()
	}

	// start scheduler; it returns once ctx is done and the running cycle has finished
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		container.Scheduler.Run(ctx)
	}()

	// block until a signal or a server failure
	select {
	case <-ctx.Done():
		logg.Info().Msg("shutdown signal received")
	case err := <-srvErr:
		if err != nil {
			logg.Error().Err(err).Msg("HTTP server failed, shutting down")
		}
		stop()
	}

	// stop the API first so no manual run can start while the scheduler winds down
	if srv != nil {
		if err := srv.Shutdown(context.Background()); err != nil {
			logg.Error().Err(err).Msg("server shutdown failed")
		}
	}

	<-schedDone

	// drain alerts, flush incidents and release infra
	shutdown(container, logg)
}

func shutdown(c *app.Container, logg *zerolog.Logger) {
	c.AlertSvc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Tracker.Flush(ctx); err != nil {
		logg.Error().Err(err).Msg("some incidents could not be persisted")
	}

	stats := c.Tracker.Statistics()
	alerts := c.AlertSvc.Stats()
	logg.Info().
		Int("total", stats.Total).
		Int("active", stats.Active).
		Int("resolved", stats.Resolved).
		Float64("mean_duration_seconds", stats.MeanDurationSeconds).
		Float64("min_duration_seconds", stats.MinDurationSeconds).
		Float64("max_duration_seconds", stats.MaxDurationSeconds).
		Int64("alerts_sent", alerts.Sent).
		Int64("alerts_failed", alerts.Failed).
		Int64("alerts_suppressed", alerts.Suppressed).
		Msg("final incident statistics")

	if err := c.Shutdown(ctx); err != nil {
		logg.Error().Err(err).Msg("dependencies shutdown failed")
	}

	logg.Info().Msg("graceful shutdown complete")
}

func printToken(cfg *config.Config, subject, scopes string) error {
	ts, err := security.NewTokenService(&cfg.Auth)
	if err != nil {
		return err
	}

	var list []string
	for _, s := range strings.Split(scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}

	token, err := ts.GenerateAccessToken(subject, list...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}
