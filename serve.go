package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/diary-be/internal/api"
	"github.com/isdelr/diary-be/internal/auth"
	"github.com/isdelr/diary-be/internal/config"
	"github.com/isdelr/diary-be/internal/database"
	"github.com/isdelr/diary-be/internal/logger"
	"github.com/isdelr/diary-be/internal/metrics"
	"github.com/isdelr/diary-be/internal/monitoring"
	"github.com/isdelr/diary-be/internal/services"
	"github.com/isdelr/diary-be/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	backend, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open storage").Wrap(err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, backend); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
		}
	}

	hasher, err := auth.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	issuer, err := auth.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return err
	}

	m := metrics.New()

	// Set up WebSocket Hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := websocket.NewHub(m)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()

	userService := services.NewUserService(backend.Users(), hasher, issuer, m)
	diaryService := services.NewDiaryService(backend.Users(), backend.Entries(), hub, m)

	// Set up and run the background stats updater
	statUpdater := monitoring.NewStatUpdater(cfg.DataDir, cfg.StatsInterval, m)
	go statUpdater.Run()

	var scheduler *monitoring.Scheduler
	if cfg.MaintenanceSchedule != "" {
		scheduler, err = monitoring.NewScheduler(backend, cfg.MaintenanceSchedule, m)
		if err != nil {
			statUpdater.Stop()
			stopHub()
			return err
		}
		scheduler.Start()
	}

	router := api.NewRouter(api.Deps{
		Users:        userService,
		Diary:        diaryService,
		Verifier:     issuer,
		Hub:          hub,
		Store:        backend,
		Stats:        statUpdater,
		Metrics:      m,
		CORSOrigins:  cfg.CORSOrigins,
		CookieSecure: cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("storage", backend.Name()).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var listenErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server...")
	case listenErr = <-serveErr:
		if listenErr != nil {
			log.Error().Err(listenErr).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	statUpdater.Stop()
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}

	err = srv.Shutdown(shutdownCtx)
	stopHub()
	<-hubDone
	if listenErr != nil {
		return oops.Code("SERVER_FAILED").With("port", cfg.ServerPort).Wrap(listenErr)
	}
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exiting")
	return nil
}
