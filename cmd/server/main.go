package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neiios/dam-project-server/internal/api"
	"github.com/neiios/dam-project-server/internal/app/scheduler"
	"github.com/neiios/dam-project-server/internal/app/service"
	"github.com/neiios/dam-project-server/internal/app/worker"
	"github.com/neiios/dam-project-server/internal/common/security"
	"github.com/neiios/dam-project-server/internal/domain/repository"
	"github.com/neiios/dam-project-server/internal/platform/config"
	"github.com/neiios/dam-project-server/internal/platform/database"
	"github.com/neiios/dam-project-server/internal/platform/geocoding"
	"github.com/neiios/dam-project-server/internal/platform/metrics"
	"github.com/neiios/dam-project-server/internal/platform/queue"
)

const (
	cityLockKey        = "lock:conference_city_backfill"
	cityRescanBatch    = 100
	startupTimeout     = 30 * time.Second
	gracefulShutdownIn = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var logHandler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDevelopment() {
		logHandler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)
	logger.Info("Configuration loaded", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := security.NewTokenAuth([]byte(cfg.JWTSecret), cfg.JWTExp)
	if err != nil {
		return err
	}

	// 2. Database and Redis
	startupCtx, cancelStartup := context.WithTimeout(ctx, startupTimeout)
	defer cancelStartup()

	db, err := database.Connect(startupCtx, cfg.DBConnStr())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(startupCtx, db); err != nil {
		return err
	}
	logger.Info("Database connected and migrated")

	rdb, err := queue.Connect(startupCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()
	logger.Info("Redis connected", "addr", cfg.RedisAddr)

	// 3. Repositories and services
	userRepo := repository.NewPgUserRepository(db)
	confRepo := repository.NewPgConferenceRepository(db)
	trackRepo := repository.NewPgTrackRepository(db)
	articleRepo := repository.NewPgArticleRepository(db)
	questionRepo := repository.NewPgQuestionRepository(db)

	m := metrics.New()
	geocoder := geocoding.NewCachedGeocoder(
		geocoding.NewNominatimClient(geocoding.NominatimConfig{
			BaseURL:   cfg.GeocoderURL,
			UserAgent: cfg.GeocoderUserAgent,
			Timeout:   cfg.GeocoderTimeout,
			RPS:       cfg.GeocoderRPS,
		}),
		rdb,
		cfg.GeocodeCacheTTL,
	)
	cityQueue := queue.NewIDQueue(rdb, cfg.CityQueueName)

	svc := api.Services{
		Auth:       service.NewAuthService(userRepo, tokens),
		Conference: service.NewConferenceService(db, confRepo, trackRepo, articleRepo, questionRepo, geocoder, cityQueue, m),
		Track:      service.NewTrackService(db, confRepo, trackRepo, articleRepo, questionRepo),
		Article:    service.NewArticleService(confRepo, trackRepo, articleRepo),
		Question:   service.NewQuestionService(questionRepo, confRepo, articleRepo, m),
	}

	if cfg.SeedAdmin() {
		if err := svc.Auth.EnsureAdmin(startupCtx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
		logger.Info("Admin account ensured", "email", cfg.AdminEmail)
	}

	// 4. Background work
	cityWorker := worker.NewCityBackfillWorker(rdb, cityQueue, svc.Conference, cityLockKey)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		cityWorker.Start(ctx)
	}()

	sched := scheduler.New(logger)
	if err := sched.AddCityRescan(cfg.CityBackfillSchedule, svc.Conference, cityRescanBatch); err != nil {
		return err
	}
	if cfg.OrphanSweepSchedule != "" {
		if err := sched.AddOrphanSweep(cfg.OrphanSweepSchedule, svc.Question); err != nil {
			return err
		}
	}
	sched.Start()

	// 5. HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      api.NewRouter(tokens, svc, m),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		sched.Stop()
		<-workerDone
		return err
	case <-ctx.Done():
	}

	// 6. Graceful shutdown
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownIn)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	sched.Stop()
	<-workerDone
	if shutdownErr != nil {
		return shutdownErr
	}
	logger.Info("Server and background jobs stopped gracefully")
	return nil
}
