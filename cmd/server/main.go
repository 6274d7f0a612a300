package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handler "idea-incubator-backend/api"
	"idea-incubator-backend/pkg/config"
	"idea-incubator-backend/pkg/database"
	"idea-incubator-backend/pkg/jobs"
	"idea-incubator-backend/pkg/logging"
	"idea-incubator-backend/pkg/metrics"
	customMiddleware "idea-incubator-backend/pkg/middleware"
	"idea-incubator-backend/pkg/realtime"
	"idea-incubator-backend/pkg/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Logger().WithError(err).Fatal("❌ Failed to load configuration")
	}
	logging.Configure(logging.Options{Level: cfg.LogLevel, JSON: cfg.IsProduction()})
	log := logging.Component("server")

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("❌ Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(ctx, handler.DatabaseConfig(cfg))
	if err != nil {
		log.WithError(err).Fatal("❌ Failed to connect to database")
	}
	defer db.Close()

	if pg, ok := db.(*database.PostgresDatabase); ok && cfg.AutoMigrate {
		if err := database.RunMigrations(pg.DB()); err != nil {
			log.WithError(err).Fatal("❌ Failed to run migrations")
		}
	}

	opts := services.OptionsFromConfig(cfg)
	wsOrigins, _ := customMiddleware.ResolveOrigins(cfg)
	hub := realtime.NewHub(realtime.HubOptions{
		Authenticate: func(token string) (string, error) {
			claims, err := opts.JWT.ValidateAccessToken(token)
			if err != nil {
				return "", err
			}
			return claims.UserID, nil
		},
		AllowedOrigins: wsOrigins,
		OnDrop:         metrics.RecordRealtimeDrop,
	})
	defer hub.Close()
	var notifier realtime.Notifier = hub

	if cfg.RedisURL != "" {
		relay, err := realtime.NewRedisNotifier(cfg.RedisURL, cfg.RedisChannel, hub)
		if err != nil {
			log.WithError(err).Fatal("❌ Invalid REDIS_URL")
		}
		if err := relay.Ping(ctx); err != nil {
			log.WithError(err).Warn("⚠️ Redis unreachable, events stay on this instance until it recovers")
		}
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("❌ Redis relay stopped")
			}
		}()
		notifier = relay
		log.WithField("channel", cfg.RedisChannel).Info("📡 Realtime events relayed through Redis")
	}

	svc := services.New(db, notifier, opts)
	limiter := customMiddleware.NewRateLimiter(cfg.RateLimitPerMinute)

	scheduler := jobs.NewScheduler(time.Minute)
	if err := scheduler.Add(jobs.JobTaskReminders, cfg.ReminderSchedule, jobs.Reminders(svc.Startups)); err != nil {
		log.WithError(err).Fatal("❌ Invalid REMINDER_SCHEDULE")
	}
	if err := scheduler.Add(jobs.JobLimiterCleanup, "@every 5m", jobs.Cleanup(limiter)); err != nil {
		log.WithError(err).Fatal("❌ Failed to schedule limiter cleanup")
	}
	scheduler.Start()

	router := handler.NewRouter(cfg, handler.Dependencies{
		DB:          db,
		Services:    svc,
		RateLimiter: limiter,
		Realtime:    hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).WithField("environment", cfg.Environment).Info("🚀 Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("❌ Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("❌ HTTP shutdown incomplete")
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("⚠️ Jobs still running at shutdown")
	}
}
