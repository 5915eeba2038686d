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

	"papum-backend/config"
	"papum-backend/database"
	"papum-backend/handlers"
	"papum-backend/logger"
	"papum-backend/middleware"
	"papum-backend/realtime"
	"papum-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.L.Error("❌ Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logger.L.Error("❌ Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Connect to Redis (optional, won't crash if unavailable)
	var rdb *redis.Client
	if cfg.RealtimeBackend == "redis" || cfg.GeminiAPIKey != "" {
		rdb = database.ConnectRedis(cfg.RedisURL)
		if rdb != nil {
			defer rdb.Close()
		}
	}

	notifier, err := openNotifier(cfg, db, rdb)
	if err != nil {
		return err
	}
	defer notifier.Close()

	notifications := services.NewNotificationService(store, pushSender(ctx, cfg), emailSender(cfg), cfg.AppName)
	invitations := services.NewInvitationService(store, notifications, cfg.InviteLink)
	advisor := services.NewAdvisor(textGenerator(ctx, cfg), rdb, cfg.TipCacheTTL)

	h := handlers.New(handlers.Deps{
		Config:        cfg,
		Store:         store,
		Notifier:      notifier,
		Notifications: notifications,
		Invitations:   invitations,
		Advisor:       advisor,
	})

	// Setup router
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	h.Register(r, handlers.Middleware{
		Auth:      middleware.AuthRequired(cfg.JWTSecret),
		AuthLimit: middleware.NewRateLimiter(time.Second, 10).Middleware(),
		TipLimit:  middleware.NewRateLimiter(30*time.Second, 3).Middleware(),
	})

	// Start server
	addr := "0.0.0.0:" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.L.Info(fmt.Sprintf("🚀 %s server starting", cfg.AppName), "addr", addr,
		"store", cfg.StoreBackend, "realtime", cfg.RealtimeBackend)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.L.Info("🛑 Shutting down")
	// Close live streams first so Shutdown does not wait on them
	notifier.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config) (database.Store, *gorm.DB, error) {
	if cfg.StoreBackend == "memory" {
		logger.L.Warn("⚠️  Using in-memory store, data is lost on restart")
		return database.NewMemoryStore(), nil, nil
	}
	db, err := database.Connect(cfg.DatabaseURL, cfg.LogLevel == "debug")
	if err != nil {
		return nil, nil, err
	}
	return database.NewGormStore(db), db, nil
}

func openNotifier(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (realtime.Notifier, error) {
	switch cfg.RealtimeBackend {
	case "redis":
		if rdb != nil {
			return realtime.NewRedisNotifier(rdb), nil
		}
		logger.L.Warn("⚠️  Redis unavailable, live updates limited to this instance")
	case "postgres":
		n, err := realtime.NewPostgresNotifier(db, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("start postgres notifier: %w", err)
		}
		return n, nil
	}
	return realtime.NewMemoryHub(), nil
}

func pushSender(ctx context.Context, cfg *config.Config) services.PushSender {
	if cfg.FirebaseCredPath == "" {
		logger.L.Warn("⚠️  FIREBASE_CREDENTIALS not set, push notifications disabled")
		return nil
	}
	sender, err := services.NewFCMSender(ctx, cfg.FirebaseCredPath)
	if err != nil {
		logger.L.Warn("⚠️  Firebase unavailable, push notifications disabled", "error", err)
		return nil
	}
	return sender
}

func emailSender(cfg *config.Config) services.EmailSender {
	if cfg.SendGridAPIKey == "" {
		logger.L.Warn("⚠️  SENDGRID_API_KEY not set, e-mails disabled")
		return nil
	}
	return services.NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridFrom, cfg.AppName)
}

func textGenerator(ctx context.Context, cfg *config.Config) services.TextGenerator {
	if cfg.GeminiAPIKey == "" {
		logger.L.Warn("⚠️  GEMINI_API_KEY not set, tips use the static fallback")
		return nil
	}
	gen, err := services.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.L.Warn("⚠️  Gemini unavailable, tips use the static fallback", "error", err)
		return nil
	}
	return gen
}
