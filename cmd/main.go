// @title Sports Competitions API
// @version 1.0
// @description Competitions, participations, teams, players, matches, groups and notifications.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/sports-competitions/config"
	"github.com/Dosada05/sports-competitions/db"
	_ "github.com/Dosada05/sports-competitions/docs"
	"github.com/Dosada05/sports-competitions/handlers"
	"github.com/Dosada05/sports-competitions/realtime"
	api "github.com/Dosada05/sports-competitions/routes"
	"github.com/Dosada05/sports-competitions/services"
	"github.com/Dosada05/sports-competitions/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("database", cfg.MongoDatabase))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к MongoDB
	manager := db.NewManager(db.Options{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		ConnectTimeout: cfg.DBConnectTimeout,
	}, logger)
	if _, err := manager.Connect(ctx); err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := manager.Close(closeCtx); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()

	data := services.NewDatabaseService(manager, logger)
	if err := data.Initialize(ctx); err != nil {
		logger.Error("failed to create indexes", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database initialized")

	// Инициализация загрузчика файлов (Cloudflare R2)
	var uploader storage.FileUploader
	if cfg.UploadsEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 settings incomplete, image uploads disabled")
	}

	// Инициализация WebSocket Hub
	hub := realtime.NewHub(logger)
	go hub.Run(ctx)
	data.Notifications().SetPublisher(hub)

	go runScheduler(ctx, data, cfg.CleanupInterval, cfg.NotificationRetentionDays, logger)

	access := services.NewAccessService(data)
	media := services.NewMediaService(uploader, cfg.R2PublicBaseURL, logger)
	notifier := services.NewNotifier(data.Notifications(), logger)
	authService := services.NewAuthService(data.Users(), data.VerificationTokens(), logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:          handlers.NewAuthHandler(authService, cfg.JWTSecretKey, logger),
		User:          handlers.NewUserHandler(data.Users(), media),
		Admin:         handlers.NewAdminUserHandler(data.Users(), data.Sessions()),
		Competition:   handlers.NewCompetitionHandler(data.Competitions(), data.Participations(), access, media),
		Participation: handlers.NewParticipationHandler(data.Participations(), data.Competitions(), access, notifier),
		Team:          handlers.NewTeamHandler(data.Teams(), data.Matches(), access, media),
		Player:        handlers.NewPlayerHandler(data.Players(), access),
		Match:         handlers.NewMatchHandler(data.Matches(), data.Teams(), access, notifier),
		Group:         handlers.NewGroupHandler(data.Groups(), access),
		Notification:  handlers.NewNotificationHandler(data.Notifications()),
		Dashboard:     handlers.NewDashboardHandler(data, cfg.NotificationRetentionDays),
		WebSocket:     handlers.NewWebSocketHandler(hub, cfg.CORSAllowedOrigins, logger),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}

// runScheduler purges expired sessions, tokens and old read notifications, and
// moves competitions along their dates. It runs once at start-up, then on
// every tick.
func runScheduler(ctx context.Context, data *services.DatabaseService, interval time.Duration, retentionDays int, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("maintenance scheduler started", slog.Duration("interval", interval))

	run := func() {
		report, err := data.Cleanup(ctx, retentionDays)
		if err != nil {
			logger.Error("scheduler: cleanup failed", slog.Any("error", err))
		} else {
			logger.Info("scheduler: cleanup done",
				slog.Int64("sessions", report.Sessions),
				slog.Int64("tokens", report.Tokens),
				slog.Int64("notifications", report.Notifications),
			)
		}
		updated, err := data.Competitions().AutoUpdateStatuses(ctx, time.Now())
		if err != nil {
			logger.Error("scheduler: status update failed", slog.Any("error", err))
		} else if updated > 0 {
			logger.Info("scheduler: competition statuses updated", slog.Int64("updated", updated))
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
