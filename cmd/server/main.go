package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/restaurant-scheduler-api/internal/config"
	"github.com/arnavshah/restaurant-scheduler-api/internal/logging"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/auth"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/database"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/handlers"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/notifications"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/scheduler"
)

func main() {
	// Load .env if it exists
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(cfg.GinMode)
	}

	logger, err := logging.New(cfg.Env, cfg.LogDir)
	if err != nil {
		log.Fatalf("could not initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg.DatabaseURL, cfg.DataPath)
	if err != nil {
		logger.Fatal("could not open database", zap.Error(err))
	}
	if created, err := auth.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Fatal("could not ensure admin user", zap.Error(err))
	} else if created {
		logger.Info("admin user created", zap.String("username", cfg.AdminUsername))
	}
	if cfg.JWTSecret == "" || cfg.MasterSecret == "" {
		logger.Warn("JWT_SECRET or API_MASTER_SECRET not set; tokens and API keys will not survive a restart")
	}

	notifier := notifications.NewService(db, notifications.LogDispatcher{Logger: logger}, logger,
		cfg.Notifications.MaxRetries, cfg.Notifications.DefaultChannels)
	sweeper, err := notifier.StartSweeper(cfg.Notifications.RetrySchedule)
	if err != nil {
		logger.Fatal("could not start notification sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	h := &handlers.Handler{
		DB:                db,
		Engine:            scheduler.New(cfg.SchedulerOptions()),
		Auth:              auth.New(cfg.JWTSecret, cfg.MasterSecret),
		Notifier:          notifier,
		Logger:            logger,
		GenerationTimeout: cfg.Engine.GenerationTimeout,
	}
	r := handlers.NewRouter(h)

	logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("could not run server", zap.Error(err))
	}
}
