package handler

import (
	"log"
	"net/http"

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

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	// Serverless instances only log to stdout
	logger, err := logging.New(cfg.Env, "")
	if err != nil {
		log.Fatalf("could not initialize logger: %v", err)
	}

	db, err := database.Open(cfg.DatabaseURL, cfg.DataPath)
	if err != nil {
		logger.Fatal("could not open database", zap.Error(err))
	}
	if _, err := auth.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Error("could not ensure admin user", zap.Error(err))
	}

	// No retry sweeper here: instances are short-lived, failed
	// notifications are retried through the API
	notifier := notifications.NewService(db, notifications.LogDispatcher{Logger: logger}, logger,
		cfg.Notifications.MaxRetries, cfg.Notifications.DefaultChannels)

	gin.SetMode(gin.ReleaseMode)
	r = handlers.NewRouter(&handlers.Handler{
		DB:                db,
		Engine:            scheduler.New(cfg.SchedulerOptions()),
		Auth:              auth.New(cfg.JWTSecret, cfg.MasterSecret),
		Notifier:          notifier,
		Logger:            logger,
		GenerationTimeout: cfg.Engine.GenerationTimeout,
	})
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, r_req *http.Request) {
	r.ServeHTTP(w, r_req)
}
