package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"nestkey/server/config"
	"nestkey/server/internal/api"
	"nestkey/server/internal/database"
	"nestkey/server/internal/notify"
	"nestkey/server/internal/payment"
	"nestkey/server/internal/realtime"
	"nestkey/server/internal/reconcile"
	"nestkey/server/internal/workflow"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", cfg.DatabasePath)

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	hub := realtime.NewHub(64, logger)
	defer hub.Close()

	notifier := notify.NewNotifier(db, hub, logger)
	gateway := payment.NewClient(cfg.Payment.SecretKey, cfg.Payment.BaseURL, logger)

	engine, err := workflow.NewEngine(db, gateway, notifier, cfg.CustodianID, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize transaction workflow")
	}

	sweeper := reconcile.NewSweeper(db, cfg.CustodianID,
		time.Duration(cfg.Reconcile.Interval)*time.Second,
		time.Duration(cfg.Reconcile.PendingExpiry)*time.Second,
		logger)
	sweeper.Start()
	defer sweeper.Stop()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}))

	handler := api.NewHandler(engine, db, hub, cfg.JWTSecret, logger)
	api.SetupRoutes(router, handler)

	logger.Infof("Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
