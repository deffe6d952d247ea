package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/bigvision-74/SimCollectiveERP-sub000/internal/directory"
	"github.com/bigvision-74/SimCollectiveERP-sub000/internal/notification"
	"github.com/bigvision-74/SimCollectiveERP-sub000/internal/patient"
	"github.com/bigvision-74/SimCollectiveERP-sub000/internal/realtime"
	"github.com/bigvision-74/SimCollectiveERP-sub000/internal/session"
	"github.com/bigvision-74/SimCollectiveERP-sub000/internal/ward"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/auth"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/config"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/database"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/monitoring"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/repository"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.CreateSchema(context.Background()); err != nil {
		logger.Fatalf("Failed to create database schema: %v", err)
	}

	metrics := monitoring.NewMetricsCollector("simulation-service")
	validator := auth.NewTokenValidator(&cfg.JWT)

	// Repositories
	userRepo := repository.NewUserRepository(db.DB, logger)
	patientRepo := repository.NewPatientRepository(db.DB, logger)
	sessionRepo := session.NewRepository(db.DB, logger)
	wardRepo := ward.NewRepository(db.DB, logger)

	// Realtime hub and push pipeline
	hub := realtime.NewHub(&cfg.Realtime, logger, metrics)
	sender := notification.NewFCMSender(&cfg.Push, logger)
	dispatcher := notification.NewDispatcher(userRepo, sender, logger, metrics)

	// Core services
	reconciler := session.NewReconciler(hub, userRepo, logger, metrics)
	sessionService := session.NewService(sessionRepo, userRepo, patientRepo, hub, reconciler, dispatcher, logger)
	wardService := ward.NewService(wardRepo, userRepo, hub, dispatcher, logger)
	directoryService := directory.NewService(userRepo, validator, logger)
	patientService := patient.NewService(patientRepo, sessionRepo, hub, logger)

	// Every session-room membership change triggers a reconciliation so
	// all room members converge on the same participant list.
	hub.SetRoomEventHandler(func(connID, roomID string, joined bool) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sessionID := strings.TrimPrefix(roomID, types.SessionRoomPrefix)
		sess, err := sessionRepo.GetByID(ctx, sessionID)
		if err != nil {
			logger.WithRoom(roomID).WithError(err).Warn("Skipping reconciliation for unknown session room")
			return
		}
		if _, err := reconciler.Reconcile(ctx, roomID, sess.OrgID); err != nil {
			logger.WithRoom(roomID).WithError(err).Error("Reconciliation failed")
		}
	})

	// HTTP assembly
	router := mux.NewRouter()
	router.Use(metrics.HTTPMiddleware)

	health := monitoring.NewHealthManager("simulation-service")
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))
	health.RegisterChecker("realtime", monitoring.NewCustomHealthChecker(func(ctx context.Context) monitoring.HealthCheck {
		conns, err := hub.ListAllConnections()
		if err != nil {
			return monitoring.HealthCheck{
				Status:  monitoring.HealthStatusUnhealthy,
				Message: fmt.Sprintf("Hub unavailable: %v", err),
			}
		}
		return monitoring.HealthCheck{
			Status:  monitoring.HealthStatusHealthy,
			Details: map[string]interface{}{"active_connections": len(conns)},
		}
	}))

	router.Handle("/ws", realtime.NewHandler(hub, validator, &cfg.Realtime, logger))
	router.Handle("/health", health.HTTPHandler()).Methods("GET")

	if cfg.Monitoring.Enabled {
		router.Handle(cfg.Monitoring.MetricsPath, metrics.Handler()).Methods("GET")
	}

	public := router.PathPrefix("/api/v1").Subrouter()
	directoryService.RegisterPublicRoutes(public)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(validator.Middleware)
	sessionService.RegisterRoutes(api)
	wardService.RegisterRoutes(api)
	directoryService.RegisterRoutes(api)
	patientService.RegisterRoutes(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Infof("Starting Simulation Service on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start Simulation Service: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Simulation Service...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Simulation Service stopped")
}
