package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"space-booking-backend/config"
	"space-booking-backend/internal/api"
	"space-booking-backend/internal/db"
	"space-booking-backend/internal/gateway"
	"space-booking-backend/internal/notification"
	"space-booking-backend/internal/payment"
	"space-booking-backend/internal/refund"
	"space-booking-backend/internal/reservation"
	"space-booking-backend/internal/store"
	"space-booking-backend/internal/sweeper"
)

func main() {
	logger := log.New(os.Stdout, "space-booking ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Gateway.ServerKey == "" {
		logger.Fatalf("gateway.server_key must be configured; it authenticates inbound webhooks")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	dispatcher := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
	dispatcher.Start(ctx)

	gatewayClient := gateway.NewHTTPClient(&cfg.Gateway)

	reservationSvc := reservation.NewService(appStore, dispatcher)
	refundAutomation := refund.NewAutomation(appStore, gatewayClient)
	reservationSvc.SetRefunder(refundAutomation)
	paymentOrchestrator := payment.NewOrchestrator(appStore, gatewayClient, dispatcher, cfg.Gateway.ServerKey, cfg.Gateway.FeePercent)

	sweepSvc := sweeper.NewService(&cfg.Sweeper, appStore, reservationSvc, refundAutomation)
	go sweepSvc.Run(ctx)

	router := api.NewRouter(&cfg.Server, appStore, reservationSvc, paymentOrchestrator, refundAutomation)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
