package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/artranslate/relay/internal/auth"
	"github.com/artranslate/relay/internal/config"
	"github.com/artranslate/relay/internal/metrics"
	"github.com/artranslate/relay/internal/relay"
	"github.com/artranslate/relay/internal/upstream"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load .env if present, then the layered configuration. Missing upstream
	// credentials are a startup failure, not a runtime one.
	godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize the upstream translator client; its HTTP transport is
	// shared across all connections.
	translator, err := upstream.NewClient(upstream.Config{
		APIKey:      cfg.Upstream.APIKey,
		URL:         cfg.Upstream.URL,
		MaxRetries:  cfg.Upstream.MaxRetries,
		BackoffBase: cfg.Upstream.GetBackoffBase(),
		Timeout:     cfg.Upstream.GetTimeout(),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize upstream client", zap.Error(err))
	}

	// Optional session-token gate on the WebSocket endpoint.
	var authenticator *auth.Authenticator
	if cfg.Auth.TokenSecret != "" {
		authenticator, err = auth.NewAuthenticator(cfg.Auth.TokenSecret)
		if err != nil {
			logger.Fatal("Failed to initialize authenticator", zap.Error(err))
		}
	}

	relayMetrics := metrics.New(prometheus.DefaultRegisterer)

	hub := relay.NewHub(relay.HubConfig{
		HeartbeatInterval: cfg.Server.GetHeartbeatInterval(),
		HeartbeatTimeout:  cfg.Server.GetHeartbeatTimeout(),
	}, translator, relayMetrics, logger)
	go hub.Run()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	relay.InitRoutes(e, hub, authenticator, prometheus.DefaultGatherer, logger)

	address := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Relay server started", zap.String("address", address))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.CloseAll()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
