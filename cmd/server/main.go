package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	echoapi "github.com/gramforge/gramcast/api/echo"
	"github.com/gramforge/gramcast/cache"
	"github.com/gramforge/gramcast/config"
	"github.com/gramforge/gramcast/internal/server"
	"github.com/gramforge/gramcast/log"
	"github.com/gramforge/gramcast/mtproto"
	"github.com/gramforge/gramcast/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	appLogger := log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting gramcast server", map[string]any{
		"http_port": cfg.HTTPPort,
		"backends":  len(cfg.Backends),
		"log_level": logLevel.String(),
	})

	// The backend pool is fixed at startup; refusing to start without at
	// least one valid backend is the contract.
	pool, err := cache.NewBackendPool(cfg.Backends)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize Redis backend pool", err)
	}
	defer pool.Close()

	rotator := cache.NewRotator(pool, appLogger)
	if err := pool.Ping(ctx, rotator.Index()); err != nil {
		// Not fatal: backends can come back, and rotation may move on.
		appLogger.Warn(ctx, "Active Redis backend unreachable at startup", map[string]any{
			"backend": rotator.Index() + 1,
			"error":   err.Error(),
		})
	}
	store := cache.NewRedisSessionStore(rotator)
	connector := mtproto.NewGogramConnector(cfg.APIID, cfg.APIHash)

	authService := services.NewAuthService(store, connector, rotator, appLogger)
	dispatchService := services.NewDispatchService(store, connector, rotator, appLogger)

	api := echoapi.NewAPI(authService, dispatchService)
	httpServer := server.NewHTTPServer(cfg, appLogger, api)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(ctx, "HTTP server failed", err)
		}
	}()
	appLogger.Info(ctx, "HTTP server listening", map[string]any{"addr": httpServer.Addr})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info(ctx, "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(ctx, "Graceful shutdown failed", err)
	}
	appLogger.Info(ctx, "Server stopped")
}
