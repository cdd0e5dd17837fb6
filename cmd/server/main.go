package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rankboard/portalgate/application/usecase"
	"github.com/rankboard/portalgate/infrastructure/config"
	"github.com/rankboard/portalgate/infrastructure/http/gateway"
	"github.com/rankboard/portalgate/infrastructure/persistence"
	"github.com/rankboard/portalgate/infrastructure/service/backend"
	"github.com/rankboard/portalgate/infrastructure/service/codec"
	"github.com/rankboard/portalgate/infrastructure/service/identity"
	"github.com/rankboard/portalgate/infrastructure/service/jwt"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
	"github.com/rankboard/portalgate/infrastructure/service/ratelimit"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "portalgate",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"version": version,
		"env":     cfg.Environment,
		"driver":  cfg.PersistenceDriver,
	})

	// Persistence space
	state, err := persistence.Open(ctx, cfg)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to open session storage", err, map[string]interface{}{
			"driver": cfg.PersistenceDriver,
		})
		log.Fatalf("Failed to open session storage: %v", err)
	}
	defer state.Close()

	session := usecase.NewSessionStore(state, codec.Codec{}, structuredLogger)
	if err := session.Init(ctx); err != nil {
		structuredLogger.Error(ctx, "Failed to load persisted session", err, nil)
		log.Fatalf("Failed to load persisted session: %v", err)
	}

	// Services
	tokenService, err := jwt.NewJWTService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}
	provider, err := identity.New(cfg, structuredLogger)
	if err != nil {
		log.Fatalf("Failed to initialize identity provider: %v", err)
	}
	rateLimiter, err := ratelimit.New(ctx, cfg, structuredLogger)
	if err != nil {
		structuredLogger.Warn(ctx, "Rate limiting disabled", map[string]interface{}{
			"error": err.Error(),
		})
		rateLimiter = ratelimit.NewNoopRateLimiter()
	}

	auth := usecase.NewAuthExchange(
		backend.NewLoginClient(cfg, structuredLogger),
		tokenService,
		session,
		provider,
		structuredLogger,
	)

	router, err := gateway.NewRouter(gateway.Dependencies{
		Config:           cfg,
		Logger:           structuredLogger,
		Auth:             auth,
		Session:          session,
		RateLimiter:      rateLimiter,
		BackendTransport: &backend.BearerTransport{Tokens: session},
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	server := gateway.NewServer(cfg.Address(), router, structuredLogger)
	go func() {
		if err := server.Start(ctx); err != nil {
			structuredLogger.Error(ctx, "Server failed to start", err, nil)
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}
