// Command main is the entry point for the Mosaic backend server.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mosaic/internal/bootstrap"
	"mosaic/internal/config"
	"mosaic/internal/middleware"
	"mosaic/internal/observability"
	"mosaic/internal/server"
)

// @title Mosaic API
// @version 1.0
// @description Photo and video sharing API with follows, likes, comments and a paginated feed
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@mosaic.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:3000
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token. Browsers use the token cookie instead.

func main() {
	if err := run(); err != nil {
		middleware.Logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "mosaic-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return err
	}

	rt, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		return err
	}

	srv, err := server.NewServerWithDeps(cfg, rt.Deps)
	if err != nil {
		return err
	}

	// Graceful shutdown
	done := make(chan error, 1)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		middleware.Logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		done <- errors.Join(
			srv.Shutdown(ctx),
			rt.Close(),
			shutdownTracing(ctx),
		)
	}()

	if err := srv.Start(); err != nil {
		return err
	}
	return <-done
}
