// Package bootstrap wires the process-level collaborators the server needs.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mosaic/internal/cache"
	"mosaic/internal/config"
	"mosaic/internal/database"
	"mosaic/internal/events"
	"mosaic/internal/media"
	"mosaic/internal/middleware"
	"mosaic/internal/server"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema leaves the schema untouched, for tools that manage it themselves.
	SkipSchema bool
}

// Runtime holds the collaborators built by InitRuntime. Close releases the
// ones the server does not own.
type Runtime struct {
	Deps   server.Deps
	closer func() error
}

func (r *Runtime) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer()
}

// InitRuntime connects to the database and Redis, applies the schema, and
// builds the media store and the optional Kafka publisher.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if !opts.SkipSchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	// Redis is optional; an unreachable server leaves a nil client.
	rdb := cache.InitRedis(cfg.RedisURL)

	store, err := NewMediaStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Deps: server.Deps{DB: db, Redis: rdb, Media: store}}

	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		kp := events.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		rt.Deps.Events = kp
		rt.closer = kp.Close
		middleware.Logger.Info("Kafka event publishing enabled", "brokers", brokers, "topic", cfg.KafkaTopic)
	}

	return rt, nil
}

// NewMediaStore builds the store selected by MEDIA_BACKEND. The S3 bucket
// is created when missing.
func NewMediaStore(ctx context.Context, cfg *config.Config) (media.Store, error) {
	switch cfg.MediaBackend {
	case "", "local":
		store, err := media.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
		if err != nil {
			return nil, fmt.Errorf("local media store: %w", err)
		}
		return store, nil
	case "s3":
		store, err := media.NewS3Store(media.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, err
		}
		bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := store.EnsureBucket(bucketCtx); err != nil {
			return nil, fmt.Errorf("ensure bucket %q: %w", cfg.S3Bucket, err)
		}
		return store, nil
	default:
		return nil, errors.New("unknown media backend: " + cfg.MediaBackend)
	}
}
