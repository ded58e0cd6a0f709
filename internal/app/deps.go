package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/events"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
)

const (
	rateLimitPrefix   = "vidtube:ratelimit"
	visitorTTL        = 10 * time.Minute
	mediaDeleteBudget = time.Minute
)

// buildDependencies wires together concrete implementations used by the HTTP handlers. The
// returned cleanup drains background work and releases clients, in that order.
func buildDependencies(ctx context.Context, client *mongo.Client, database *mongo.Database, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	users := repositories.NewMongoUserRepository(database)

	issuer := auth.NewTokenIssuer(cfg.Tokens.AccessSecret, cfg.Tokens.AccessTTL, cfg.Tokens.RefreshSecret, cfg.Tokens.RefreshTTL)
	sessions := auth.NewManager(issuer, users)

	objects, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}
	relay := media.NewRelay(objects, media.RelayOptions{
		Prober: media.NewFFProbe(cfg.Media.FFProbePath, cfg.Media.FFProbeTimeout),
		Fitter: media.ImageFitter{
			MaxWidth:  cfg.Media.MaxImageWidth,
			MaxHeight: cfg.Media.MaxImageHeight,
		},
		Logger:             logger,
		BreakerMaxFailures: cfg.Media.BreakerMaxFailures,
		BreakerCooldown:    cfg.Media.BreakerCooldown,
		DeleteWorkers:      cfg.Media.DeleteWorkers,
		DeleteQueueSize:    cfg.Media.DeleteQueueSize,
		DeleteTimeout:      mediaDeleteBudget,
	})

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Events.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, logger)
		logger.Info("publishing domain events", "brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
	}

	var (
		limiter     middleware.RateLimiter
		redisClient *redis.Client
	)
	if cfg.RateLimit.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		limiter = middleware.NewRedisRateLimiter(redisClient, rateLimitPrefix, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		logger.Info("using shared rate limiter", "addr", cfg.RateLimit.RedisAddr)
	} else {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, visitorTTL)
	}

	deps := handlers.Dependencies{
		Users:          users,
		Sessions:       sessions,
		Videos:         repositories.NewMongoVideoRepository(database),
		Tweets:         repositories.NewMongoTweetRepository(database),
		Subscriptions:  repositories.NewMongoSubscriptionRepository(database),
		Media:          relay,
		Stash:          media.Stash{Dir: cfg.Uploads.TempDir},
		Events:         publisher,
		Health:         db.Health{Client: client},
		RateLimiter:    limiter,
		SecureCookies:  cfg.Tokens.SecureCookies,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
	}

	cleanup := func(ctx context.Context) error {
		var errs []error
		if err := relay.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain media deletes: %w", err))
		}
		if err := publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event publisher: %w", err))
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
		}
		return errors.Join(errs...)
	}

	return deps, cleanup, nil
}
