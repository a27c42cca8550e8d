package wire

import (
	"context"
	"fmt"
	"time"

	"medious/internal/chat/handler"
	"medious/internal/common"
	"medious/internal/config"
	"medious/internal/dbmongo"
	"medious/internal/event"
	"medious/internal/feed"
	"medious/internal/media"
	"medious/internal/metrics"
	"medious/internal/notif"
	"medious/internal/ratelimit"
	"medious/internal/story"
	"medious/internal/user"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	notificationWorkers   = 4
	notificationQueueSize = 1000
	limiterCleanupEvery   = time.Minute
)

type Application struct {
	Config        *config.Config
	Logger        *zap.Logger
	Mongo         *dbmongo.MongoClient
	Metrics       *metrics.Metrics
	Tokens        *common.TokenManager
	Limiter       ratelimit.Limiter
	Notifications *notif.Service
	Sweeper       *story.Sweeper

	UserService  user.UserService
	UserHandler  *user.Handler
	FeedHandler  *feed.FeedHandlers
	EventHandler *event.Handler
	ChatHandler  *handler.ChatHandler
	StoryHandler *story.Handler
	MediaServer  *media.HTTPServer
}

func ProvideMongo(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dbmongo.MongoClient, func(), error) {
	mc, err := dbmongo.NewMongoConnection(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := dbmongo.EnsureIndexes(ctx, mc.Database); err != nil {
		_ = mc.Close(ctx)
		return nil, nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mc.Close(closeCtx); err != nil {
			logger.Warn("failed to close mongo connection", zap.Error(err))
		}
	}
	return mc, cleanup, nil
}

func ProvideTokenManager(cfg *config.Config) (*common.TokenManager, error) {
	return common.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Algorithm, cfg.TokenTTL())
}

func ProvideMailer(logger *zap.Logger) notif.Mailer {
	return notif.NewLogMailer(logger)
}

// ProvideNotificationService starts the worker pool with every observer subscribed.
func ProvideNotificationService(mailer notif.Mailer, m *metrics.Metrics, logger *zap.Logger) (*notif.Service, func()) {
	manager := notif.NewManager(notificationWorkers, notificationQueueSize, logger)
	manager.Subscribe(notif.NewLogObserver(logger))
	manager.Subscribe(notif.NewMetricsObserver(m))
	manager.Subscribe(notif.NewEmailObserver(mailer))

	svc := notif.NewService(manager, mailer, logger)
	return svc, svc.Shutdown
}

// ProvideLimiter prefers Redis when REDIS_ADDR is set and reachable, and
// returns nil when rate limiting is disabled.
func ProvideLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ratelimit.Limiter, func()) {
	if !cfg.RateLimit.Enabled {
		return nil, func() {}
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("using redis rate limiter", zap.String("addr", cfg.Redis.Addr))
			closeRedis := func() {
				if err := rdb.Close(); err != nil {
					logger.Warn("failed to close redis client", zap.Error(err))
				}
			}
			limit, window := redisQuota(cfg.RateLimit)
			return ratelimit.NewRedisLimiter(rdb, limit, window), closeRedis
		}
		logger.Warn("redis unavailable, falling back to in-memory rate limiter", zap.Error(err))
		_ = rdb.Close()
	}

	cleanupCtx, stop := context.WithCancel(ctx)
	limiter := ratelimit.NewMemoryLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	limiter.StartCleanup(cleanupCtx, limiterCleanupEvery)
	return limiter, stop
}

// redisQuota maps the token bucket settings onto a fixed window: Burst requests
// per Burst/RequestsPerSecond seconds keeps the configured average rate.
func redisQuota(rl config.RateLimitConfig) (int64, time.Duration) {
	rps, burst := rl.RequestsPerSecond, rl.Burst
	if rps <= 0 {
		rps = 1
	}
	if burst < rps {
		burst = rps
	}
	return int64(burst), time.Duration(burst) * time.Second / time.Duration(rps)
}

func ProvideStoryService(
	cfg *config.Config,
	stories story.StoryRepository,
	storage *dbmongo.MediaStorage,
	follows user.FollowRepository,
	users user.UserRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) story.StoryService {
	return story.NewStoryService(stories, storage, follows, users, cfg.Media.BaseURL, m, logger)
}

func ProvideStoryHandler(cfg *config.Config, svc story.StoryService, logger *zap.Logger) *story.Handler {
	return story.NewHandler(svc, cfg.Media.MaxUploadBytes, logger)
}

func ProvideSweeper(cfg *config.Config, svc story.StoryService, logger *zap.Logger) *story.Sweeper {
	return story.NewSweeper(svc, cfg.Media.StorySweepInterval, logger)
}
