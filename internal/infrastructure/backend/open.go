// Package backend opens the ClientFactory selected by BACKEND_PROVIDER together with
// the connections it depends on.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/otp-auth-gateway/config"
	repo "github.com/oksasatya/otp-auth-gateway/internal/domain/repository"
	"github.com/oksasatya/otp-auth-gateway/internal/infrastructure/appwrite"
	"github.com/oksasatya/otp-auth-gateway/internal/infrastructure/memory"
	"github.com/oksasatya/otp-auth-gateway/internal/infrastructure/postgres"
	"github.com/oksasatya/otp-auth-gateway/internal/infrastructure/selfhosted"
	"github.com/oksasatya/otp-auth-gateway/pkg/helpers"
	"github.com/oksasatya/otp-auth-gateway/pkg/mailer"
)

// Backend is an opened ClientFactory and the resources it holds. Pool and Redis are nil
// when the provider does not use them.
type Backend struct {
	Clients repo.ClientFactory
	Pool    *pgxpool.Pool
	Redis   *redis.Client

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// Open connects the provider named by cfg.BackendProvider. Redis is optional for the
// appwrite and memory providers and is left nil when it cannot be reached.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Backend, error) {
	b := &Backend{}
	var err error
	switch cfg.BackendProvider {
	case config.ProviderAppwrite:
		b.Redis = optionalRedis(ctx, cfg, logger, b)
		b.Clients = appwrite.NewClient(appwrite.Config{
			Endpoint: cfg.AppwriteEndpoint,
			Project:  cfg.AppwriteProject,
			APIKey:   cfg.AppwriteAPIKey,
			Timeout:  cfg.AppwriteTimeout,
		})
	case config.ProviderSelfHosted:
		err = openSelfHosted(ctx, cfg, logger, b)
	case config.ProviderMemory:
		b.Redis = optionalRedis(ctx, cfg, logger, b)
		b.Clients = memory.NewBackend(cfg.OTPTTL, cfg.SessionTTL, func(email, code string) {
			logger.WithFields(logrus.Fields{"email": email, "code": code}).Debug("memory backend passcode issued")
		})
	default:
		err = fmt.Errorf("unknown BACKEND_PROVIDER %q", cfg.BackendProvider)
	}
	if err != nil {
		b.Close()
		return nil, err
	}
	logger.WithField("provider", cfg.BackendProvider).Info("backend ready")
	return b, nil
}

func openSelfHosted(ctx context.Context, cfg *config.Config, logger *logrus.Logger, b *Backend) error {
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	b.Pool = pool
	b.closers = append(b.closers, pool.Close)

	if cfg.MigrationsDir != "" {
		if err := postgres.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	b.closers = append(b.closers, func() { _ = rdb.Close() })
	if err := ping(ctx, rdb); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	b.Redis = rdb

	var pub mailer.Publisher
	if cfg.MailSendEnabled {
		rp, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		b.closers = append(b.closers, rp.Close)
		pub = rp
	}

	b.Clients = selfhosted.NewProvider(
		postgres.NewDocumentStore(pool),
		rdb,
		helpers.NewJWTManager(cfg.SessionSecret, cfg.SessionTTL, cfg.AppName),
		mailer.NewOTPDispatcher(pub, cfg, logger),
		logger,
		cfg.OTPTTL,
	)
	return nil
}

func optionalRedis(ctx context.Context, cfg *config.Config, logger *logrus.Logger, b *Backend) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := ping(ctx, rdb); err != nil {
		logger.WithError(err).Warn("redis unavailable; rate limiting disabled")
		_ = rdb.Close()
		return nil
	}
	b.closers = append(b.closers, func() { _ = rdb.Close() })
	return rdb
}

func ping(ctx context.Context, rdb *redis.Client) error {
	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := rdb.Ping(c).Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("ping %s: timed out", rdb.Options().Addr)
	}
	return err
}
