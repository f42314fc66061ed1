package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/havenstay/authsession"
	"github.com/havenstay/authsession/identity"
	"github.com/havenstay/authsession/internal/config"
	"github.com/havenstay/authsession/session"
)

// OpenStore builds the session store selected by cfg. The returned cleanup
// releases backend resources and is never nil.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*session.Store, func(), error) {
	var (
		backend session.Backend
		cleanup = func() {}
	)

	switch cfg.Backend {
	case config.BackendMemory, "":
		backend = session.NewMemoryBackend()
	case config.BackendFile:
		backend = session.NewFileBackend(cfg.Dir)
	case config.BackendSQLite:
		b, err := session.OpenSQLiteBackend(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, cleanup, err
		}
		backend = b
		cleanup = func() { _ = b.Close() }
	case config.BackendRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		backend = session.NewRedisBackend(client, cfg.Redis.Prefix)
		cleanup = func() { _ = client.Close() }
	case config.BackendMiniredis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, cleanup, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		backend = session.NewRedisBackend(client, cfg.Redis.Prefix)
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		logger.Info("using in-process miniredis", "addr", mr.Addr())
	default:
		return nil, cleanup, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	return session.NewStore(backend, session.WithKey(cfg.Key), session.WithLogger(logger)), cleanup, nil
}

// NewIdentity builds the identity service selected by cfg.
func NewIdentity(cfg config.IdentityConfig, logger *slog.Logger) (identity.Service, error) {
	switch cfg.Mode {
	case config.IdentityMock, "":
		mock, err := NewMock(cfg, logger)
		if err != nil {
			return nil, err
		}
		return mock, nil
	case config.IdentityHTTP:
		client, err := identity.NewClient(identity.ClientConfig{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Social:  cfg.Social,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown identity mode %q", cfg.Mode)
}

// NewMock builds the in-process identity backend from cfg.
func NewMock(cfg config.IdentityConfig, logger *slog.Logger) (*identity.Mock, error) {
	var key []byte
	if cfg.SigningKey != "" {
		key = []byte(cfg.SigningKey)
	}
	return identity.NewMock(identity.MockConfig{
		Latency:    cfg.Latency,
		TokenTTL:   cfg.TokenTTL,
		SigningKey: key,
		Logger:     logger,
	})
}

// Manager assembles and starts a session manager, waiting up to timeout
// for the persisted session to be restored.
func Manager(ctx context.Context, cfg authsession.Config, store *session.Store, svc identity.Service, sink authsession.NotificationSink, logger *slog.Logger, timeout time.Duration) (*authsession.Manager, error) {
	m, err := authsession.New().
		WithConfig(cfg).
		WithStore(store).
		WithIdentity(svc).
		WithNotificationSink(sink).
		WithLogger(logger).
		Build()
	if err != nil {
		return nil, err
	}

	m.Start(ctx)
	select {
	case <-m.Ready():
		return m, nil
	case <-time.After(timeout):
		m.Close()
		return nil, fmt.Errorf("session restore did not finish within %s", timeout)
	case <-ctx.Done():
		m.Close()
		return nil, ctx.Err()
	}
}
