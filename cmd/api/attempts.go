package main

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/trainer-hub/internal/auth"
	"github.com/yourusername/trainer-hub/internal/config"
	"github.com/yourusername/trainer-hub/internal/logger"
)

// setupAttemptStore はログイン試行回数の保存先を選びます。
// LIMITER_REDIS_URL が空ならプロセス内メモリを使います。
func setupAttemptStore(cfg *config.Config, log *logger.Logger) (auth.AttemptStore, func(), error) {
	policy := auth.AttemptPolicy{
		MaxAttempts:  cfg.LoginMaxAttempts,
		Window:       cfg.LoginWindow(),
		LockDuration: cfg.LoginLockDuration(),
	}

	if cfg.LimiterRedisURL == "" {
		return auth.NewMemoryAttemptStore(policy), func() {}, nil
	}

	opt, err := redis.ParseURL(cfg.LimiterRedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	log.Infow("login attempts are shared through redis", "addr", opt.Addr)
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warnw("failed to close redis client", "err", err)
		}
	}
	return auth.NewRedisAttemptStore(client, policy), closeFn, nil
}
