package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "login_attempts:"

// AttemptPolicy はログイン失敗回数の制限設定です。
type AttemptPolicy struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

// DefaultAttemptPolicy は 15 分以内に 5 回失敗すると 10 分ロックします。
var DefaultAttemptPolicy = AttemptPolicy{
	MaxAttempts:  5,
	Window:       15 * time.Minute,
	LockDuration: 10 * time.Minute,
}

func (p AttemptPolicy) normalized() AttemptPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultAttemptPolicy.MaxAttempts
	}
	if p.Window <= 0 {
		p.Window = DefaultAttemptPolicy.Window
	}
	if p.LockDuration <= 0 {
		p.LockDuration = DefaultAttemptPolicy.LockDuration
	}
	return p
}

// AttemptStore はキー（クライアント IP）ごとのログイン失敗回数を管理します。
type AttemptStore interface {
	// LockedFor はロック中なら残り時間を、そうでなければ 0 を返します。
	LockedFor(ctx context.Context, key string) (time.Duration, error)
	// RecordFailure は失敗を記録し、ロックまでの残り回数を返します。
	RecordFailure(ctx context.Context, key string) (int, error)
	Reset(ctx context.Context, key string) error
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// MemoryAttemptStore はプロセス内で失敗回数を保持します。
type MemoryAttemptStore struct {
	policy    AttemptPolicy
	lock      sync.Mutex
	attempts  map[string]*attemptState
	lastPrune time.Time
	now       func() time.Time
}

// NewMemoryAttemptStore は MemoryAttemptStore を作成します。
func NewMemoryAttemptStore(policy AttemptPolicy) *MemoryAttemptStore {
	return &MemoryAttemptStore{
		policy:   policy.normalized(),
		attempts: make(map[string]*attemptState),
		now:      time.Now,
	}
}

func (s *MemoryAttemptStore) LockedFor(_ context.Context, key string) (time.Duration, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	state, ok := s.attempts[key]
	if !ok {
		return 0, nil
	}
	now := s.now()
	if !now.Before(state.lockedUntil) {
		return 0, nil
	}
	return state.lockedUntil.Sub(now), nil
}

func (s *MemoryAttemptStore) RecordFailure(_ context.Context, key string) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.now()
	if now.Sub(s.lastPrune) >= s.policy.Window {
		s.prune(now)
	}

	state, ok := s.attempts[key]
	if !ok || now.Sub(state.firstAttempt) > s.policy.Window {
		state = &attemptState{firstAttempt: now}
		s.attempts[key] = state
	}

	state.count++
	if state.count >= s.policy.MaxAttempts {
		// ロック解除後は再び最初から数える
		state.lockedUntil = now.Add(s.policy.LockDuration)
		state.count = 0
		state.firstAttempt = state.lockedUntil
		return 0, nil
	}
	return s.policy.MaxAttempts - state.count, nil
}

// prune は期間もロックも切れたエントリを削除します。呼び出し側でロックを取ってください。
func (s *MemoryAttemptStore) prune(now time.Time) {
	for key, state := range s.attempts {
		if !now.Before(state.lockedUntil) && now.Sub(state.firstAttempt) > s.policy.Window {
			delete(s.attempts, key)
		}
	}
	s.lastPrune = now
}

func (s *MemoryAttemptStore) Reset(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.attempts, key)
	return nil
}

// RedisAttemptStore は複数インスタンスで失敗回数を共有するために Redis を使います。
type RedisAttemptStore struct {
	rdb    *redis.Client
	policy AttemptPolicy
}

// NewRedisAttemptStore は RedisAttemptStore を作成します。
func NewRedisAttemptStore(rdb *redis.Client, policy AttemptPolicy) *RedisAttemptStore {
	return &RedisAttemptStore{
		rdb:    rdb,
		policy: policy.normalized(),
	}
}

func (s *RedisAttemptStore) LockedFor(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.rdb.PTTL(ctx, lockKey(key)).Result()
	if err != nil {
		return 0, err
	}
	// キーが無い場合 go-redis は負の値を返す
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *RedisAttemptStore) RecordFailure(ctx context.Context, key string) (int, error) {
	ck := countKey(key)

	// INCR と期限設定を同じトランザクションで送り、TTL の無いカウンタを残さない。
	// 期間は最初の失敗から数える（EXPIRE NX は Redis 7 以降）
	var incr *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, ck)
		pipe.ExpireNX(ctx, ck, s.policy.Window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	count := incr.Val()

	if int(count) < s.policy.MaxAttempts {
		return s.policy.MaxAttempts - int(count), nil
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, lockKey(key), 1, s.policy.LockDuration)
		pipe.Del(ctx, ck)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return 0, nil
}

func (s *RedisAttemptStore) Reset(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, countKey(key), lockKey(key)).Err()
}

func countKey(key string) string {
	return attemptKeyPrefix + "count:" + key
}

func lockKey(key string) string {
	return attemptKeyPrefix + "lock:" + key
}
