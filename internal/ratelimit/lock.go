package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/outreach/internal/signup/domain"
)

const (
	keyDispatchLock = "outreach:dispatch:%s:%d"

	lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`
)

var ErrLockHeld = errors.New("Dispatch already in progress")

// Locker serialises dispatch of one stage to one signup across processes.
type Locker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
}

func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
	}
}

func (l *Locker) TryLock(ctx context.Context, key string) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release deletes key only while it still holds token.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// AcquireDispatch locks (stage, id). The returned release func is safe to call
// once the item is finished. A nil Locker always succeeds.
func (l *Locker) AcquireDispatch(ctx context.Context, stage domain.Stage, id int64) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf(keyDispatchLock, stage, id)
	token, ok, err := l.TryLock(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func() {
		_ = l.Release(context.WithoutCancel(ctx), key, token)
	}, nil
}
