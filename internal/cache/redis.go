package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token, so a
// request whose lock expired cannot release a lock taken by another one.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes cancellations of the same booking across app
// instances.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(cfg config.RedisConfig) *RedisLocker {
	return &RedisLocker{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
	}
}

// NewRedisLockerFromClient wraps an existing client.
func NewRedisLockerFromClient(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// AcquireBookingLock returns a token when the lock was taken and "" when
// another holder owns it.
func (l *RedisLocker) AcquireBookingLock(ctx context.Context, bookingID uuid.UUID, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, bookingLockKey(bookingID), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire booking lock: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

func (l *RedisLocker) ReleaseBookingLock(ctx context.Context, bookingID uuid.UUID, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{bookingLockKey(bookingID)}, token).Err(); err != nil {
		return fmt.Errorf("release booking lock: %w", err)
	}
	return nil
}

func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

func bookingLockKey(bookingID uuid.UUID) string {
	return fmt.Sprintf("lock:booking:%s:cancel", bookingID)
}
