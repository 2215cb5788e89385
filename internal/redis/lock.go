package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLockScript deletes the lock only while it still carries the
// caller's token, so an expired holder cannot free a successor's lock.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireOrderLock attempts to take the assignment lock for an order.
// Returns the holder token and true if the lock was acquired, false if
// already held.
func (s *LockStore) AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, orderLockKey(orderID), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

// ReleaseOrderLock releases the assignment lock for an order if token still
// holds it. Releasing a lock that expired or changed hands is a no-op.
func (s *LockStore) ReleaseOrderLock(ctx context.Context, orderID, token string) error {
	return releaseLockScript.Run(ctx, s.client, []string{orderLockKey(orderID)}, token).Err()
}

func orderLockKey(orderID string) string {
	return fmt.Sprintf("lock:order-assign:%s", orderID)
}
