package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const responseCachePrefix = "idempotency:"

// ResponseCacheStore keeps serialized HTTP responses for idempotent replay.
// Only finished responses are stored; no domain state is cached.
type ResponseCacheStore struct {
	client *redis.Client
}

// NewResponseCacheStore creates a new ResponseCacheStore.
func NewResponseCacheStore(client *redis.Client) *ResponseCacheStore {
	return &ResponseCacheStore{client: client}
}

// Get returns the stored response for key, or nil on a cache miss.
func (s *ResponseCacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, responseCachePrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}
	return data, nil
}

// Set stores a response for ttl.
func (s *ResponseCacheStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, responseCachePrefix+key, data, ttl).Err()
}
