// Package idempotency deduplicates consumed Kafka messages by their position.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store marks message positions as processed in Redis. Keys are scoped by
// namespace, normally the consumer group, and expire after ttl.
type Store struct {
	rdb       *redis.Client
	namespace string
	ttl       time.Duration
}

func NewStore(rdb *redis.Client, namespace string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, namespace: namespace, ttl: ttl}
}

func (s *Store) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%s:%d:%d", s.namespace, topic, partition, offset)
}

// Seen claims key and reports whether an earlier call already had.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	claimed, err := s.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !claimed, nil
}

// Forget releases key so a replay of the message is handled again.
func (s *Store) Forget(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
