package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/marketplace-checkout/internal/checkout/domain"
)

var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionStore keeps checkout sessions as JSON with a sliding TTL. A session not
// touched within the TTL is abandoned.
//
// Payment details are stored unmasked, card number and CVV included, for as long
// as the session lives. Only the HTTP view and the placed Order mask them.
type SessionStore struct {
	log     *slog.Logger
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewSessionStore(log *slog.Logger, rdb *redis.Client, ttl, lockTTL time.Duration) *SessionStore {
	return &SessionStore{log: log, rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

func sessionKey(id string) string { return "checkout:session:" + id }
func lockKey(id string) string    { return "checkout:lock:" + id }

func (s *SessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(sess.ID), raw, s.ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

// Lock takes the per-session lock used to serialize step submissions. The lock
// expires after lockTTL if the holder never releases it.
func (s *SessionStore) Lock(ctx context.Context, id string) (func(), error) {
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, lockKey(id), token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("lock session %s: %w", id, err)
	}
	if !ok {
		return nil, domain.ErrStepInProgress
	}

	unlock := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseLock.Run(ctx, s.rdb, []string{lockKey(id)}, token).Err(); err != nil {
			s.log.Warn("session unlock failed", "session_id", id, "err", err)
		}
	}
	return unlock, nil
}
