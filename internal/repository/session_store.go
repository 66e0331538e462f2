package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// refreshKeyPrefix namespaces session entries; the full key is
// "refreshToken:<principalId>".
const refreshKeyPrefix = "refreshToken:"

// compareAndDeleteScript deletes the entry only if it still holds the
// presented token. Running it server-side closes the window where two
// concurrent refresh calls both pass a read-then-delete check.
var compareAndDeleteScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		redis.call('DEL', KEYS[1])
		return 1
	end
	return 0
`)

// SessionStore keeps the single currently-valid refresh token per principal
// in Redis. Every write fully overwrites the entry and carries a fresh TTL.
type SessionStore struct{ rdb *redis.Client }

func NewSessionStore(rdb *redis.Client) *SessionStore { return &SessionStore{rdb: rdb} }

// Save stores token as the sole live refresh token for the principal,
// replacing any prior entry. ttl must equal the token's own lifetime.
func (s *SessionStore) Save(ctx context.Context, principalID, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, refreshKeyPrefix+principalID, token, ttl).Err()
}

// Get returns the cached refresh token, or ErrNoSession when none exists.
func (s *SessionStore) Get(ctx context.Context, principalID string) (string, error) {
	v, err := s.rdb.Get(ctx, refreshKeyPrefix+principalID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	return v, err
}

// Delete removes the session entry. Absence is not an error, which makes
// logout idempotent.
func (s *SessionStore) Delete(ctx context.Context, principalID string) error {
	return s.rdb.Del(ctx, refreshKeyPrefix+principalID).Err()
}

// CompareAndDelete atomically removes the entry if it equals token and
// reports whether it did. A false return means the presented token is
// stale, replayed, or lost the race to a concurrent refresh.
func (s *SessionStore) CompareAndDelete(ctx context.Context, principalID, token string) (bool, error) {
	n, err := compareAndDeleteScript.Run(ctx, s.rdb, []string{refreshKeyPrefix + principalID}, token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
