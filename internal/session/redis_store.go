package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as JSON under session:<hash> with a TTL, plus a
// per-user set so every session of a principal can be revoked at once.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) key(tokenHash string) string {
	return "session:" + tokenHash
}

func (s *RedisStore) userKey(userID uint) string {
	return fmt.Sprintf("session:user:%d", userID)
}

func (s *RedisStore) Create(ctx context.Context, tokenHash string, rec Record) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session: expiry must be in the future")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(tokenHash), data, ttl)
	pipe.SAdd(ctx, s.userKey(rec.UserID), tokenHash)
	pipe.Expire(ctx, s.userKey(rec.UserID), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Lookup(ctx context.Context, tokenHash string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Expired(s.now()) {
		return nil, nil
	}
	return &rec, nil
}

func (s *RedisStore) Revoke(ctx context.Context, tokenHash string) error {
	return s.client.Del(ctx, s.key(tokenHash)).Err()
}

func (s *RedisStore) RevokeUser(ctx context.Context, userID uint) error {
	hashes, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, s.key(h))
	}
	keys = append(keys, s.userKey(userID))
	return s.client.Del(ctx, keys...).Err()
}

// Purge is a no-op, Redis expires keys on its own.
func (s *RedisStore) Purge(context.Context) (int64, error) {
	return 0, nil
}
