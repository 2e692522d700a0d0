package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"profilegate/internal/upstream"
)

// RedisStore keeps the same records as FileStore under prefixed keys. Session
// keys expire with the session max age; the block key expires with the
// block itself.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	sessionTTL time.Duration
	sealer     *Sealer
}

// NewRedisClient connects and pings with a short timeout.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("state: redis ping %s: %w", addr, err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, prefix string, sessionTTL time.Duration, sealer *Sealer) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, sessionTTL: sessionTTL, sealer: sealer}
}

func (r *RedisStore) sessionKey(identity string) string { return r.prefix + "session:" + identity }

func (r *RedisStore) blockKey() string { return r.prefix + "global_block" }

func (r *RedisStore) LoadSession(ctx context.Context, identity string) (*upstream.Session, error) {
	val, err := r.client.Get(ctx, r.sessionKey(identity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, upstream.ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(identity, val, r.sealer)
}

func (r *RedisStore) SaveSession(ctx context.Context, s *upstream.Session) error {
	data, err := encodeSession(s, r.sealer)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.sessionKey(s.Identity), data, r.sessionTTL).Err()
}

func (r *RedisStore) DeleteSession(ctx context.Context, identity string) error {
	return r.client.Del(ctx, r.sessionKey(identity)).Err()
}

func (r *RedisStore) LoadGlobalBlock(ctx context.Context) (time.Time, error) {
	val, err := r.client.Get(ctx, r.blockKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	var rec blockRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return time.Time{}, fmt.Errorf("state: decode global block: %w", err)
	}
	return rec.GlobalBlockUntil, nil
}

func (r *RedisStore) SaveGlobalBlock(ctx context.Context, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return r.client.Del(ctx, r.blockKey()).Err()
	}
	data, err := json.Marshal(blockRecord{GlobalBlockUntil: until})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.blockKey(), data, ttl).Err()
}

func (r *RedisStore) Close() error { return r.client.Close() }
