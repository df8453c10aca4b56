package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys expire well past the inactivity window so an abandoned session
// cannot linger in redis forever.
const redisSessionTTL = 24 * time.Hour

// RedisStore is the durable SessionStore backend: in-flight orders survive
// a process restart. Selected with SESSION_BACKEND=redis.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func sessionKey(identity string) string {
	return "session:" + identity
}

func (r *RedisStore) Get(ctx context.Context, identity string) (*Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session %s: %w", identity, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", identity, err)
	}
	return &s, nil
}

func (r *RedisStore) GetOrCreate(ctx context.Context, identity string) (*Session, error) {
	fresh, err := json.Marshal(newSession(identity, 1))
	if err != nil {
		return nil, err
	}
	// SetNX makes creation atomic: the loser of a race reads the winner's
	// session instead of initializing a second one.
	if err := r.rdb.SetNX(ctx, sessionKey(identity), fresh, redisSessionTTL).Err(); err != nil {
		return nil, fmt.Errorf("create session %s: %w", identity, err)
	}
	return r.Get(ctx, identity)
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.Identity, err)
	}
	if err := r.rdb.Set(ctx, sessionKey(s.Identity), data, redisSessionTTL).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", s.Identity, err)
	}
	return nil
}

func (r *RedisStore) Reset(ctx context.Context, identity string) error {
	old, err := r.Get(ctx, identity)
	if err != nil {
		return err
	}
	var seq uint64
	if old != nil {
		seq = old.Seq
	}
	return r.Save(ctx, newSession(identity, seq+1))
}
