package oauth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "oauth_session:"

// RedisSessionStore is a SessionStore backed by Redis. TTL expiry is
// delegated to Redis and Take uses GETDEL, so single-use holds even
// when callbacks land on different replicas.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore connects to Redis at redisURL and verifies the
// connection.
func NewRedisSessionStore(ctx context.Context, redisURL string) (*RedisSessionStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisSessionStore{client: rdb}, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, state string, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.client.SetEx(ctx, redisSessionPrefix+state, data, SessionTTL).Err()
}

func (s *RedisSessionStore) Take(ctx context.Context, state string) (Session, error) {
	data, err := s.client.GetDel(ctx, redisSessionPrefix+state).Result()
	if err == redis.Nil {
		return Session{}, ErrSessionInvalid
	} else if err != nil {
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return sess, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, state string) error {
	return s.client.Del(ctx, redisSessionPrefix+state).Err()
}
