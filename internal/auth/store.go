package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/edutest/internal/config"
	"github.com/stemsi/edutest/internal/model"
)

// Store persists the signed-in token and user across restarts.
type Store interface {
	Load(ctx context.Context) (string, *model.User, error)
	Save(ctx context.Context, token string, user *model.User) error
	Clear(ctx context.Context) error
}

// RedisStore keeps credentials under the auth cache keys. They carry no TTL;
// the token's own expiry governs.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Load(ctx context.Context) (string, *model.User, error) {
	vals, err := s.rdb.MGet(ctx, config.CacheKey.AuthTokenKey(), config.CacheKey.AuthUserKey()).Result()
	if err != nil {
		return "", nil, fmt.Errorf("get credentials: %w", err)
	}

	token, _ := vals[0].(string)
	raw, _ := vals[1].(string)
	if raw == "" {
		return token, nil, nil
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return token, nil, fmt.Errorf("decode stored user: %w", err)
	}
	return token, &user, nil
}

func (s *RedisStore) Save(ctx context.Context, token string, user *model.User) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, config.CacheKey.AuthTokenKey(), token, 0)
		if user == nil {
			pipe.Del(ctx, config.CacheKey.AuthUserKey())
			return nil
		}
		raw, err := json.Marshal(user)
		if err != nil {
			return err
		}
		pipe.Set(ctx, config.CacheKey.AuthUserKey(), raw, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, config.CacheKey.AuthTokenKey(), config.CacheKey.AuthUserKey()).Err(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// MemoryStore forgets credentials when the process exits.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	user  *model.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (string, *model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.user, nil
}

func (s *MemoryStore) Save(ctx context.Context, token string, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user = token, user
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user = "", nil
	return nil
}
