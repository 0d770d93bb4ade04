package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Blacklist хранит идентификаторы (jti) отозванных токенов до истечения их срока.
type Blacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisBlacklist - общий для всех инстансов список отзыва.
type RedisBlacklist struct {
	client *redis.Client
	prefix string
}

// NewRedisBlacklist подключается к Redis и проверяет соединение.
func NewRedisBlacklist(ctx context.Context, opts *redis.Options) (*RedisBlacklist, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBlacklist{client: client, prefix: "token:revoked:"}, nil
}

func (b *RedisBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, b.prefix+jti, 1, ttl).Err()
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, b.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *RedisBlacklist) Close() error {
	return b.client.Close()
}

// MemoryBlacklist - список отзыва внутри процесса, используется без Redis.
// Все записи живут maxTTL: не меньше срока жизни любого выданного токена.
type MemoryBlacklist struct {
	lru *expirable.LRU[string, struct{}]
}

func NewMemoryBlacklist(size int, maxTTL time.Duration) *MemoryBlacklist {
	return &MemoryBlacklist{lru: expirable.NewLRU[string, struct{}](size, nil, maxTTL)}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.lru.Add(jti, struct{}{})
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	return b.lru.Contains(jti), nil
}
