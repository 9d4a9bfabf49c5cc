package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ TokenStore = (*redisTokenStore)(nil)

type redisTokenStore struct {
	logger *zap.Logger
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTokenStore provides a token store shared by all instances of the web
// client. Tokens expire after ttl, zero keeps them until logout.
func NewRedisTokenStore(logger *zap.Logger, client *redis.Client, ttl time.Duration) TokenStore {
	return &redisTokenStore{
		logger: logger,
		client: client,
		ttl:    ttl,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// Get retrieves the token of a visitor.
func (rs *redisTokenStore) Get(ctx context.Context, visitorID string) (string, error) {
	token, err := rs.client.Get(ctx, TokenKey(visitorID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	return token, err
}

// Set saves or replaces the token of a visitor.
func (rs *redisTokenStore) Set(ctx context.Context, visitorID, token string) error {
	return rs.client.Set(ctx, TokenKey(visitorID), token, rs.ttl).Err()
}

// Delete removes the token of a visitor.
func (rs *redisTokenStore) Delete(ctx context.Context, visitorID string) error {
	return rs.client.Del(ctx, TokenKey(visitorID)).Err()
}

// Close closes the underlying redis client.
func (rs *redisTokenStore) Close() error {
	return rs.client.Close()
}
