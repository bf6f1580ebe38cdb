// Package store contains the redis backed chat history
package store

import (
	"context"
	"fmt"
	"time"

	"bitwise74/labyrinth-api/config"

	"github.com/redis/go-redis/v9"
)

// NewRedis connects to the redis instance from cfg and makes sure it answers
func NewRedis(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis, %w", err)
	}

	return rdb, nil
}
