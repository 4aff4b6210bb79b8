// Package redis connects the Redis client shared by the resolution cache and
// progress notifications.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/stemyke/node-backend-sub000/data/config"
)

// ErrNotConfigured is returned when no address is set.
var ErrNotConfigured = errors.New("redis configuration is nil or empty")

// Enabled reports whether conf points at a server.
func Enabled(conf *config.Redis) bool {
	return conf != nil && conf.Addr != ""
}

// NewClient creates a client and pings it.
func NewClient(ctx context.Context, conf *config.Redis) (*redis.Client, error) {
	if !Enabled(conf) {
		return nil, ErrNotConfigured
	}

	rc := redis.NewClient(&redis.Options{
		Addr:         conf.Addr,
		Username:     conf.Username,
		Password:     conf.Password,
		DB:           conf.Db,
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
		DialTimeout:  conf.DialTimeout,
		PoolSize:     10,
	})

	timeout, cancel := context.WithTimeout(ctx, conf.DialTimeout)
	defer cancel()
	if err := rc.Ping(timeout).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis connect error: %w", err)
	}
	return rc, nil
}
