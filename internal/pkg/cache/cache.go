package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/Lernhub/internal/pkg/env"
)

// Options describes the connection to the Redis compatible server backing the job queue.
type Options struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// OptionsFromEnv reads CACHE_HOST, CACHE_PORT and CACHE_PASSWORD.
func OptionsFromEnv() Options {
	return Options{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     env.GetEnv("CACHE_PORT", "6379"),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetInt("CACHE_DB", 0),
	}
}

// Addr returns host:port.
func (o Options) Addr() string {
	return fmt.Sprintf("%s:%s", o.Host, o.Port)
}

// NewClient connects to the cache server and checks the connection once.
// A failed ping is logged, not fatal; go-redis reconnects lazily.
func NewClient(ctx context.Context, opts Options) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr(),
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pong, err := client.Ping(pingCtx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to %s: %v", opts.Addr(), err)
	} else {
		log.Infof("[Cache] Successfully connected to %s: %s", opts.Addr(), pong)
	}
	return client
}

// Ping reports whether the server answers.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return fmt.Errorf("cache client not configured")
	}
	return client.Ping(ctx).Err()
}
