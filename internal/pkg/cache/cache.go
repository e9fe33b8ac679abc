package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	fiberredis "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/AccessPass/internal/pkg/env"
)

// limiterDatabase keeps rate limiter counters apart from anything else in DB 0.
const limiterDatabase = 1

var client *redis.Client

// Options describes the Redis server. An empty Host means no Redis is used.
type Options struct {
	Host     string
	Port     int
	Password string
}

func OptionsFromEnv() Options {
	return Options{
		Host:     strings.TrimSpace(env.GetEnv("CACHE_HOST", "")),
		Port:     env.GetEnvInt("CACHE_PORT", 6379),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
	}
}

func (o Options) Enabled() bool {
	return o.Host != ""
}

func (o Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// SetupCache connects to Redis when CACHE_HOST is set. Without it the service
// runs with in-memory rate limiting and GetClient returns nil.
func SetupCache() {
	opts := OptionsFromEnv()
	if !opts.Enabled() {
		fiberlog.Info("[Cache] CACHE_HOST not set, running without Redis")
		client = nil
		return
	}

	client = redis.NewClient(&redis.Options{
		Addr:     opts.Addr(),
		Password: opts.Password,
		DB:       0,
	})

	pong, err := client.Ping(context.Background()).Result()
	if err != nil {
		fiberlog.Warnf("[Cache] Could not connect to Redis at %s: %v", opts.Addr(), err)
	} else {
		fiberlog.Infof("[Cache] Connected to Redis at %s: %s", opts.Addr(), pong)
	}
}

// GetClient returns the Redis client, or nil when none is configured.
func GetClient() *redis.Client {
	return client
}

// Ping checks the Redis connection. It is a no-op without Redis.
func Ping(ctx context.Context) error {
	if client == nil {
		return nil
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// NewLimiterStorage returns Redis-backed fiber storage for the rate limiter,
// or nil so the limiter falls back to its in-memory store.
func NewLimiterStorage(opts Options) fiber.Storage {
	if !opts.Enabled() {
		return nil
	}
	return fiberredis.New(fiberredis.Config{
		Host:     opts.Host,
		Port:     opts.Port,
		Password: opts.Password,
		Database: limiterDatabase,
		Reset:    false,
	})
}
