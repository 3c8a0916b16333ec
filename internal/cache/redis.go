package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis is a Cache backed by a Redis server. Keys are namespaced with Prefix.
type Redis struct {
	Client *redis.Client
	Prefix string
	// OpTimeout bounds each round trip.
	OpTimeout time.Duration
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects to Redis and pings it once. A failed ping is logged and
// the client is returned anyway; the cache then degrades to misses.
func NewRedis(ctx context.Context, opts RedisOptions) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("redis ping failed; cache will miss until it recovers")
	}
	return &Redis{Client: client, Prefix: "streakbot:", OpTimeout: 2 * time.Second}
}

func (r *Redis) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	t := r.OpTimeout
	if t <= 0 {
		t = 2 * time.Second
	}
	return context.WithTimeout(parent, t)
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	b, err := r.Client.Get(ctx, r.Prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("cache get failed")
		}
		return nil, false
	}
	return b, true
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	if err := r.Client.Set(ctx, r.Prefix+key, value, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Close releases the client's connections.
func (r *Redis) Close() error { return r.Client.Close() }
