package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"linker/tools/errs"
)

const pingTimeout = 3 * time.Second

// Config is used to open a Redis client.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Open builds a client and pings it once. The caller owns the client and
// must Close it.
func Open(ctx context.Context, c Config) (*redis.Client, error) {
	if c.Addr == "" {
		return nil, errs.ErrArgs.WrapMsg("redis addr is empty")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	})

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errs.WrapMsg(err, "redis ping", "addr", c.Addr)
	}
	return rdb, nil
}
