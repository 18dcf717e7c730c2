package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"linker/tools/errs"
)

const presencePrefix = "linker:presence:"

// PresenceKey is the key a relay node mirrors its online count to.
func PresenceKey(nodeID string) string { return presencePrefix + nodeID }

// RedisPresence mirrors the online count of one relay node. The TTL removes
// the key when the node dies without calling Offline.
type RedisPresence struct {
	rdb redis.UniversalClient
	key string
	ttl time.Duration
}

func NewRedisPresence(rdb redis.UniversalClient, nodeID string, ttl time.Duration) *RedisPresence {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisPresence{rdb: rdb, key: PresenceKey(nodeID), ttl: ttl}
}

// TTL is the expiry written with each Online call.
func (p *RedisPresence) TTL() time.Duration { return p.ttl }

func (p *RedisPresence) Online(ctx context.Context, count int) error {
	if err := p.rdb.Set(ctx, p.key, count, p.ttl).Err(); err != nil {
		return errs.WrapMsg(err, "presence set", "key", p.key)
	}
	return nil
}

func (p *RedisPresence) Offline(ctx context.Context) error {
	if err := p.rdb.Del(ctx, p.key).Err(); err != nil {
		return errs.WrapMsg(err, "presence del", "key", p.key)
	}
	return nil
}

// Lookup reads the mirrored count of nodeID.
func (p *RedisPresence) Lookup(ctx context.Context, nodeID string) (count int, online bool, err error) {
	val, err := p.rdb.Get(ctx, PresenceKey(nodeID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errs.WrapMsg(err, "presence get")
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, errs.WrapMsg(err, "presence value", "value", val)
	}
	return n, true, nil
}
