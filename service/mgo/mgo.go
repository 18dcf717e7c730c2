package mgo

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"linker/tools/errs"
)

const (
	defaultMaxPoolSize = 100
	defaultMaxRetry    = 3

	baseBackoff = 200 * time.Millisecond
	maxBackoff  = 5 * time.Second
)

// Config represents the MongoDB connection settings.
type Config struct {
	URI         string
	Database    string
	MaxPoolSize int
	MaxRetry    int
}

func (c *Config) setDefaults() error {
	if c.URI == "" {
		return errs.ErrArgs.WrapMsg("mongo uri is required")
	}
	if c.Database == "" {
		return errs.ErrArgs.WrapMsg("mongo database is required")
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = defaultMaxPoolSize
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = defaultMaxRetry
	}
	return nil
}

// Connect dials and pings MongoDB, retrying transient failures with backoff.
// Authentication failures are returned at once.
func Connect(ctx context.Context, cfg Config) (*mongo.Database, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	opts := options.Client().ApplyURI(cfg.URI).SetMaxPoolSize(uint64(cfg.MaxPoolSize))

	var (
		cli *mongo.Client
		err error
	)
	for attempt := 0; attempt < cfg.MaxRetry; attempt++ {
		cli, err = connect(ctx, opts)
		if err == nil || !shouldRetry(ctx, err) {
			break
		}
		timer := time.NewTimer(backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errs.WrapMsg(ctx.Err(), "mongo connect cancelled")
		case <-timer.C:
		}
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "failed to connect to MongoDB", "database", cfg.Database)
	}
	return cli.Database(cfg.Database), nil
}

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli, nil
}

// backoff doubles per attempt up to maxBackoff, minus up to 10% jitter.
func backoff(attempt int) time.Duration {
	if attempt > 6 {
		attempt = 6
	}
	d := baseBackoff << attempt
	if d > maxBackoff {
		d = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(d / 5)))
	return d - jitter/2
}

// shouldRetry is false for cancellation and auth errors (13 Unauthorized,
// 18 AuthenticationFailed).
func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code != 13 && cmdErr.Code != 18
	}
	return true
}
