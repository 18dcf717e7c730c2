package mgo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"

	"linker/tools/errs"
)

func TestConfigDefaults(t *testing.T) {
	c := Config{URI: "mongodb://localhost:27017", Database: "linker"}
	assert.NoError(t, c.setDefaults())
	assert.Equal(t, defaultMaxPoolSize, c.MaxPoolSize)
	assert.Equal(t, defaultMaxRetry, c.MaxRetry)

	_, err := Connect(context.Background(), Config{Database: "linker"})
	assert.True(t, errs.ErrArgs.Is(err))
}

func TestBackoffBounded(t *testing.T) {
	for attempt := 0; attempt < 40; attempt++ {
		d := backoff(attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, maxBackoff)
	}
	assert.LessOrEqual(t, backoff(0), baseBackoff)
}

func TestShouldRetry(t *testing.T) {
	ctx := context.Background()
	assert.True(t, shouldRetry(ctx, errors.New("connection refused")))
	assert.False(t, shouldRetry(ctx, mongo.CommandError{Code: 18}))
	assert.True(t, shouldRetry(ctx, mongo.CommandError{Code: 11600}))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, shouldRetry(cancelled, errors.New("x")))
}
