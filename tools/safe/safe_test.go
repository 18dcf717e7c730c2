package safe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"linker/tools/errs"
)

func TestCallRecoversPanic(t *testing.T) {
	err := Call(func() error { panic("boom") })
	assert.Error(t, err)
	assert.Equal(t, errs.ServerInternalError, errs.Code(err))

	assert.NoError(t, Call(func() error { return nil }))
}

func TestGoRecovers(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	Go("test", func() {
		defer wg.Done()
		panic("inside goroutine")
	})
	wg.Wait()
}

func TestMustNotNil(t *testing.T) {
	var p *int
	assert.Panics(t, func() { MustNotNil(p, "p") })
	assert.Panics(t, func() { MustNotNil(nil, "nil") })
	assert.NotPanics(t, func() { MustNotNil(1, "one") })
}

