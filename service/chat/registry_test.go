package chat

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usermodel "linker/module/user/model"
	"linker/tools/errs"
)

func ident(id string) usermodel.Identity {
	return usermodel.Identity{ID: id, Username: "name-" + id, Role: "USER"}
}

func TestRegistryCountMatchesBindings(t *testing.T) {
	r := NewRegistry()
	model := map[string]bool{}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		conn := fmt.Sprintf("c%d", rng.Intn(50))
		if rng.Intn(2) == 0 {
			require.NoError(t, r.Bind(conn, ident(conn)))
			model[conn] = true
		} else {
			removed := r.Unbind(conn)
			assert.Equal(t, model[conn], removed)
			delete(model, conn)
		}
		require.Equal(t, len(model), r.Count())
	}
}

func TestRegistryBindOverwrites(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Bind("c1", ident("u1")))
	require.NoError(t, r.Bind("c1", ident("u2")))
	assert.Equal(t, 1, r.Count())
	got, ok := r.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "u2", got.ID)
}

func TestRegistryRejectsEmpty(t *testing.T) {
	r := NewRegistry()
	assert.True(t, errs.ErrArgs.Is(r.Bind("c1", usermodel.Identity{Username: "x"})))
	assert.True(t, errs.ErrArgs.Is(r.Bind("c1", ident("  "))))
	assert.True(t, errs.ErrArgs.Is(r.Bind("", ident("u1"))))
	assert.Equal(t, 0, r.Count())
}

func TestRegistryUnbindIdempotent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Bind("c1", ident("u1")))
	require.NoError(t, r.Bind("c2", ident("u2")))

	assert.True(t, r.Unbind("c1"))
	assert.False(t, r.Unbind("c1"))
	assert.Equal(t, 1, r.Count())
	_, ok := r.Get("c1")
	assert.False(t, ok)

	assert.False(t, r.Unbind("never"))
	assert.Equal(t, 1, r.Count())
}

func TestRegistryCountCalls(t *testing.T) {
	r := NewRegistry()
	n, err := r.BindCount("c1", ident("u1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = r.BindCount("c2", ident("u2"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	removed, n := r.UnbindCount("c1")
	assert.True(t, removed)
	assert.Equal(t, 1, n)
	removed, n = r.UnbindCount("c1")
	assert.False(t, removed)
	assert.Equal(t, 1, n)
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				conn := fmt.Sprintf("w%d-c%d", w, i)
				_ = r.Bind(conn, ident(conn))
				_ = r.Count()
				if i%2 == 0 {
					r.Unbind(conn)
				}
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 16*100, r.Count())
}
