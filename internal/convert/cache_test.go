package convert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haleth-io/vectorpipe/internal/core"
)

// memCache is an in-memory core.Cache for tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	fail    bool
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("backend down")
	}
	v, ok := m.entries[key]
	if !ok {
		return nil, core.ErrCacheMiss
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("backend down")
	}
	m.entries[key] = value
	return nil
}

func (m *memCache) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func TestConversionCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cc := NewConversionCache(newMemCache(), time.Hour)

	hash := ContentHash([]byte("raw bytes"))
	require.Nil(t, cc.Get(ctx, hash))

	res := newResult(TypeMarkdown, "markdown", "# cached")
	cc.Set(ctx, hash, res)

	cached := cc.Get(ctx, hash)
	require.NotNil(t, cached)
	assert.Equal(t, "# cached", cached.Content)
	assert.Equal(t, string(TypeMarkdown), cached.OriginalType)
	assert.Equal(t, hash, cached.ContentHash)
	assert.False(t, cached.CachedAt.IsZero())
}

func TestConversionCacheFailsOpen(t *testing.T) {
	ctx := context.Background()
	backend := newMemCache()
	backend.fail = true
	cc := NewConversionCache(backend, time.Hour)

	// Neither call may panic or surface an error.
	assert.Nil(t, cc.Get(ctx, "abc"))
	cc.Set(ctx, "abc", newResult(TypePlainText, "text", "x"))
}

func TestConversionCacheNilBackend(t *testing.T) {
	ctx := context.Background()
	cc := NewConversionCache(nil, 0)

	assert.Nil(t, cc.Get(ctx, "abc"))
	cc.Set(ctx, "abc", newResult(TypePlainText, "text", "x"))
}

func TestConversionCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	backend := newMemCache()
	backend.entries[cacheKeyPrefix+"bad"] = []byte("{not json")
	cc := NewConversionCache(backend, time.Hour)

	assert.Nil(t, cc.Get(ctx, "bad"))
}

func TestContentHashStable(t *testing.T) {
	a := ContentHash([]byte("same"))
	b := ContentHash([]byte("same"))
	c := ContentHash([]byte("different"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
