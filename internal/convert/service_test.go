package convert

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haleth-io/vectorpipe/internal/core"
)

func countingRegistry(calls *atomic.Int64) *Registry {
	r := &Registry{
		byExt:      map[string]DocumentType{".txt": TypePlainText},
		byMIME:     map[string]DocumentType{},
		strategies: map[DocumentType][]Strategy{},
	}
	r.register(TypePlainText, func(data []byte) (*Result, error) {
		calls.Add(1)
		return newResult(TypePlainText, "text", string(data)), nil
	})
	return r
}

func TestServiceConvertCachesByContent(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc := NewService(countingRegistry(&calls), NewConversionCache(newMemCache(), time.Hour))

	first, err := svc.Convert(ctx, "a.txt", "", []byte("identical bytes"))
	require.NoError(t, err)
	assert.Equal(t, "identical bytes", first.Content)
	assert.Equal(t, int64(1), calls.Load())

	// Same bytes under a different filename hit the cache.
	second, err := svc.Convert(ctx, "b.txt", "", []byte("identical bytes"))
	require.NoError(t, err)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, int64(1), calls.Load())

	// Different bytes convert again.
	_, err = svc.Convert(ctx, "a.txt", "", []byte("changed bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestServiceConvertUnsupported(t *testing.T) {
	var calls atomic.Int64
	svc := NewService(countingRegistry(&calls), NewConversionCache(nil, 0))

	_, err := svc.Convert(context.Background(), "track.mp3", "audio/mpeg", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	assert.Equal(t, int64(0), calls.Load())
}

func TestServiceConvertWithoutCache(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc := NewService(countingRegistry(&calls), NewConversionCache(nil, 0))

	_, err := svc.Convert(ctx, "a.txt", "", []byte("no cache"))
	require.NoError(t, err)
	_, err = svc.Convert(ctx, "a.txt", "", []byte("no cache"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}
