package biometric

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"veriface.io/infrastructure/biometric/types"
)

func TestCachedEmbeddingSource(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, userID string) ([]types.Embedding, error) {
		calls++
		return []types.Embedding{{ID: "f-1", ModelType: "facenet", Vector: []float64{1, 0}, Validated: true}}, nil
	}
	source := NewCachedEmbeddingSource(fetch, time.Minute)

	first, err := source.GetEmbeddings(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := source.GetEmbeddings(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "second read should come from the cache")

	source.Invalidate("user-1")
	_, err = source.GetEmbeddings(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "invalidation should force a fresh fetch")
}

func TestCachedEmbeddingSourcePropagatesErrors(t *testing.T) {
	fetch := func(ctx context.Context, userID string) ([]types.Embedding, error) {
		return nil, errors.New("store unavailable")
	}
	source := NewCachedEmbeddingSource(fetch, time.Minute)

	_, err := source.GetEmbeddings(context.Background(), "user-1")
	assert.Error(t, err)
}

func TestCachedEmbeddingSourceDoesNotCacheErrors(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, userID string) ([]types.Embedding, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient failure")
		}
		return []types.Embedding{}, nil
	}
	source := NewCachedEmbeddingSource(fetch, time.Minute)

	_, err := source.GetEmbeddings(context.Background(), "user-1")
	require.Error(t, err)

	_, err = source.GetEmbeddings(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
