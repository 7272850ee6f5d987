package biometric

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"veriface.io/infrastructure/biometric/types"
	"veriface.io/infrastructure/logger"
)

// EmbeddingFetcher is the uncached lookup the cache wraps, typically backed
// by the FaceEmbeddings collection.
type EmbeddingFetcher func(ctx context.Context, userID string) ([]types.Embedding, error)

// CachedEmbeddingSource caches a user's enrolled embeddings for a short TTL
// so repeated verification attempts within a burst skip the datastore.
// Invalidate must be called whenever the user's enrollment changes.
type CachedEmbeddingSource struct {
	fetch EmbeddingFetcher
	cache *gocache.Cache
}

func NewCachedEmbeddingSource(fetch EmbeddingFetcher, ttl time.Duration) *CachedEmbeddingSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedEmbeddingSource{
		fetch: fetch,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (ces *CachedEmbeddingSource) GetEmbeddings(ctx context.Context, userID string) ([]types.Embedding, error) {
	if cached, found := ces.cache.Get(userID); found {
		return cached.([]types.Embedding), nil
	}

	embeddings, err := ces.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	ces.cache.Set(userID, embeddings, gocache.DefaultExpiration)
	return embeddings, nil
}

func (ces *CachedEmbeddingSource) Invalidate(userID string) {
	ces.cache.Delete(userID)
	logger.Info("embedding cache invalidated", logger.LoggerOptions{
		Key:  "user_id",
		Data: userID,
	})
}
