package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"

	"modaapi/matching"
	"modaapi/models"
)

const listedCacheKey = "catalog:listed"
const listedCacheTTL = 5 * time.Minute

// FallbackCatalogStore is a two-tier read over the primary store. The
// listed-garment query, the one every discovery request depends on, is
// mirrored into an in-process cache; when the primary fails the cached
// copy is served and the result is tagged possibly stale instead of
// hiding the degradation. Targeted lookups pass straight through.
type FallbackCatalogStore struct {
	CatalogStore
	listed *cache.Cache[[]models.Garment]
}

func NewFallbackCatalogStore(primary CatalogStore) (*FallbackCatalogStore, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)
	return &FallbackCatalogStore{
		CatalogStore: primary,
		listed:       cache.New[[]models.Garment](ristrettoStore),
	}, nil
}

func (s *FallbackCatalogStore) QueryListed(ctx context.Context) ([]models.Garment, bool, error) {
	garments, _, err := s.CatalogStore.QueryListed(ctx)
	if err == nil {
		if setErr := s.listed.Set(ctx, listedCacheKey, garments, store.WithExpiration(listedCacheTTL)); setErr != nil {
			log.Printf("Failed to cache listed garments: %v", setErr)
		}
		return garments, false, nil
	}

	var upstreamErr *matching.UpstreamError
	if !errors.As(err, &upstreamErr) {
		return nil, false, err
	}

	cached, cacheErr := s.listed.Get(ctx, listedCacheKey)
	if cacheErr != nil {
		return nil, false, err
	}
	log.Printf("Primary catalog query failed, serving %d cached garments: %v", len(cached), err)
	return cached, true, nil
}
