package service

import (
	"context"
	"time"

	"github.com/dukerupert/fusionx/internal/cache"
	"github.com/dukerupert/fusionx/internal/domain"
)

const activeOffersKey = "offers:active"

// OfferCatalog serves the currently active offers from a short lived cache.
type OfferCatalog struct {
	store domain.OfferStore
	cache cache.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewOfferCatalog creates a catalog that refreshes from store every ttl.
func NewOfferCatalog(store domain.OfferStore, c cache.Store, ttl time.Duration) *OfferCatalog {
	return &OfferCatalog{store: store, cache: c, ttl: ttl, now: time.Now}
}

// Active returns the offers whose window contains the current time. Offers
// that expired since the list was cached are filtered out.
func (c *OfferCatalog) Active(ctx context.Context) ([]domain.Offer, error) {
	all, err := cache.Fetch(ctx, c.cache, activeOffersKey, c.ttl, func(ctx context.Context) ([]domain.Offer, error) {
		return c.store.ListActive(ctx, c.now())
	})
	if err != nil {
		return nil, err
	}

	now := c.now()
	active := make([]domain.Offer, 0, len(all))
	for _, o := range all {
		if o.ActiveAt(now) {
			active = append(active, o)
		}
	}
	return active, nil
}
