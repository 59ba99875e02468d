package ports

import (
	"context"

	"currency-tracker/internal/domain/model"
)

// LatestCache holds one entry per currency. Set replaces the entry as a whole.
type LatestCache interface {
	Get(ctx context.Context, currency model.Currency) (*model.CacheEntry, bool)
	Set(ctx context.Context, entry model.CacheEntry) error
	Delete(ctx context.Context, currency model.Currency) error
	Close() error
}
