package ports

import (
	"context"
	"time"

	"currency-tracker/internal/domain/model"
)

// RateStore persists the per-currency time series.
//
// Append is idempotent per (currency, AsOf): an identical price is a no-op and a
// differing price overwrites the stored one.
type RateStore interface {
	Append(ctx context.Context, obs model.RateObservation) (model.AppendResult, error)
	// Latest wraps apperrors.ErrNotFound when the currency has no observations.
	Latest(ctx context.Context, currency model.Currency) (*model.RateObservation, error)
	// Range is inclusive of from's start of day and to's end of day, sorted ascending.
	// No match is an empty slice, not an error.
	Range(ctx context.Context, currency model.Currency, from, to time.Time) ([]model.RateObservation, error)
}
