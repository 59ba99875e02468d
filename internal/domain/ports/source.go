package ports

import (
	"context"
	"time"

	"currency-tracker/internal/domain/model"
)

// RateSource fetches quotes against the reference currency from an external provider.
// Failures wrap apperrors.ErrSourceUnavailable or apperrors.ErrNoData.
type RateSource interface {
	FetchLatest(ctx context.Context, currency model.Currency) (*model.RateObservation, error)
	// FetchRange requires from <= to and returns observations sorted by AsOf ascending.
	FetchRange(ctx context.Context, currency model.Currency, from, to time.Time) ([]model.RateObservation, error)
}
