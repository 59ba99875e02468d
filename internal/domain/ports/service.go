package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"currency-tracker/internal/domain/model"
)

// RateService is the query and ingestion surface consumed by the HTTP and CLI layers.
// Currency codes are raw user input and are validated before any I/O.
type RateService interface {
	GetLatest(ctx context.Context, currency string) (*model.RateObservation, error)
	GetHistory(ctx context.Context, currency string, from, to time.Time) ([]model.RateObservation, error)
	GetAverage(ctx context.Context, currency string, days int) (decimal.Decimal, error)
	GetTrend(ctx context.Context, currency string, days int) (model.Trend, error)
	RunIngestion(ctx context.Context) model.CycleReport
	Backfill(ctx context.Context, currency string, from, to time.Time) (*model.BackfillReport, error)
}
