package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"currency-tracker/internal/apperrors"
	"currency-tracker/pkg/utils"
)

// RateObservation is one quote of Currency against ReferenceCurrency.
// AsOf is always pinned to utils.AnchorHour UTC on its calendar day.
type RateObservation struct {
	Currency Currency        `json:"currency"`
	Price    decimal.Decimal `json:"rate"`
	AsOf     time.Time       `json:"timestamp"`
}

// NewRateObservation validates the price and currency and normalizes AsOf.
func NewRateObservation(currency Currency, price decimal.Decimal, asOf time.Time) (RateObservation, error) {
	if !currency.IsSupported() {
		return RateObservation{}, fmt.Errorf("%w: unsupported currency %q", apperrors.ErrInvalidInput, currency)
	}
	if !price.IsPositive() {
		return RateObservation{}, fmt.Errorf("%w: price must be positive, got %s", apperrors.ErrInvalidInput, price)
	}
	return RateObservation{
		Currency: currency,
		Price:    price,
		AsOf:     utils.Anchor(asOf),
	}, nil
}

// Equal compares all fields exactly; 1.50 and 1.5 are equal prices.
func (o RateObservation) Equal(other RateObservation) bool {
	return o.Currency == other.Currency && o.AsOf.Equal(other.AsOf) && o.Price.Equal(other.Price)
}

func (o RateObservation) String() string {
	return fmt.Sprintf("%s/%s %s @ %s", o.Currency, ReferenceCurrency, o.Price, utils.FormatDate(o.AsOf))
}

// CacheEntry occupies the single latest-rate slot of a currency.
type CacheEntry struct {
	Currency    Currency        `json:"currency"`
	Observation RateObservation `json:"observation"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// AppendResult reports what a store append did to the series.
type AppendResult string

const (
	AppendInserted  AppendResult = "inserted"
	AppendReplaced  AppendResult = "replaced"
	AppendUnchanged AppendResult = "unchanged"
)
