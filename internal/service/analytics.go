package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"currency-tracker/internal/apperrors"
	"currency-tracker/internal/domain/model"
	"currency-tracker/pkg/utils"
)

// AverageScale is the number of fractional digits averages are rounded to.
const AverageScale = 4

// Average returns the mean price over [today-days, today], rounded half-up to
// AverageScale digits. An empty window yields zero.
func (s *RateService) Average(ctx context.Context, c model.Currency, days int) (decimal.Decimal, error) {
	window, err := s.window(ctx, c, days)
	if err != nil {
		return decimal.Zero, err
	}
	if len(window) == 0 {
		return decimal.Zero, nil
	}

	sum := decimal.Zero
	for _, obs := range window {
		sum = sum.Add(obs.Price)
	}

	// Prices are positive, so half-away-from-zero is half-up.
	return sum.DivRound(decimal.NewFromInt(int64(len(window))), AverageScale), nil
}

// Trend compares the first and last observation of the window. Fewer than two
// observations is stable.
func (s *RateService) Trend(ctx context.Context, c model.Currency, days int) (model.Trend, error) {
	window, err := s.window(ctx, c, days)
	if err != nil {
		return "", err
	}
	if len(window) < 2 {
		return model.TrendStable, nil
	}

	first, last := window[0].Price, window[len(window)-1].Price
	switch last.Cmp(first) {
	case 1:
		return model.TrendUp, nil
	case -1:
		return model.TrendDown, nil
	default:
		return model.TrendStable, nil
	}
}

func (s *RateService) window(ctx context.Context, c model.Currency, days int) ([]model.RateObservation, error) {
	if !c.IsSupported() {
		return nil, fmt.Errorf("%w: unsupported currency %q", apperrors.ErrInvalidInput, c)
	}
	if days < 0 {
		return nil, fmt.Errorf("%w: days must not be negative, got %d", apperrors.ErrInvalidInput, days)
	}

	from, to := utils.DaysBack(s.now(), days)
	window, err := s.store.Range(ctx, c, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load %d day window for %s: %w", days, c, err)
	}
	return window, nil
}
