package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"currency-tracker/internal/apperrors"
	"currency-tracker/internal/domain/model"
	"currency-tracker/internal/domain/ports"
	"currency-tracker/internal/metrics"
	"currency-tracker/pkg/logger"
	"currency-tracker/pkg/utils"
)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultConcurrency  = 4
)

// RateService ties the source, store and latest-rate cache together. It answers the
// query surface and runs ingestion cycles.
type RateService struct {
	source  ports.RateSource
	store   ports.RateStore
	cache   ports.LatestCache
	log     *logger.Logger
	metrics *metrics.Metrics

	locks        *currencyLocks
	tracked      []model.Currency
	concurrency  int
	fetchTimeout time.Duration
	now          func() time.Time
}

type Option func(*RateService)

// WithClock replaces time.Now; analytics read it once per call.
func WithClock(now func() time.Time) Option {
	return func(s *RateService) {
		s.now = now
	}
}

func WithTrackedCurrencies(currencies []model.Currency) Option {
	return func(s *RateService) {
		s.tracked = append([]model.Currency(nil), currencies...)
	}
}

// WithConcurrency bounds how many currencies are fetched at once during a cycle.
func WithConcurrency(n int) Option {
	return func(s *RateService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(s *RateService) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

func NewRateService(source ports.RateSource, store ports.RateStore, cache ports.LatestCache, log *logger.Logger, m *metrics.Metrics, opts ...Option) *RateService {
	s := &RateService{
		source:       source,
		store:        store,
		cache:        cache,
		log:          log,
		metrics:      m,
		locks:        newCurrencyLocks(),
		tracked:      []model.Currency{model.USD, model.EUR, model.GBP, model.CHF},
		concurrency:  defaultConcurrency,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RateService) TrackedCurrencies() []model.Currency {
	return append([]model.Currency(nil), s.tracked...)
}

func (s *RateService) GetLatest(ctx context.Context, currency string) (*model.RateObservation, error) {
	c, err := model.ParseCurrency(currency)
	if err != nil {
		return nil, err
	}
	return s.latest(ctx, c)
}

// GetHistory goes straight to the source; nothing is read from or written to the store.
func (s *RateService) GetHistory(ctx context.Context, currency string, from, to time.Time) ([]model.RateObservation, error) {
	c, err := model.ParseCurrency(currency)
	if err != nil {
		return nil, err
	}

	from, to = utils.StartOfDay(from), utils.StartOfDay(to)
	if from.After(to) {
		return nil, fmt.Errorf("%w: from %s is after to %s", apperrors.ErrInvalidInput, utils.FormatDate(from), utils.FormatDate(to))
	}

	history, err := s.fetchRange(ctx, c, from, to)
	if err != nil {
		s.log.Warn("Failed to fetch rate history", "currency", c, "from", utils.FormatDate(from), "to", utils.FormatDate(to), "error", err)
		return nil, err
	}
	return history, nil
}

func (s *RateService) GetAverage(ctx context.Context, currency string, days int) (decimal.Decimal, error) {
	c, err := model.ParseCurrency(currency)
	if err != nil {
		return decimal.Zero, err
	}
	return s.Average(ctx, c, days)
}

func (s *RateService) GetTrend(ctx context.Context, currency string, days int) (model.Trend, error) {
	c, err := model.ParseCurrency(currency)
	if err != nil {
		return "", err
	}
	return s.Trend(ctx, c, days)
}

func (s *RateService) fetchLatest(ctx context.Context, c model.Currency) (*model.RateObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	obs, err := s.source.FetchLatest(ctx, c)
	return obs, asSourceError(ctx, err)
}

func (s *RateService) fetchRange(ctx context.Context, c model.Currency, from, to time.Time) ([]model.RateObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	history, err := s.source.FetchRange(ctx, c, from, to)
	return history, asSourceError(ctx, err)
}

// asSourceError classifies anything outside the source taxonomy, an expired fetch
// deadline included, as ErrSourceUnavailable.
func asSourceError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.ErrSourceUnavailable) || errors.Is(err, apperrors.ErrNoData) || errors.Is(err, apperrors.ErrInvalidInput) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: fetch timed out: %v", apperrors.ErrSourceUnavailable, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: fetch cancelled: %v", apperrors.ErrSourceUnavailable, err)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
}
