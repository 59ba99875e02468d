package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"currency-tracker/internal/adapter/store"
	"currency-tracker/internal/apperrors"
	"currency-tracker/internal/domain/model"
	"currency-tracker/internal/metrics"
	"currency-tracker/pkg/logger"
)

func TestRateService_GetLatest(t *testing.T) {
	log := logger.Discard()
	stored := observation(t, model.EUR, "4.35", 1)
	cached := observation(t, model.EUR, "4.36", 0)

	testCases := []struct {
		name          string
		currency      string
		seed          bool
		mockCache     MockLatestCache
		expectedPrice string
		expectedError error
		expectSet     bool
	}{
		{
			name:     "Success - Cache Hit",
			currency: "EUR",
			mockCache: MockLatestCache{
				GetFunc: func(ctx context.Context, currency model.Currency) (*model.CacheEntry, bool) {
					return &model.CacheEntry{Currency: currency, Observation: cached, FetchedAt: fixedNow}, true
				},
			},
			expectedPrice: "4.36",
		},
		{
			name:     "Success - Cache Miss, Store Hit",
			currency: "eur",
			seed:     true,
			mockCache: MockLatestCache{
				GetFunc: func(ctx context.Context, currency model.Currency) (*model.CacheEntry, bool) {
					return nil, false
				},
			},
			expectedPrice: "4.35",
			expectSet:     true,
		},
		{
			name:          "Error - Invalid Currency",
			currency:      "XYZ",
			mockCache:     MockLatestCache{},
			expectedError: apperrors.ErrInvalidInput,
		},
		{
			name:     "Error - Nothing Stored Yet",
			currency: "EUR",
			mockCache: MockLatestCache{
				GetFunc: func(ctx context.Context, currency model.Currency) (*model.CacheEntry, bool) {
					return nil, false
				},
			},
			expectedError: apperrors.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := store.NewMemoryStore(log)
			if tc.seed {
				_, err := st.Append(context.Background(), stored)
				require.NoError(t, err)
			}

			var setEntries []model.CacheEntry
			tc.mockCache.SetFunc = func(ctx context.Context, entry model.CacheEntry) error {
				setEntries = append(setEntries, entry)
				return nil
			}

			svc := NewRateService(&MockRateSource{}, st, &tc.mockCache, log, nil, WithClock(fixedClock))
			rate, err := svc.GetLatest(context.Background(), tc.currency)

			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, rate)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, rate)
			assert.Equal(t, model.EUR, rate.Currency)
			assert.Equal(t, tc.expectedPrice, rate.Price.String())

			if tc.expectSet {
				require.Len(t, setEntries, 1)
				assert.True(t, setEntries[0].Observation.Equal(stored))
				assert.Equal(t, fixedNow, setEntries[0].FetchedAt)
			} else {
				assert.Empty(t, setEntries)
			}
		})
	}
}

func TestRateService_GetLatestSurvivesCacheFailure(t *testing.T) {
	log := logger.Discard()
	st := store.NewMemoryStore(log)
	stored := observation(t, model.GBP, "5.10", 0)
	_, err := st.Append(context.Background(), stored)
	require.NoError(t, err)

	deleted := false
	broken := &MockLatestCache{
		GetFunc: func(ctx context.Context, currency model.Currency) (*model.CacheEntry, bool) { return nil, false },
		SetFunc: func(ctx context.Context, entry model.CacheEntry) error { return errors.New("redis gone") },
		DeleteFunc: func(ctx context.Context, currency model.Currency) error {
			deleted = true
			return errors.New("redis gone")
		},
	}

	m := metrics.NewMetrics(prometheus.NewRegistry())
	svc := NewRateService(&MockRateSource{}, st, broken, log, m, WithClock(fixedClock))

	rate, err := svc.GetLatest(context.Background(), "GBP")
	require.NoError(t, err)
	assert.True(t, rate.Equal(stored))
	assert.True(t, deleted)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss")))
}

func TestRateService_GetHistory(t *testing.T) {
	log := logger.Discard()
	history := []model.RateObservation{
		observation(t, model.USD, "3.90", 2),
		observation(t, model.USD, "3.95", 1),
	}

	var calls int
	src := &MockRateSource{
		FetchRangeFunc: func(ctx context.Context, currency model.Currency, from, to time.Time) ([]model.RateObservation, error) {
			calls++
			assert.Equal(t, model.USD, currency)
			assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), from)
			assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), to)
			return history, nil
		},
	}

	st := store.NewMemoryStore(log)
	svc := NewRateService(src, st, nil, log, nil, WithClock(fixedClock))

	got, err := svc.GetHistory(context.Background(), "usd",
		time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, history, got)
	assert.Equal(t, 1, calls)

	stored, err := st.Range(context.Background(), model.USD, fixedNow.AddDate(0, 0, -30), fixedNow)
	require.NoError(t, err)
	assert.Empty(t, stored, "history requests must bypass the store")
}

func TestRateService_GetHistoryRejectsBeforeIO(t *testing.T) {
	src := &MockRateSource{
		FetchRangeFunc: func(ctx context.Context, currency model.Currency, from, to time.Time) ([]model.RateObservation, error) {
			t.Fatal("source must not be called")
			return nil, nil
		},
	}
	svc := NewRateService(src, nil, nil, logger.Discard(), nil)
	ctx := context.Background()

	_, err := svc.GetHistory(ctx, "EUR", fixedNow, fixedNow.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.GetHistory(ctx, "ABC", fixedNow, fixedNow)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRateService_GetHistoryClassifiesUnknownErrors(t *testing.T) {
	src := &MockRateSource{
		FetchRangeFunc: func(ctx context.Context, currency model.Currency, from, to time.Time) ([]model.RateObservation, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewRateService(src, nil, nil, logger.Discard(), nil)

	_, err := svc.GetHistory(context.Background(), "EUR", fixedNow, fixedNow)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestRateService_GetHistoryDistinguishesTimeoutFromCancel(t *testing.T) {
	blocking := &MockRateSource{
		FetchRangeFunc: func(ctx context.Context, currency model.Currency, from, to time.Time) ([]model.RateObservation, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc := NewRateService(blocking, nil, nil, logger.Discard(), nil, WithFetchTimeout(20*time.Millisecond))

	_, err := svc.GetHistory(context.Background(), "EUR", fixedNow, fixedNow)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "timed out")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.GetHistory(ctx, "EUR", fixedNow, fixedNow)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "cancelled")
	assert.NotContains(t, err.Error(), "timed out")
}

func TestRateService_GetLatestCountsRecheckHitOnce(t *testing.T) {
	filled := observation(t, model.EUR, "4.35", 0)
	var gets int
	racing := &MockLatestCache{
		GetFunc: func(ctx context.Context, currency model.Currency) (*model.CacheEntry, bool) {
			gets++
			if gets == 1 {
				return nil, false
			}
			return &model.CacheEntry{Currency: currency, Observation: filled, FetchedAt: fixedNow}, true
		},
	}

	m := metrics.NewMetrics(prometheus.NewRegistry())
	svc := NewRateService(&MockRateSource{}, store.NewMemoryStore(logger.Discard()), racing, logger.Discard(), m, WithClock(fixedClock))

	rate, err := svc.GetLatest(context.Background(), "EUR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(filled))
	assert.Equal(t, 2, gets)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss")))
}

func TestRateService_TrackedCurrencies(t *testing.T) {
	svc := NewRateService(&MockRateSource{}, nil, nil, logger.Discard(), nil)
	assert.Equal(t, []model.Currency{model.USD, model.EUR, model.GBP, model.CHF}, svc.TrackedCurrencies())

	svc = NewRateService(&MockRateSource{}, nil, nil, logger.Discard(), nil, WithTrackedCurrencies([]model.Currency{model.JPY}))
	tracked := svc.TrackedCurrencies()
	tracked[0] = model.EUR
	assert.Equal(t, []model.Currency{model.JPY}, svc.TrackedCurrencies(), "callers get a copy")
}
