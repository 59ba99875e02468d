package service

import (
	"context"
	"time"

	"currency-tracker/internal/domain/model"
)

type MockRateSource struct {
	FetchLatestFunc func(ctx context.Context, currency model.Currency) (*model.RateObservation, error)
	FetchRangeFunc  func(ctx context.Context, currency model.Currency, from, to time.Time) ([]model.RateObservation, error)
}

func (m *MockRateSource) FetchLatest(ctx context.Context, currency model.Currency) (*model.RateObservation, error) {
	return m.FetchLatestFunc(ctx, currency)
}

func (m *MockRateSource) FetchRange(ctx context.Context, currency model.Currency, from, to time.Time) ([]model.RateObservation, error) {
	return m.FetchRangeFunc(ctx, currency, from, to)
}

type MockLatestCache struct {
	GetFunc    func(ctx context.Context, currency model.Currency) (*model.CacheEntry, bool)
	SetFunc    func(ctx context.Context, entry model.CacheEntry) error
	DeleteFunc func(ctx context.Context, currency model.Currency) error
}

func (m *MockLatestCache) Get(ctx context.Context, currency model.Currency) (*model.CacheEntry, bool) {
	return m.GetFunc(ctx, currency)
}

func (m *MockLatestCache) Set(ctx context.Context, entry model.CacheEntry) error {
	return m.SetFunc(ctx, entry)
}

func (m *MockLatestCache) Delete(ctx context.Context, currency model.Currency) error {
	return m.DeleteFunc(ctx, currency)
}

func (m *MockLatestCache) Close() error {
	return nil
}
