package service

import (
	"context"
	"errors"

	"currency-tracker/internal/apperrors"
	"currency-tracker/internal/domain/model"
)

// latest is the read-through path: cache hit, or store lookup under the currency lock
// followed by populating the slot. Each call counts exactly one cache hit or miss.
func (s *RateService) latest(ctx context.Context, c model.Currency) (*model.RateObservation, error) {
	if entry, found := s.cache.Get(ctx, c); found {
		s.countCache("hit")
		obs := entry.Observation
		return &obs, nil
	}

	unlock := s.locks.Lock(c)
	defer unlock()

	// An ingestion may have filled the slot while we waited for the lock.
	if entry, found := s.cache.Get(ctx, c); found {
		s.countCache("hit")
		obs := entry.Observation
		return &obs, nil
	}
	s.countCache("miss")

	obs, err := s.store.Latest(ctx, c)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.log.Info("No observation stored yet", "currency", c)
		} else {
			s.log.Error("Failed to read latest observation", "currency", c, "error", err)
		}
		return nil, err
	}

	s.populate(ctx, *obs)
	return obs, nil
}

// refreshCache overwrites the currency's slot with the store's current latest
// observation. Callers hold the currency lock.
func (s *RateService) refreshCache(ctx context.Context, c model.Currency) {
	obs, err := s.store.Latest(ctx, c)
	if err != nil {
		s.log.Error("Failed to reload latest observation, dropping cache slot", "currency", c, "error", err)
		s.drop(ctx, c)
		return
	}
	s.populate(ctx, *obs)
}

func (s *RateService) populate(ctx context.Context, obs model.RateObservation) {
	entry := model.CacheEntry{
		Currency:    obs.Currency,
		Observation: obs,
		FetchedAt:   s.now().UTC(),
	}
	if err := s.cache.Set(ctx, entry); err != nil {
		s.log.Error("Failed to cache latest observation", "currency", obs.Currency, "error", err)
		s.drop(ctx, obs.Currency)
	}
}

// drop removes a slot that could not be refreshed so it cannot serve a stale value.
func (s *RateService) drop(ctx context.Context, c model.Currency) {
	if err := s.cache.Delete(ctx, c); err != nil {
		s.log.Error("Failed to drop cache slot", "currency", c, "error", err)
	}
}

func (s *RateService) countCache(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookupsTotal.WithLabelValues(result).Inc()
	}
}
