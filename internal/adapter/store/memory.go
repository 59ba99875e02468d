package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"currency-tracker/internal/apperrors"
	"currency-tracker/internal/domain/model"
	"currency-tracker/pkg/logger"
	"currency-tracker/pkg/utils"
)

// series is one currency's observations kept sorted by AsOf with unique AsOf values.
type series struct {
	mutex        sync.RWMutex
	observations []model.RateObservation
}

// MemoryStore is the in-process RateStore. Each currency has its own lock, so writes
// for different currencies never contend.
type MemoryStore struct {
	mutex  sync.RWMutex
	series map[model.Currency]*series
	log    *logger.Logger
}

func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		series: make(map[model.Currency]*series),
		log:    log,
	}
}

func (s *MemoryStore) seriesFor(currency model.Currency, create bool) *series {
	s.mutex.RLock()
	ser, ok := s.series[currency]
	s.mutex.RUnlock()
	if ok || !create {
		return ser
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if ser, ok = s.series[currency]; !ok {
		ser = &series{}
		s.series[currency] = ser
	}
	return ser
}

func (s *MemoryStore) Append(ctx context.Context, obs model.RateObservation) (model.AppendResult, error) {
	if !obs.Currency.IsSupported() || !obs.Price.IsPositive() {
		return "", fmt.Errorf("%w: refusing to store %s", apperrors.ErrInvalidInput, obs)
	}
	obs.AsOf = utils.Anchor(obs.AsOf)

	ser := s.seriesFor(obs.Currency, true)
	ser.mutex.Lock()
	defer ser.mutex.Unlock()

	i := sort.Search(len(ser.observations), func(i int) bool {
		return !ser.observations[i].AsOf.Before(obs.AsOf)
	})

	if i < len(ser.observations) && ser.observations[i].AsOf.Equal(obs.AsOf) {
		if ser.observations[i].Price.Equal(obs.Price) {
			s.log.Debug("Observation unchanged", "observation", obs.String())
			return model.AppendUnchanged, nil
		}
		s.log.Info("Replacing corrected observation", "previous", ser.observations[i].Price.String(), "observation", obs.String())
		ser.observations[i] = obs
		return model.AppendReplaced, nil
	}

	ser.observations = append(ser.observations, model.RateObservation{})
	copy(ser.observations[i+1:], ser.observations[i:])
	ser.observations[i] = obs

	s.log.Debug("Observation stored", "observation", obs.String())
	return model.AppendInserted, nil
}

func (s *MemoryStore) Latest(ctx context.Context, currency model.Currency) (*model.RateObservation, error) {
	ser := s.seriesFor(currency, false)
	if ser == nil {
		return nil, fmt.Errorf("%w: no observations for %s", apperrors.ErrNotFound, currency)
	}

	ser.mutex.RLock()
	defer ser.mutex.RUnlock()

	if len(ser.observations) == 0 {
		return nil, fmt.Errorf("%w: no observations for %s", apperrors.ErrNotFound, currency)
	}
	latest := ser.observations[len(ser.observations)-1]
	return &latest, nil
}

func (s *MemoryStore) Range(ctx context.Context, currency model.Currency, from, to time.Time) ([]model.RateObservation, error) {
	result := []model.RateObservation{}

	ser := s.seriesFor(currency, false)
	if ser == nil {
		return result, nil
	}

	lower, upper := utils.StartOfDay(from), utils.EndOfDay(to)
	if lower.After(upper) {
		return result, nil
	}

	ser.mutex.RLock()
	defer ser.mutex.RUnlock()

	start := sort.Search(len(ser.observations), func(i int) bool {
		return !ser.observations[i].AsOf.Before(lower)
	})
	end := sort.Search(len(ser.observations), func(i int) bool {
		return ser.observations[i].AsOf.After(upper)
	})
	if start >= end {
		return result, nil
	}

	result = make([]model.RateObservation, end-start)
	copy(result, ser.observations[start:end])
	return result, nil
}
