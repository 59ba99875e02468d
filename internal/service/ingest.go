package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"currency-tracker/internal/apperrors"
	"currency-tracker/internal/domain/model"
	"currency-tracker/pkg/utils"
)

// RunIngestion fetches and persists the latest observation of every tracked currency.
// Currencies are processed concurrently and independently; a failure is recorded in
// that currency's outcome only. It never returns an error.
func (s *RateService) RunIngestion(ctx context.Context) model.CycleReport {
	report := model.CycleReport{
		ID:        uuid.NewString(),
		StartedAt: s.now().UTC(),
		Outcomes:  make([]model.CycleOutcome, len(s.tracked)),
	}
	log := s.log.With("cycle_id", report.ID)
	log.Info("Starting ingestion cycle", "currencies", len(s.tracked))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, c := range s.tracked {
		g.Go(func() error {
			report.Outcomes[i] = s.ingestOne(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = s.now().UTC()
	if s.metrics != nil {
		s.metrics.IngestionCycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}

	for i := range report.Outcomes {
		o := &report.Outcomes[i]
		if o.Err != nil {
			o.Error = o.Err.Error()
			log.Warn("Currency ingestion failed", "currency", o.Currency, "error", o.Err)
			continue
		}
		log.Info("Currency ingested", "currency", o.Currency, "result", o.Result, "observation", o.Observation.String())
	}

	log.Info("Finished ingestion cycle", "succeeded", report.Succeeded(), "failed", report.Failed())
	return report
}

func (s *RateService) ingestOne(ctx context.Context, c model.Currency) model.CycleOutcome {
	outcome := model.CycleOutcome{Currency: c}

	obs, err := s.fetchLatest(ctx, c)
	if err != nil {
		outcome.Err = err
		s.countOutcome(c, failureLabel(err))
		return outcome
	}

	unlock := s.locks.Lock(c)
	defer unlock()

	result, err := s.store.Append(ctx, *obs)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to persist %s: %w", obs, err)
		s.countOutcome(c, "store_error")
		return outcome
	}

	s.refreshCache(ctx, c)

	outcome.Observation = obs
	outcome.Result = result
	s.countOutcome(c, string(result))
	return outcome
}

// Backfill fetches [from, to] from the source and appends every observation. The
// cache slot is refreshed once at the end.
func (s *RateService) Backfill(ctx context.Context, currency string, from, to time.Time) (*model.BackfillReport, error) {
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
		return nil, err
	}

	report := &model.BackfillReport{Currency: c, Fetched: len(history)}

	unlock := s.locks.Lock(c)
	defer unlock()

	for _, obs := range history {
		result, err := s.store.Append(ctx, obs)
		if err != nil {
			s.refreshCache(ctx, c)
			return report, fmt.Errorf("failed to persist %s: %w", obs, err)
		}
		switch result {
		case model.AppendInserted:
			report.Inserted++
		case model.AppendReplaced:
			report.Replaced++
		default:
			report.Unchanged++
		}
	}

	s.refreshCache(ctx, c)

	s.log.Info("Backfill complete", "currency", c, "from", utils.FormatDate(from), "to", utils.FormatDate(to),
		"fetched", report.Fetched, "inserted", report.Inserted, "replaced", report.Replaced, "unchanged", report.Unchanged)
	return report, nil
}

func (s *RateService) countOutcome(c model.Currency, result string) {
	if s.metrics != nil {
		s.metrics.IngestionOutcomesTotal.WithLabelValues(c.String(), result).Inc()
	}
}

func failureLabel(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNoData):
		return "no_data"
	case errors.Is(err, apperrors.ErrSourceUnavailable):
		return "source_unavailable"
	default:
		return "error"
	}
}
