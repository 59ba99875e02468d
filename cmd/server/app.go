package main

import (
	"context"
	"database/sql"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"currency-tracker/internal/adapter/cache"
	"currency-tracker/internal/adapter/source"
	"currency-tracker/internal/adapter/store"
	"currency-tracker/internal/domain/ports"
	"currency-tracker/internal/metrics"
	"currency-tracker/internal/service"
)

// app holds the wired core shared by every command.
type app struct {
	metrics *metrics.Metrics
	service *service.RateService

	db    *sql.DB
	cache ports.LatestCache
}

// buildApp picks Postgres or memory for the store and Redis or memory for the cache,
// depending on which URLs are configured.
func buildApp(ctx context.Context, reg prometheus.Registerer) (*app, error) {
	a := &app{metrics: metrics.NewMetrics(reg)}

	var rateStore ports.RateStore
	if cfg.Database.URL != "" {
		if cfg.Database.RunMigrations {
			if err := store.Migrate(ctx, cfg.Database.URL, log); err != nil {
				return nil, err
			}
		}

		db, err := store.OpenPostgres(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		a.db = db
		rateStore = store.NewPostgresStore(db, log)
		log.Info("Using Postgres rate store")
	} else {
		rateStore = store.NewMemoryStore(log)
		log.Warn("DATABASE_URL not set, rates are kept in memory only")
	}

	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix, log)
		if err != nil {
			a.close()
			return nil, err
		}
		a.cache = redisCache
		log.Info("Using Redis latest-rate cache")
	} else {
		a.cache = cache.NewMemoryCache(log)
	}

	rateSource := source.NewFrankfurter(cfg.ExchangeAPI.BaseURL, cfg.ExchangeAPI.Timeout, log, a.metrics)

	a.service = service.NewRateService(rateSource, rateStore, a.cache, log, a.metrics,
		service.WithTrackedCurrencies(cfg.Ingest.TrackedCurrencies),
		service.WithConcurrency(cfg.Ingest.Concurrency),
		service.WithFetchTimeout(cfg.ExchangeAPI.Timeout),
	)

	return a, nil
}

func (a *app) close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
