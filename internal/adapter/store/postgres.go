package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"currency-tracker/internal/apperrors"
	"currency-tracker/internal/domain/model"
	"currency-tracker/pkg/logger"
	"currency-tracker/pkg/utils"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// The WHERE on the conflict branch turns an identical re-ingestion into a no-op:
// no row is returned, which Append reports as AppendUnchanged.
const upsertObservationQuery = `
	INSERT INTO rate_observations (currency, as_of, price)
	VALUES ($1, $2, $3::numeric)
	ON CONFLICT (currency, as_of) DO UPDATE
		SET price = EXCLUDED.price, updated_at = NOW()
		WHERE rate_observations.price <> EXCLUDED.price
	RETURNING (xmax = 0) AS inserted`

const latestObservationQuery = `
	SELECT currency, price::text, as_of
	FROM rate_observations
	WHERE currency = $1
	ORDER BY as_of DESC
	LIMIT 1`

const rangeObservationsQuery = `
	SELECT currency, price::text, as_of
	FROM rate_observations
	WHERE currency = $1 AND as_of BETWEEN $2 AND $3
	ORDER BY as_of ASC`

// PostgresStore is the durable RateStore. The (currency, as_of) primary key both
// enforces one observation per day and serves Latest and Range as index scans.
type PostgresStore struct {
	db  *sql.DB
	log *logger.Logger
}

func NewPostgresStore(db *sql.DB, log *logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

// OpenPostgres opens a pool through the pgx stdlib driver and verifies connectivity.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate applies all pending up migrations on a dedicated connection.
func Migrate(ctx context.Context, databaseURL string, log *logger.Logger) error {
	migrationDB, err := OpenPostgres(ctx, databaseURL)
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		migrationDB.Close()
		return fmt.Errorf("could not create postgres migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		migrationDB.Close()
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		migrationDB.Close()
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Error("Error closing migrations", "source_error", sourceErr, "database_error", dbErr)
		}
	}()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("No new migrations to apply")
		return nil
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, obs model.RateObservation) (model.AppendResult, error) {
	if !obs.Currency.IsSupported() || !obs.Price.IsPositive() {
		return "", fmt.Errorf("%w: refusing to store %s", apperrors.ErrInvalidInput, obs)
	}
	obs.AsOf = utils.Anchor(obs.AsOf)

	var inserted bool
	err := s.db.QueryRowContext(ctx, upsertObservationQuery,
		obs.Currency.String(), obs.AsOf, obs.Price.String(),
	).Scan(&inserted)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.log.Debug("Observation unchanged", "observation", obs.String())
		return model.AppendUnchanged, nil
	case err != nil:
		return "", fmt.Errorf("failed to save observation %s: %w", obs, err)
	case inserted:
		s.log.Debug("Observation stored", "observation", obs.String())
		return model.AppendInserted, nil
	default:
		s.log.Info("Replaced corrected observation", "observation", obs.String())
		return model.AppendReplaced, nil
	}
}

func (s *PostgresStore) Latest(ctx context.Context, currency model.Currency) (*model.RateObservation, error) {
	row := s.db.QueryRowContext(ctx, latestObservationQuery, currency.String())

	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no observations for %s", apperrors.ErrNotFound, currency)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest observation for %s: %w", currency, err)
	}
	return &obs, nil
}

func (s *PostgresStore) Range(ctx context.Context, currency model.Currency, from, to time.Time) ([]model.RateObservation, error) {
	result := []model.RateObservation{}

	lower, upper := utils.StartOfDay(from), utils.EndOfDay(to)
	if lower.After(upper) {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, rangeObservationsQuery, currency.String(), lower, upper)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations for %s: %w", currency, err)
	}
	defer rows.Close()

	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation for %s: %w", currency, err)
		}
		result = append(result, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations for %s: %w", currency, err)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(row rowScanner) (model.RateObservation, error) {
	var (
		currency string
		price    decimal.Decimal
		asOf     time.Time
	)
	if err := row.Scan(&currency, &price, &asOf); err != nil {
		return model.RateObservation{}, err
	}
	return model.RateObservation{
		Currency: model.Currency(currency),
		Price:    price,
		AsOf:     asOf.UTC(),
	}, nil
}
