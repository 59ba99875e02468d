package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"currency-tracker/internal/apperrors"
	"currency-tracker/internal/domain/model"
	"currency-tracker/internal/metrics"
	"currency-tracker/pkg/logger"
	"currency-tracker/pkg/utils"
)

const (
	endpointLatest = "latest"
	endpointRange  = "range"

	// maxBodyBytes caps provider payloads; a year of daily rates is well under this.
	maxBodyBytes = 4 << 20
)

// Frankfurter queries the Frankfurter API (ECB reference rates).
type Frankfurter struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// frankfurterEnvelope keeps the fields it reads raw so a mistyped field becomes
// ErrNoData for that field instead of failing the whole decode.
type frankfurterEnvelope struct {
	Date  json.RawMessage `json:"date"`
	Rates json.RawMessage `json:"rates"`
}

func NewFrankfurter(baseURL string, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *Frankfurter {
	return &Frankfurter{
		baseURL: baseURL,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:     log,
		metrics: m,
	}
}

func (f *Frankfurter) FetchLatest(ctx context.Context, currency model.Currency) (*model.RateObservation, error) {
	endpoint := fmt.Sprintf("%s/latest?%s", f.baseURL, f.query(currency))

	env, err := f.get(ctx, endpointLatest, endpoint)
	if err != nil {
		return nil, err
	}

	if len(env.Rates) == 0 || string(env.Rates) == "null" {
		return nil, fmt.Errorf("%w: no rates for %s", apperrors.ErrNoData, currency)
	}

	var rates map[string]decimal.Decimal
	if err := json.Unmarshal(env.Rates, &rates); err != nil {
		return nil, fmt.Errorf("%w: malformed rates for %s: %v", apperrors.ErrNoData, currency, err)
	}

	date, err := parseEnvelopeDate(env.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v for %s", apperrors.ErrNoData, err, currency)
	}

	obs, err := extractReferenceRate(rates, currency, date)
	if err != nil {
		return nil, err
	}
	return &obs, nil
}

func (f *Frankfurter) FetchRange(ctx context.Context, currency model.Currency, from, to time.Time) ([]model.RateObservation, error) {
	if from.After(to) {
		return nil, fmt.Errorf("%w: from %s is after to %s", apperrors.ErrInvalidInput, utils.FormatDate(from), utils.FormatDate(to))
	}

	endpoint := fmt.Sprintf("%s/%s..%s?%s", f.baseURL, utils.FormatDate(from), utils.FormatDate(to), f.query(currency))

	env, err := f.get(ctx, endpointRange, endpoint)
	if err != nil {
		return nil, err
	}

	var byDate map[string]map[string]decimal.Decimal
	if len(env.Rates) > 0 {
		if err := json.Unmarshal(env.Rates, &byDate); err != nil {
			return nil, fmt.Errorf("%w: malformed rate series for %s: %v", apperrors.ErrNoData, currency, err)
		}
	}

	history := make([]model.RateObservation, 0, len(byDate))
	for dateStr, rates := range byDate {
		date, err := utils.ParseDate(dateStr)
		if err != nil {
			f.log.Warn("Skipping malformed date in rate series", "currency", currency, "date", dateStr)
			continue
		}
		obs, err := extractReferenceRate(rates, currency, date)
		if err != nil {
			f.log.Warn("Skipping unusable day in rate series", "currency", currency, "date", dateStr, "error", err)
			continue
		}
		history = append(history, obs)
	}

	if len(history) == 0 {
		return nil, fmt.Errorf("%w: empty rate series for %s between %s and %s",
			apperrors.ErrNoData, currency, utils.FormatDate(from), utils.FormatDate(to))
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].AsOf.Before(history[j].AsOf)
	})

	return history, nil
}

func (f *Frankfurter) query(currency model.Currency) string {
	q := url.Values{}
	q.Set("from", currency.String())
	q.Set("to", model.ReferenceCurrency.String())
	return q.Encode()
}

// get performs the request under a bounded timeout. Anything that prevents reading a
// JSON document is reported as ErrSourceUnavailable.
func (f *Frankfurter) get(ctx context.Context, name, endpoint string) (*frankfurterEnvelope, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	env, err := f.do(ctx, endpoint)
	f.observe(name, start, err)
	if err != nil {
		f.log.Error("Rate source request failed", "endpoint", name, "error", err)
		return nil, err
	}
	return env, nil
}

func (f *Frankfurter) do(ctx context.Context, endpoint string) (*frankfurterEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", apperrors.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: request timed out after %s", apperrors.ErrSourceUnavailable, f.timeout)
		}
		return nil, fmt.Errorf("%w: failed to send request: %v", apperrors.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API returned non-OK status: %d", apperrors.ErrSourceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", apperrors.ErrSourceUnavailable, err)
	}

	var env frankfurterEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", apperrors.ErrSourceUnavailable, err)
	}

	return &env, nil
}

func (f *Frankfurter) observe(endpoint string, start time.Time, err error) {
	if f.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	f.metrics.SourceRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	f.metrics.SourceRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func parseEnvelopeDate(raw json.RawMessage) (time.Time, error) {
	var dateStr string
	if err := json.Unmarshal(raw, &dateStr); err != nil {
		return time.Time{}, fmt.Errorf("malformed date %s", raw)
	}
	date, err := utils.ParseDate(dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed date %q", dateStr)
	}
	return date, nil
}

// extractReferenceRate picks the reference-currency entry out of a payload that may
// quote several targets.
func extractReferenceRate(rates map[string]decimal.Decimal, currency model.Currency, date time.Time) (model.RateObservation, error) {
	price, ok := rates[model.ReferenceCurrency.String()]
	if !ok {
		return model.RateObservation{}, fmt.Errorf("%w: no %s rate for %s", apperrors.ErrNoData, model.ReferenceCurrency, currency)
	}

	obs, err := model.NewRateObservation(currency, price, date)
	if err != nil {
		return model.RateObservation{}, fmt.Errorf("%w: %v", apperrors.ErrNoData, err)
	}
	return obs, nil
}
