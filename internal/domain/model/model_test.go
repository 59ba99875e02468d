package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"currency-tracker/internal/apperrors"
)

func TestParseCurrency(t *testing.T) {
	testCases := []struct {
		input    string
		expected Currency
		valid    bool
	}{
		{input: "EUR", expected: EUR, valid: true},
		{input: " usd ", expected: USD, valid: true},
		{input: "Chf", expected: CHF, valid: true},
		{input: "PLN", valid: false},
		{input: "XYZ", valid: false},
		{input: "", valid: false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			c, err := ParseCurrency(tc.input)
			if !tc.valid {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, c)
		})
	}
}

func TestParseCurrencies(t *testing.T) {
	got, err := ParseCurrencies([]string{"eur", "", "USD", "EUR ", "gbp"})
	require.NoError(t, err)
	assert.Equal(t, []Currency{EUR, USD, GBP}, got)

	_, err = ParseCurrencies([]string{"EUR", "ABC"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestNewRateObservation(t *testing.T) {
	asOf := time.Date(2024, 3, 8, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	o, err := NewRateObservation(EUR, decimal.RequireFromString("4.3215"), asOf)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 8, 16, 0, 0, 0, time.UTC), o.AsOf)
	assert.Equal(t, "EUR/PLN 4.3215 @ 2024-03-08", o.String())

	_, err = NewRateObservation(EUR, decimal.Zero, asOf)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = NewRateObservation(EUR, decimal.RequireFromString("-1"), asOf)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = NewRateObservation(ReferenceCurrency, decimal.NewFromInt(1), asOf)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRateObservation_EqualIgnoresTrailingZeros(t *testing.T) {
	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	a, _ := NewRateObservation(USD, decimal.RequireFromString("1.50"), day)
	b, _ := NewRateObservation(USD, decimal.RequireFromString("1.5"), day.Add(5*time.Hour))
	c, _ := NewRateObservation(USD, decimal.RequireFromString("1.51"), day)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestCycleReport(t *testing.T) {
	report := CycleReport{Outcomes: []CycleOutcome{
		{Currency: EUR, Result: AppendInserted},
		{Currency: USD, Err: apperrors.ErrSourceUnavailable},
		{Currency: GBP, Result: AppendUnchanged},
	}}

	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())

	usd, ok := report.Outcome(USD)
	require.True(t, ok)
	assert.ErrorIs(t, usd.Err, apperrors.ErrSourceUnavailable)

	_, ok = report.Outcome(CHF)
	assert.False(t, ok)
}
