package model

import (
	"fmt"
	"strings"

	"currency-tracker/internal/apperrors"
)

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	CHF Currency = "CHF"
	JPY Currency = "JPY"
	AUD Currency = "AUD"
	CAD Currency = "CAD"
	CZK Currency = "CZK"
	DKK Currency = "DKK"
	HUF Currency = "HUF"
	NOK Currency = "NOK"
	SEK Currency = "SEK"
	RON Currency = "RON"
	BGN Currency = "BGN"
	TRY Currency = "TRY"
	CNY Currency = "CNY"
	HKD Currency = "HKD"
	NZD Currency = "NZD"
	SGD Currency = "SGD"
	ZAR Currency = "ZAR"
	MXN Currency = "MXN"
	BRL Currency = "BRL"
	INR Currency = "INR"
	KRW Currency = "KRW"
	ILS Currency = "ILS"
	IDR Currency = "IDR"
	THB Currency = "THB"
	PHP Currency = "PHP"
	MYR Currency = "MYR"
	ISK Currency = "ISK"
)

// ReferenceCurrency is what every tracked rate is quoted against.
const ReferenceCurrency Currency = "PLN"

var SupportedCurrencies = []Currency{
	USD, EUR, GBP, CHF, JPY, AUD, CAD, CZK, DKK,
	HUF, NOK, SEK, RON, BGN, TRY, CNY, HKD, NZD, SGD,
	ZAR, MXN, BRL, INR, KRW, ILS, IDR, THB, PHP, MYR,
	ISK,
}

func (c Currency) IsSupported() bool {
	for _, supportedCurrency := range SupportedCurrencies {
		if c == supportedCurrency {
			return true
		}
	}
	return false
}

func (c Currency) String() string {
	return string(c)
}

// ParseCurrency normalizes case and whitespace, then checks membership.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.IsSupported() {
		return "", fmt.Errorf("%w: unsupported currency %q", apperrors.ErrInvalidInput, code)
	}
	return c, nil
}

// ParseCurrencies parses a list of codes, dropping duplicates while keeping order.
func ParseCurrencies(codes []string) ([]Currency, error) {
	seen := make(map[Currency]struct{}, len(codes))
	out := make([]Currency, 0, len(codes))
	for _, code := range codes {
		if strings.TrimSpace(code) == "" {
			continue
		}
		c, err := ParseCurrency(code)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
