package apperrors

import "errors"

// ErrInvalidInput is returned for malformed input (unknown currency, inverted date range,
// negative window). It is always detected before any network or store access.
var ErrInvalidInput = errors.New("invalid input")

// ErrSourceUnavailable covers transport failures, timeouts and provider errors.
var ErrSourceUnavailable = errors.New("rate source unavailable")

// ErrNoData means the provider answered but the payload held nothing usable.
var ErrNoData = errors.New("no rate data")

// ErrNotFound means the store has no observation yet for a currency.
var ErrNotFound = errors.New("rate not found")
