package service

import (
	"sync"

	"currency-tracker/internal/domain/model"
)

// currencyLocks hands out one mutex per currency. It serializes append+cache refresh
// against read-through population for that currency only.
type currencyLocks struct {
	mutex sync.Mutex
	locks map[model.Currency]*sync.Mutex
}

func newCurrencyLocks() *currencyLocks {
	return &currencyLocks{locks: make(map[model.Currency]*sync.Mutex)}
}

func (l *currencyLocks) Lock(currency model.Currency) (unlock func()) {
	l.mutex.Lock()
	m, ok := l.locks[currency]
	if !ok {
		m = &sync.Mutex{}
		l.locks[currency] = m
	}
	l.mutex.Unlock()

	m.Lock()
	return m.Unlock
}
