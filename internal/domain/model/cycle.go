package model

import "time"

// CycleOutcome is the result of one currency within an ingestion cycle.
type CycleOutcome struct {
	Currency    Currency         `json:"currency"`
	Observation *RateObservation `json:"observation,omitempty"`
	Result      AppendResult     `json:"result,omitempty"`
	Err         error            `json:"-"`
	Error       string           `json:"error,omitempty"`
}

type CycleReport struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Outcomes   []CycleOutcome `json:"outcomes"`
}

func (r CycleReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

func (r CycleReport) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Outcome looks up the outcome for a currency.
func (r CycleReport) Outcome(c Currency) (CycleOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Currency == c {
			return o, true
		}
	}
	return CycleOutcome{}, false
}

// BackfillReport counts what a range backfill did to the store.
type BackfillReport struct {
	Currency  Currency `json:"currency"`
	Fetched   int      `json:"fetched"`
	Inserted  int      `json:"inserted"`
	Replaced  int      `json:"replaced"`
	Unchanged int      `json:"unchanged"`
}
