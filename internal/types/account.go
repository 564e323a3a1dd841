package types

import "time"

type AccountStatus string

const (
	AccountStatusRunning AccountStatus = "running"
	AccountStatusStopped AccountStatus = "stopped"
)

// AccountState is the complete snapshot of a paper-trading account. It is
// the single source of truth for restarts: a restore rehydrates cash,
// positions, the full trade history, and every order (including
// still-pending ones) from this document. Persistence is a one-way
// export of the in-memory state, never a merge.
type AccountState struct {
	ID             string              `json:"id" yaml:"id"`
	Name           string              `json:"name,omitempty" yaml:"name,omitempty"`
	InitialCapital float64             `json:"initial_capital" yaml:"initial_capital"`
	CommissionRate float64             `json:"commission" yaml:"commission"`
	SlippageRate   float64             `json:"slippage" yaml:"slippage"`
	Cash           float64             `json:"cash" yaml:"cash"`
	Positions      map[string]Position `json:"positions" yaml:"positions"`
	Trades         []Trade             `json:"trades" yaml:"trades"`
	Orders         []Order             `json:"orders" yaml:"orders"`
	Status         AccountStatus       `json:"status" yaml:"status"`
	CreatedAt      time.Time           `json:"created_at" yaml:"created_at"`
	LastUpdate     time.Time           `json:"last_update" yaml:"last_update"`
	StoppedAt      time.Time           `json:"stopped_at,omitzero" yaml:"stopped_at,omitempty"`
}

// AccountSummary is the listing view of an account.
type AccountSummary struct {
	ID             string        `json:"id" yaml:"id"`
	Name           string        `json:"name" yaml:"name"`
	Status         AccountStatus `json:"status" yaml:"status"`
	InitialCapital float64       `json:"initial_capital" yaml:"initial_capital"`
	// CurrentValue is cash plus positions marked at the last known prices.
	CurrentValue float64   `json:"current_value" yaml:"current_value"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}
