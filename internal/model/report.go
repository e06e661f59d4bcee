package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement is a loan line as listed in the movements report.
type Movement struct {
	LoanLine
	Value decimal.Decimal `json:"value"`
}

// MovementReport is the filtered movement list with consumable totals.
type MovementReport struct {
	Movements       []Movement      `json:"movements"`
	ConsumableValue decimal.Decimal `json:"consumable_value"`
	ConsumableUnits int             `json:"consumable_units"`
}

// Summary is the dashboard overview.
type Summary struct {
	ConsumedTodayValue decimal.Decimal `json:"consumed_today_value"`
	ActiveLoanValue    decimal.Decimal `json:"active_loan_value"`
	ActiveLoanCount    int             `json:"active_loan_count"`
	InUse              []LoanLine      `json:"in_use"`
}

// AuditEntry is one append-only audit trail record.
type AuditEntry struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail"`
}
