package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan statuses.
const (
	LoanActive   = "ACTIVE"
	LoanReturned = "RETURNED"
	LoanConsumed = "CONSUMED"
)

// Loan is one line of a checkout transaction.
type Loan struct {
	ID            int64      `json:"id"`
	TransactionID string     `json:"transaction_id"`
	WorkerID      string     `json:"worker_id"`
	ProductID     string     `json:"product_id"`
	Category      string     `json:"category"`
	Quantity      int        `json:"quantity"`
	CheckoutAt    time.Time  `json:"checkout_at"`
	ReturnedAt    *time.Time `json:"returned_at,omitempty"`
	Status        string     `json:"status"`
}

// LoanLine is a loan joined with product display data.
type LoanLine struct {
	Loan
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CheckoutItem is one requested (product, quantity) pair.
type CheckoutItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ReturnEntry asks for quantity units of a loan to be returned.
type ReturnEntry struct {
	LoanID   int64 `json:"loan_id"`
	Quantity int   `json:"quantity"`
}

// Ticket is a receipt: the header printed above the lines of one transaction.
type Ticket struct {
	ID             string     `json:"id"`
	WorkerID       string     `json:"worker_id"`
	WorkerName     string     `json:"worker_name"`
	Registered     bool       `json:"registered"`
	CheckoutAt     time.Time  `json:"checkout_at"`
	CompanyName    string     `json:"company_name"`
	CompanyAddress string     `json:"company_address"`
	Footer         string     `json:"footer"`
	Lines          []LoanLine `json:"lines"`
}

// UnregisteredWorkerName is shown on tickets whose worker is not in the directory.
const UnregisteredWorkerName = "NOT REGISTERED"
