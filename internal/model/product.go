package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a stock-keeping unit in the warehouse.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock"`
	Category  string          `json:"category"`
	CreatedAt time.Time       `json:"created_at"`
}

// MaxStock is the largest stock a product can hold. It fits the 32-bit
// INTEGER column on every backend.
const MaxStock = math.MaxInt32

// Product categories.
const (
	CategoryTool       = "TOOL"
	CategoryConsumable = "CONSUMABLE"
)

// ValidCategory reports whether c is a known product category.
func ValidCategory(c string) bool {
	return c == CategoryTool || c == CategoryConsumable
}

// WriteOff is a permanent stock removal (baja) for damaged or lost units.
type WriteOff struct {
	ID        int64     `json:"id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`

	// Joined fields (not always populated).
	ProductName string `json:"product_name,omitempty"`
}
