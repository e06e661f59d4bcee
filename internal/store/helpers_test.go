package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
)

// seed creates worker W1, tool P1 (stock 10) and consumable P2 (stock 50).
func seed(t *testing.T, s db.Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := SaveWorker(ctx, s, model.Worker{ID: "W1", Name: "Juan Perez", Contact: "juan@example.com"})
	require.NoError(t, err)

	_, err = CreateProduct(ctx, s, model.Product{
		ID: "P1", Name: "Drill", UnitPrice: decimal.RequireFromString("1000"), Stock: 10, Category: model.CategoryTool,
	})
	require.NoError(t, err)

	_, err = CreateProduct(ctx, s, model.Product{
		ID: "P2", Name: "Gloves", UnitPrice: decimal.RequireFromString("2.50"), Stock: 50, Category: model.CategoryConsumable,
	})
	require.NoError(t, err)
}

func stockOf(t *testing.T, s db.Storage, id string) int {
	t.Helper()
	p, err := GetProduct(context.Background(), s, id)
	require.NoError(t, err)
	return p.Stock
}

// activeQuantity sums the quantity of ACTIVE loans of a product.
func activeQuantity(t *testing.T, s db.Storage, productID string) int {
	t.Helper()
	row, err := db.QueryOne(context.Background(), s,
		`SELECT COALESCE(SUM(quantity), 0) AS n FROM loans WHERE product_id = ? AND status = ?`,
		productID, model.LoanActive,
	)
	require.NoError(t, err)
	return row.Int("n")
}

func loanByID(t *testing.T, s db.Storage, id int64) model.Loan {
	t.Helper()
	row, err := db.QueryOne(context.Background(), s, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)
	require.NoError(t, err)
	require.NotNil(t, row, "loan %d", id)
	return scanLoan(row)
}
