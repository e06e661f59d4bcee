package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
)

const productColumns = `id, name, unit_price, stock, category, created_at`

// NormalizeProductID trims and uppercases a product code.
func NormalizeProductID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func scanProduct(r db.Row) model.Product {
	return model.Product{
		ID:        r.String("id"),
		Name:      r.String("name"),
		UnitPrice: r.Decimal("unit_price"),
		Stock:     r.Int("stock"),
		Category:  r.String("category"),
		CreatedAt: r.Time("created_at"),
	}
}

// CreateProduct adds a product to the catalog.
func CreateProduct(ctx context.Context, s db.Storage, p model.Product) (*model.Product, error) {
	p.ID = NormalizeProductID(p.ID)
	p.Name = strings.TrimSpace(p.Name)

	switch {
	case p.ID == "":
		return nil, fmt.Errorf("product id required: %w", ErrInvalidInput)
	case p.Name == "":
		return nil, fmt.Errorf("product name required: %w", ErrInvalidInput)
	case !model.ValidCategory(p.Category):
		return nil, fmt.Errorf("unknown category %q: %w", p.Category, ErrInvalidInput)
	case p.Stock < 0 || p.Stock > model.MaxStock:
		return nil, fmt.Errorf("initial stock %d: %w", p.Stock, ErrInvalidQuantity)
	case p.UnitPrice.IsNegative():
		return nil, fmt.Errorf("negative unit price: %w", ErrInvalidInput)
	}

	err := s.WithTx(ctx, func(tx db.Execer) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO products (id, name, unit_price, stock, category, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.UnitPrice, p.Stock, p.Category, timestamp(),
		)
		if err != nil {
			return fmt.Errorf("creating product: %w", err)
		}
		return recordAudit(ctx, tx, ActionProductAdd, fmt.Sprintf("%s %q stock %d", p.ID, p.Name, p.Stock))
	})
	if err != nil {
		return nil, err
	}

	return GetProduct(ctx, s, p.ID)
}

// GetProduct returns a product by ID.
func GetProduct(ctx context.Context, ex db.Execer, id string) (*model.Product, error) {
	id = NormalizeProductID(id)
	row, err := db.QueryOne(ctx, ex, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	p := scanProduct(row)
	return &p, nil
}

// ListProducts returns the whole catalog ordered by name.
func ListProducts(ctx context.Context, ex db.Execer) ([]model.Product, error) {
	rows, err := ex.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	products := make([]model.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, scanProduct(r))
	}
	return products, nil
}

// SearchProducts matches q case-insensitively against product code or name.
func SearchProducts(ctx context.Context, ex db.Execer, q string, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"

	rows, err := ex.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE LOWER(name) LIKE ? OR LOWER(id) LIKE ?
		 ORDER BY name, id LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}

	products := make([]model.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, scanProduct(r))
	}
	return products, nil
}

// lockProduct reads a product row inside tx, locking it where the backend
// supports row locks.
func lockProduct(ctx context.Context, tx db.Execer, id string) (*model.Product, error) {
	row, err := db.QueryOne(ctx, tx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`+tx.Dialect().LockSuffix, id,
	)
	if err != nil {
		return nil, fmt.Errorf("locking product: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	p := scanProduct(row)
	return &p, nil
}
