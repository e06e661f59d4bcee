package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
)

// AdjustStock applies delta to a product's stock. A decrement that would
// leave stock negative fails with a *StockError and changes nothing.
func AdjustStock(ctx context.Context, s db.Storage, productID string, delta int) error {
	productID = NormalizeProductID(productID)
	return s.WithTx(ctx, func(tx db.Execer) error {
		if err := adjustStock(ctx, tx, productID, delta); err != nil {
			return err
		}
		return recordAudit(ctx, tx, ActionAdjustStock, fmt.Sprintf("%s %+d", productID, delta))
	})
}

// adjustStock is the single conditional update every stock change goes
// through. The guard lives in the WHERE clause so the check and the write
// are one statement.
func adjustStock(ctx context.Context, tx db.Execer, productID string, delta int) error {
	if delta == 0 {
		return fmt.Errorf("delta must be non-zero: %w", ErrInvalidQuantity)
	}
	if delta > model.MaxStock || delta < -model.MaxStock {
		return fmt.Errorf("delta %d out of range: %w", delta, ErrInvalidQuantity)
	}

	res, err := tx.Exec(ctx,
		`UPDATE products SET stock = stock + ?
		 WHERE id = ? AND CAST(stock AS BIGINT) + ? BETWEEN 0 AND ?`,
		delta, productID, delta, model.MaxStock,
	)
	if err != nil {
		return fmt.Errorf("adjusting stock: %w", err)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	row, err := db.QueryOne(ctx, tx, `SELECT stock FROM products WHERE id = ?`, productID)
	if err != nil {
		return fmt.Errorf("checking stock: %w", err)
	}
	if row == nil {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	if delta > 0 {
		return fmt.Errorf("stock of %s would exceed %d: %w", productID, model.MaxStock, ErrInvalidQuantity)
	}
	return &StockError{ProductID: productID, Available: row.Int("stock"), Requested: -delta}
}

// SetStock overwrites a product's stock after a physical recount.
func SetStock(ctx context.Context, s db.Storage, productID string, value int) error {
	if value < 0 || value > model.MaxStock {
		return fmt.Errorf("stock %d: %w", value, ErrInvalidQuantity)
	}
	productID = NormalizeProductID(productID)

	return s.WithTx(ctx, func(tx db.Execer) error {
		p, err := lockProduct(ctx, tx, productID)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE products SET stock = ? WHERE id = ?`, value, productID); err != nil {
			return fmt.Errorf("setting stock: %w", err)
		}
		return recordAudit(ctx, tx, ActionSetStock, fmt.Sprintf("%s %d -> %d", productID, p.Stock, value))
	})
}

// WriteOff permanently removes quantity units of a product and records why.
func WriteOff(ctx context.Context, s db.Storage, productID string, quantity int, reason string) (*model.WriteOff, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("write-off quantity %d: %w", quantity, ErrInvalidQuantity)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("write-off reason required: %w", ErrInvalidInput)
	}

	wo := &model.WriteOff{
		ProductID: NormalizeProductID(productID),
		Quantity:  quantity,
		Reason:    reason,
		CreatedAt: timestamp(),
		CreatedBy: ActorFromContext(ctx),
	}

	err := s.WithTx(ctx, func(tx db.Execer) error {
		if err := adjustStock(ctx, tx, wo.ProductID, -quantity); err != nil {
			return err
		}

		row, err := db.QueryOne(ctx, tx,
			`INSERT INTO write_offs (product_id, quantity, reason, created_at, created_by)
			 VALUES (?, ?, ?, ?, ?) RETURNING id`,
			wo.ProductID, wo.Quantity, wo.Reason, wo.CreatedAt, wo.CreatedBy,
		)
		if err != nil {
			return fmt.Errorf("recording write-off: %w", err)
		}
		wo.ID = row.Int64("id")

		return recordAudit(ctx, tx, ActionWriteOff, fmt.Sprintf("%s -%d: %s", wo.ProductID, quantity, reason))
	})
	if err != nil {
		return nil, err
	}
	return wo, nil
}

// ListWriteOffs returns the most recent write-offs, newest first.
func ListWriteOffs(ctx context.Context, ex db.Execer, limit int) ([]model.WriteOff, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := ex.Query(ctx,
		`SELECT w.id, w.product_id, w.quantity, w.reason, w.created_at, w.created_by,
		        p.name AS product_name
		 FROM write_offs w
		 JOIN products p ON p.id = w.product_id
		 ORDER BY w.id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing write-offs: %w", err)
	}

	writeOffs := make([]model.WriteOff, 0, len(rows))
	for _, r := range rows {
		writeOffs = append(writeOffs, model.WriteOff{
			ID:          r.Int64("id"),
			ProductID:   r.String("product_id"),
			Quantity:    r.Int("quantity"),
			Reason:      r.String("reason"),
			CreatedAt:   r.Time("created_at"),
			CreatedBy:   r.String("created_by"),
			ProductName: r.String("product_name"),
		})
	}
	return writeOffs, nil
}
