package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
)

// maxTicketAttempts bounds the retries when a generated ticket id is taken.
const maxTicketAttempts = 8

// newTicketID returns a short token operators can type from a printed
// receipt: the first eight hex digits of a random UUID, uppercased.
var newTicketID = func() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// NormalizeTicketID trims and uppercases a ticket id as typed by an operator.
func NormalizeTicketID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// ReturnResult is the outcome of one return entry. ReturnedID is the record
// that now holds the returned units: the original loan after a full return,
// the new split-off record after a partial one.
type ReturnResult struct {
	LoanID     int64
	ReturnedID int64
	Err        error
}

// Checkout lends items to a worker as one transaction and returns the ticket
// id shared by every line. Either all lines are recorded and all stock is
// decremented, or nothing changes.
func Checkout(ctx context.Context, s db.Storage, workerID string, items []model.CheckoutItem) (string, error) {
	if len(items) == 0 {
		return "", ErrNoItems
	}
	items = slices.Clone(items)
	for i := range items {
		items[i].ProductID = NormalizeProductID(items[i].ProductID)
		if items[i].Quantity <= 0 || items[i].Quantity > model.MaxStock {
			return "", fmt.Errorf("item %s quantity %d: %w", items[i].ProductID, items[i].Quantity, ErrInvalidQuantity)
		}
	}

	workerID = model.NormalizeWorkerID(workerID)
	if workerID == "" {
		return "", ErrUnknownWorker
	}

	var ticketID string
	err := s.WithTx(ctx, func(tx db.Execer) error {
		if _, err := GetWorker(ctx, tx, workerID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("worker %s: %w", workerID, ErrUnknownWorker)
			}
			return err
		}

		var err error
		ticketID, err = allocateTicketID(ctx, tx)
		if err != nil {
			return err
		}

		// Lock in a fixed order so concurrent checkouts touching the same
		// products cannot deadlock.
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		slices.Sort(ids)
		ids = slices.Compact(ids)

		products := make(map[string]*model.Product, len(ids))
		for _, id := range ids {
			p, err := lockProduct(ctx, tx, id)
			if err != nil {
				return fmt.Errorf("checking out %s: %w", id, err)
			}
			products[id] = p
		}

		checkoutAt := timestamp()
		for _, it := range items {
			p := products[it.ProductID]
			if err := adjustStock(ctx, tx, p.ID, -it.Quantity); err != nil {
				return fmt.Errorf("checking out %s: %w", p.ID, err)
			}

			status := model.LoanActive
			if p.Category == model.CategoryConsumable {
				status = model.LoanConsumed
			}

			_, err := tx.Exec(ctx,
				`INSERT INTO loans (transaction_id, worker_id, product_id, category, quantity, checkout_at, status)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				ticketID, workerID, p.ID, p.Category, it.Quantity, checkoutAt, status,
			)
			if err != nil {
				return fmt.Errorf("recording loan: %w", err)
			}
		}

		return recordAudit(ctx, tx, ActionCheckout,
			fmt.Sprintf("ticket %s worker %s: %d lines", ticketID, workerID, len(items)))
	})
	if err != nil {
		return "", err
	}
	return ticketID, nil
}

func allocateTicketID(ctx context.Context, tx db.Execer) (string, error) {
	for range maxTicketAttempts {
		id := newTicketID()
		row, err := db.QueryOne(ctx, tx, `SELECT 1 AS taken FROM loans WHERE transaction_id = ? LIMIT 1`, id)
		if err != nil {
			return "", fmt.Errorf("checking ticket id: %w", err)
		}
		if row == nil {
			return id, nil
		}
	}
	return "", fmt.Errorf("allocating ticket id: %d attempts collided", maxTicketAttempts)
}

// ReturnItems processes return entries in one transaction. Entries that fail
// validation are reported in their ReturnResult and change nothing; the
// others are applied. A storage error aborts the whole batch.
//
// Loans are locked in id order and their products in id order before any
// row is written, so a batch never waits on a lock while holding a product
// another transaction needs.
func ReturnItems(ctx context.Context, s db.Storage, entries []model.ReturnEntry) ([]ReturnResult, error) {
	if len(entries) == 0 {
		return nil, ErrNoItems
	}

	results := make([]ReturnResult, len(entries))
	err := s.WithTx(ctx, func(tx db.Execer) error {
		loans, err := lockLoans(ctx, tx, entries)
		if err != nil {
			return err
		}

		productIDs := make([]string, 0, len(loans))
		for _, l := range loans {
			if l.Status == model.LoanActive {
				productIDs = append(productIDs, l.ProductID)
			}
		}
		slices.Sort(productIDs)
		for _, id := range slices.Compact(productIDs) {
			if _, err := lockProduct(ctx, tx, id); err != nil {
				return fmt.Errorf("returning %s: %w", id, err)
			}
		}

		for i, e := range entries {
			results[i] = ReturnResult{LoanID: e.LoanID}
			loan := loans[e.LoanID]

			switch {
			case e.Quantity <= 0:
				results[i].Err = fmt.Errorf("loan %d quantity %d: %w", e.LoanID, e.Quantity, ErrInvalidQuantity)
				continue
			case loan == nil:
				results[i].Err = fmt.Errorf("loan %d: %w", e.LoanID, ErrNotFound)
				continue
			case loan.Status != model.LoanActive:
				results[i].Err = fmt.Errorf("loan %d is %s: %w", e.LoanID, loan.Status, ErrLoanNotActive)
				continue
			case e.Quantity > loan.Quantity:
				results[i].Err = fmt.Errorf("loan %d has %d units, %d returned: %w",
					e.LoanID, loan.Quantity, e.Quantity, ErrInvalidQuantity)
				continue
			}

			returnedID, err := returnLoan(ctx, tx, loan, e.Quantity)
			if err != nil {
				return err
			}
			results[i].ReturnedID = returnedID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// lockLoans locks every existing loan named by entries, in id order. Loans
// that do not exist are absent from the map.
func lockLoans(ctx context.Context, tx db.Execer, entries []model.ReturnEntry) (map[int64]*model.Loan, error) {
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if e.Quantity > 0 {
			ids = append(ids, e.LoanID)
		}
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	loans := make(map[int64]*model.Loan, len(ids))
	for _, id := range ids {
		loan, err := lockLoan(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if loan != nil {
			loans[id] = loan
		}
	}
	return loans, nil
}

// ReturnLatestForProduct fully returns the most recent active loan of a
// product, as when an operator scans a tool's code at the counter.
func ReturnLatestForProduct(ctx context.Context, s db.Storage, productID string) (ReturnResult, error) {
	productID = NormalizeProductID(productID)

	var result ReturnResult
	err := s.WithTx(ctx, func(tx db.Execer) error {
		row, err := db.QueryOne(ctx, tx,
			`SELECT `+loanColumns+` FROM loans
			 WHERE product_id = ? AND status = ?
			 ORDER BY id DESC LIMIT 1`+tx.Dialect().LockSuffix,
			productID, model.LoanActive,
		)
		if err != nil {
			return fmt.Errorf("finding active loan: %w", err)
		}
		if row == nil {
			return fmt.Errorf("active loan of %s: %w", productID, ErrNotFound)
		}

		loan := scanLoan(row)
		result.LoanID = loan.ID
		result.ReturnedID, err = returnLoan(ctx, tx, &loan, loan.Quantity)
		return err
	})
	if err != nil {
		return ReturnResult{}, err
	}
	return result, nil
}

func lockLoan(ctx context.Context, tx db.Execer, id int64) (*model.Loan, error) {
	row, err := db.QueryOne(ctx, tx,
		`SELECT `+loanColumns+` FROM loans WHERE id = ?`+tx.Dialect().LockSuffix, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	loan := scanLoan(row)
	return &loan, nil
}

// returnLoan puts quantity units of an active loan back in stock. A full
// return closes the loan itself; a partial one shrinks it and records the
// returned units as a new closed line of the same transaction. loan is
// updated to match the stored row.
func returnLoan(ctx context.Context, tx db.Execer, loan *model.Loan, quantity int) (int64, error) {
	if err := adjustStock(ctx, tx, loan.ProductID, quantity); err != nil {
		return 0, fmt.Errorf("restocking %s: %w", loan.ProductID, err)
	}

	returnedAt := timestamp()
	returnedID := loan.ID

	if quantity == loan.Quantity {
		_, err := tx.Exec(ctx,
			`UPDATE loans SET status = ?, returned_at = ? WHERE id = ?`,
			model.LoanReturned, returnedAt, loan.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("closing loan: %w", err)
		}
	} else {
		_, err := tx.Exec(ctx,
			`UPDATE loans SET quantity = quantity - ? WHERE id = ?`, quantity, loan.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("reducing loan: %w", err)
		}

		row, err := db.QueryOne(ctx, tx,
			`INSERT INTO loans (transaction_id, worker_id, product_id, category, quantity, checkout_at, returned_at, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			loan.TransactionID, loan.WorkerID, loan.ProductID, loan.Category, quantity,
			loan.CheckoutAt, returnedAt, model.LoanReturned,
		)
		if err != nil {
			return 0, fmt.Errorf("recording partial return: %w", err)
		}
		returnedID = row.Int64("id")
	}

	detail := fmt.Sprintf("ticket %s loan %d: %d of %d %s",
		loan.TransactionID, loan.ID, quantity, loan.Quantity, loan.ProductID)
	if err := recordAudit(ctx, tx, ActionReturn, detail); err != nil {
		return 0, err
	}

	if quantity == loan.Quantity {
		loan.Status = model.LoanReturned
		loan.ReturnedAt = &returnedAt
	} else {
		loan.Quantity -= quantity
	}
	return returnedID, nil
}
