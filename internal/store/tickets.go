package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
)

const loanColumns = `id, transaction_id, worker_id, product_id, category, quantity, checkout_at, returned_at, status`

const loanLineQuery = `SELECT l.id, l.transaction_id, l.worker_id, l.product_id, l.category, l.quantity,
       l.checkout_at, l.returned_at, l.status, p.name AS product_name, p.unit_price
FROM loans l
JOIN products p ON p.id = l.product_id`

func scanLoan(r db.Row) model.Loan {
	return model.Loan{
		ID:            r.Int64("id"),
		TransactionID: r.String("transaction_id"),
		WorkerID:      r.String("worker_id"),
		ProductID:     r.String("product_id"),
		Category:      r.String("category"),
		Quantity:      r.Int("quantity"),
		CheckoutAt:    r.Time("checkout_at"),
		ReturnedAt:    r.NullTime("returned_at"),
		Status:        r.String("status"),
	}
}

func scanLoanLines(rows []db.Row) []model.LoanLine {
	lines := make([]model.LoanLine, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, model.LoanLine{
			Loan:        scanLoan(r),
			ProductName: r.String("product_name"),
			UnitPrice:   r.Decimal("unit_price"),
		})
	}
	return lines
}

// GetTicketLines returns every line of a transaction in insertion order,
// including lines that were returned or split off later.
func GetTicketLines(ctx context.Context, ex db.Execer, ticketID string) ([]model.LoanLine, error) {
	ticketID = NormalizeTicketID(ticketID)
	rows, err := ex.Query(ctx, loanLineQuery+` WHERE l.transaction_id = ? ORDER BY l.id`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("getting ticket lines: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ticket %s: %w", ticketID, ErrNotFound)
	}
	return scanLoanLines(rows), nil
}

// GetTicket returns a printable ticket: header data and all lines.
func GetTicket(ctx context.Context, ex db.Execer, ticketID string) (*model.Ticket, error) {
	lines, err := GetTicketLines(ctx, ex, ticketID)
	if err != nil {
		return nil, err
	}

	settings, err := GetSettings(ctx, ex)
	if err != nil {
		return nil, err
	}

	t := &model.Ticket{
		ID:             NormalizeTicketID(ticketID),
		WorkerID:       lines[0].WorkerID,
		WorkerName:     model.UnregisteredWorkerName,
		CheckoutAt:     lines[0].CheckoutAt,
		CompanyName:    settings.CompanyName,
		CompanyAddress: settings.CompanyAddress,
		Footer:         settings.TicketFooter,
		Lines:          lines,
	}

	w, err := GetWorker(ctx, ex, t.WorkerID)
	switch {
	case err == nil:
		t.WorkerName = w.Name
		t.Registered = true
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	return t, nil
}

// GetActiveLoansForTicket returns the tool lines of a ticket still out.
func GetActiveLoansForTicket(ctx context.Context, ex db.Execer, ticketID string) ([]model.LoanLine, error) {
	rows, err := ex.Query(ctx,
		loanLineQuery+` WHERE l.transaction_id = ? AND l.status = ? AND l.category = ? ORDER BY l.id`,
		NormalizeTicketID(ticketID), model.LoanActive, model.CategoryTool,
	)
	if err != nil {
		return nil, fmt.Errorf("getting active ticket loans: %w", err)
	}
	return scanLoanLines(rows), nil
}

// GetActiveLoansForWorker returns the tools a worker still holds. Rows are
// matched on the normalized id and on the uppercased id as given, since rows
// written before normalization carry that form.
func GetActiveLoansForWorker(ctx context.Context, ex db.Execer, workerID string) ([]model.LoanLine, error) {
	raw := strings.ToUpper(strings.TrimSpace(workerID))
	rows, err := ex.Query(ctx,
		loanLineQuery+` WHERE l.worker_id IN (?, ?) AND l.status = ? AND l.category = ? ORDER BY l.id`,
		model.NormalizeWorkerID(raw), raw, model.LoanActive, model.CategoryTool,
	)
	if err != nil {
		return nil, fmt.Errorf("getting active worker loans: %w", err)
	}
	return scanLoanLines(rows), nil
}
