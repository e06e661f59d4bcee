package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/shopspring/decimal"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
)

// DefaultMovementLimit caps the movement report when no limit is given.
const DefaultMovementLimit = 500

// MovementFilter narrows the movement report.
type MovementFilter struct {
	// Search matches worker id, product id or product name, case-insensitively.
	Search string

	// Status keeps only loans in this status when set.
	Status string

	// Since keeps only loans checked out at or after this time when set.
	Since time.Time

	Limit int
}

func loanLineSelect(dialect db.Dialect) *goqu.SelectDataset {
	return goqu.Dialect(dialect.Goqu).
		From(goqu.T("loans").As("l")).
		Join(goqu.T("products").As("p"), goqu.On(goqu.I("p.id").Eq(goqu.I("l.product_id")))).
		Select(
			goqu.I("l.id"), goqu.I("l.transaction_id"), goqu.I("l.worker_id"), goqu.I("l.product_id"),
			goqu.I("l.category"), goqu.I("l.quantity"), goqu.I("l.checkout_at"), goqu.I("l.returned_at"),
			goqu.I("l.status"), goqu.I("p.name").As("product_name"), goqu.I("p.unit_price"),
		).
		Prepared(true)
}

func queryLoanLines(ctx context.Context, ex db.Execer, ds *goqu.SelectDataset) ([]model.LoanLine, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := ex.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanLoanLines(rows), nil
}

func lineValue(l model.LoanLine) decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ListMovements returns loan lines newest first, with the value and unit
// count of the consumables among them.
func ListMovements(ctx context.Context, ex db.Execer, f MovementFilter) (*model.MovementReport, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultMovementLimit
	}

	var where []exp.Expression
	if q := strings.ToUpper(strings.TrimSpace(f.Search)); q != "" {
		pattern := "%" + q + "%"
		where = append(where, goqu.Or(
			goqu.Func("UPPER", goqu.I("l.worker_id")).Like(pattern),
			goqu.Func("UPPER", goqu.I("l.product_id")).Like(pattern),
			goqu.Func("UPPER", goqu.I("p.name")).Like(pattern),
		))
	}
	if f.Status != "" {
		where = append(where, goqu.I("l.status").Eq(f.Status))
	}
	if !f.Since.IsZero() {
		where = append(where, goqu.I("l.checkout_at").Gte(f.Since.UTC()))
	}

	ds := loanLineSelect(ex.Dialect()).
		Where(where...).
		Order(goqu.I("l.checkout_at").Desc(), goqu.I("l.id").Desc()).
		Limit(uint(f.Limit))

	lines, err := queryLoanLines(ctx, ex, ds)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}

	report := &model.MovementReport{
		Movements:       make([]model.Movement, 0, len(lines)),
		ConsumableValue: decimal.Zero,
	}
	for _, l := range lines {
		v := lineValue(l)
		report.Movements = append(report.Movements, model.Movement{LoanLine: l, Value: v})
		if l.Category == model.CategoryConsumable {
			report.ConsumableValue = report.ConsumableValue.Add(v)
			report.ConsumableUnits += l.Quantity
		}
	}
	return report, nil
}

// GetSummary returns the dashboard figures. Day boundaries follow loc.
func GetSummary(ctx context.Context, ex db.Execer, now time.Time, loc *time.Location) (*model.Summary, error) {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := now.In(loc).Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, loc).UTC()

	consumed, err := queryLoanLines(ctx, ex, loanLineSelect(ex.Dialect()).Where(
		goqu.I("l.status").Eq(model.LoanConsumed),
		goqu.I("l.checkout_at").Gte(startOfDay),
	))
	if err != nil {
		return nil, fmt.Errorf("summing consumables: %w", err)
	}

	active, err := queryLoanLines(ctx, ex, loanLineSelect(ex.Dialect()).
		Where(goqu.I("l.status").Eq(model.LoanActive)).
		Order(goqu.I("l.checkout_at").Desc(), goqu.I("l.id").Desc()))
	if err != nil {
		return nil, fmt.Errorf("listing active loans: %w", err)
	}

	s := &model.Summary{
		ConsumedTodayValue: decimal.Zero,
		ActiveLoanValue:    decimal.Zero,
		ActiveLoanCount:    len(active),
		InUse:              active,
	}
	for _, l := range consumed {
		s.ConsumedTodayValue = s.ConsumedTodayValue.Add(lineValue(l))
	}
	for _, l := range active {
		s.ActiveLoanValue = s.ActiveLoanValue.Add(lineValue(l))
	}
	return s, nil
}
