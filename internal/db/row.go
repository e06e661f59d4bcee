package db

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Row is a result row keyed by column name. Values are normalized so that
// callers never branch on backend: text arrives as string, integers as
// int64, timestamps as time.Time where the driver parses them.
type Row map[string]any

func normalizeRow(m map[string]any) Row {
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			m[k] = string(b)
		}
	}
	return Row(m)
}

// IsNull reports whether the column is NULL or absent.
func (r Row) IsNull(col string) bool {
	return r[col] == nil
}

// String returns the column as a string.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the column as an int64. Numeric text (PostgreSQL SUM over
// bigint yields numeric) is parsed.
func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		if d, err := decimal.NewFromString(v); err == nil {
			return d.IntPart()
		}
	}
	return 0
}

// Int returns the column as an int.
func (r Row) Int(col string) int {
	return int(r.Int64(col))
}

// Decimal returns the column as a decimal.
func (r Row) Decimal(col string) decimal.Decimal {
	switch v := r[col].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	case int64:
		return decimal.NewFromInt(v)
	case float64:
		return decimal.NewFromFloat(v)
	case nil:
		return decimal.Zero
	default:
		d, err := decimal.NewFromString(fmt.Sprint(v))
		if err != nil {
			return decimal.Zero
		}
		return d
	}
}

// timeLayouts are the text forms timestamps take when a driver hands them
// back unparsed.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time returns the column as a UTC time, or the zero time.
func (r Row) Time(col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v.UTC()
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// NullTime returns the column as a time pointer, nil when NULL.
func (r Row) NullTime(col string) *time.Time {
	if r.IsNull(col) {
		return nil
	}
	t := r.Time(col)
	if t.IsZero() {
		return nil
	}
	return &t
}
