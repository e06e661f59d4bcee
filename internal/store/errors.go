package store

import (
	"errors"
	"fmt"
)

// Domain errors. Callers test for them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrUnknownWorker     = errors.New("unknown worker")
	ErrNoItems           = errors.New("no items")
	ErrLoanNotActive     = errors.New("loan is not active")
	ErrInvalidInput      = errors.New("invalid input")
)

// StockError reports a decrement that would take a product below zero.
type StockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available, %d requested", e.ProductID, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }
