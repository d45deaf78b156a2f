package services

import (
	"errors"
	"fmt"

	"homeessence/internal/repos"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateCode     = errors.New("product code already registered")
	ErrInsufficientStock = repos.ErrInsufficientStock
)

// ValidationError is a user-facing form error tied to one field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// StockError names the product that could not be served.
type StockError struct {
	Code      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (requested %d, available %d)", e.Code, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }
