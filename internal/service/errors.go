package service

import (
	"errors"
	"fmt"

	"github.com/Subby02/web-project/internal/store"
)

var (
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNoOrderableItems = errors.New("no orderable items")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrInvalidDiscount  = errors.New("invalid discount")
)

// IsValidation reports whether err is caused by bad caller input.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrMissingField,
		ErrInvalidQuantity,
		ErrEmptyCart,
		ErrNoOrderableItems,
		ErrInvalidRange,
		ErrInvalidDiscount,
		store.ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, store.ErrNotFound)
}
