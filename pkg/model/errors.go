package model

import (
	"errors"
	"fmt"
)

// Named failure conditions reported to callers. None of them is fatal to the
// engine; each is scoped to the single operation that raised it and leaves
// the book untouched.
var (
	ErrInvalidOrder  = errors.New("invalid order")
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderInactive = errors.New("order no longer active")
	ErrUnknownAsset  = errors.New("unknown asset")
)

// ValidateEnter checks the arguments of an enter operation before any book
// mutation. It does NOT perform business checks like available holdings;
// those belong to the caller.
func ValidateEnter(price, volume int64, pcode, assetName string) error {
	if price <= 0 {
		return fmt.Errorf("%w: price must be > 0, got %d", ErrInvalidOrder, price)
	}
	if volume <= 0 {
		return fmt.Errorf("%w: volume must be > 0, got %d", ErrInvalidOrder, volume)
	}
	if pcode == "" {
		return fmt.Errorf("%w: pcode is required", ErrInvalidOrder)
	}
	if assetName == "" {
		return fmt.Errorf("%w: asset name is required", ErrInvalidOrder)
	}
	return nil
}
