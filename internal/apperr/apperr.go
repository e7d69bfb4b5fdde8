// Package apperr holds the domain error taxonomy shared by the catalog and
// order packages. Boundary code classifies errors with Kind and pulls the
// structured detail out with errors.As.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidCancellation = errors.New("invalid cancellation")
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a missing product or order addressed by id.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ProductNotFoundError is raised mid-reservation when an order line points at
// an unknown product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with ID %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrProductNotFound }

type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	label := e.ProductID
	if e.Name != "" {
		label = e.Name
	}
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d", label, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Status)
}

func (e *InvalidStatusError) Is(target error) bool { return target == ErrInvalidStatus }

// InvalidTransitionError is a recognized status that the order cannot move to
// from its current one.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidStatus }

type InvalidCancellationError struct {
	OrderID string
	Status  string
}

func (e *InvalidCancellationError) Error() string {
	if e.Status == "cancelled" {
		return fmt.Sprintf("order %s is already cancelled", e.OrderID)
	}
	return fmt.Sprintf("cannot cancel order %s: order has been %s", e.OrderID, e.Status)
}

func (e *InvalidCancellationError) Is(target error) bool { return target == ErrInvalidCancellation }

// ErrorKind names the taxonomy bucket of an error.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindProductNotFound
	KindInsufficientStock
	KindInvalidStatus
	KindInvalidCancellation
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindProductNotFound:
		return "product_not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindInvalidStatus:
		return "invalid_status"
	case KindInvalidCancellation:
		return "invalid_cancellation"
	default:
		return "internal"
	}
}

// Kind classifies err. Anything outside the taxonomy is KindInternal.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrProductNotFound):
		return KindProductNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidStatus):
		return KindInvalidStatus
	case errors.Is(err, ErrInvalidCancellation):
		return KindInvalidCancellation
	default:
		return KindInternal
	}
}
