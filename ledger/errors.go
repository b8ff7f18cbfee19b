package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when an input fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrActiveInvoice is returned when invoicing a job that already carries a
	// non-canceled invoice.
	ErrActiveInvoice = errors.New("job already has an active invoice")

	// ErrDuplicateInvoiceNumber is returned when a caller-supplied invoice
	// number is already taken.
	ErrDuplicateInvoiceNumber = errors.New("invoice number already exists")
)

// NotFoundError reports that an invoice, payment or job id does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
