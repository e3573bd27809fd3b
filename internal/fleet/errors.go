package fleet

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidRequest    = errors.New("invalid request")
)

// StepError is implemented by every error a command can fail with. It names the
// step that rejected the command and the entity involved.
type StepError interface {
	error
	FailedStep() string
	EntityID() string
}

// NotFoundError reports a reference to an entity the store does not hold.
type NotFoundError struct {
	Kind string
	ID   string
	Step string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %q not found", e.Step, e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
func (e *NotFoundError) FailedStep() string   { return e.Step }
func (e *NotFoundError) EntityID() string     { return e.ID }

// InsufficientStockError reports a consumption larger than the stock on hand.
type InsufficientStockError struct {
	ItemID    string
	Requested int
	Available int
	Step      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: item %q has %d in stock, %d requested", e.Step, e.ItemID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }
func (e *InsufficientStockError) FailedStep() string   { return e.Step }
func (e *InsufficientStockError) EntityID() string     { return e.ItemID }

// InvalidRequestError reports a malformed field in a request.
type InvalidRequestError struct {
	Field  string
	Reason string
	ID     string
	Step   string
}

func (e *InvalidRequestError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s of %q: %s", e.Step, e.Field, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Step, e.Field, e.Reason)
}

func (e *InvalidRequestError) Is(target error) bool { return target == ErrInvalidRequest }
func (e *InvalidRequestError) FailedStep() string   { return e.Step }
func (e *InvalidRequestError) EntityID() string     { return e.ID }

func notFound(step, kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id, Step: step}
}

func invalid(step, field, reason string) error {
	return &InvalidRequestError{Field: field, Reason: reason, Step: step}
}
