package pricing

import (
	"errors"
	"fmt"

	"dex-pricing-lab/internal/storage"
)

// Entity kinds reported by EntityNotFoundError.
const (
	KindToken  = "token"
	KindPool   = "pool"
	KindBundle = "bundle"
)

// EntityNotFoundError reports a token, pool or bundle record that pricing
// expected to exist. It matches storage.ErrNotFound with errors.Is.
type EntityNotFoundError struct {
	Kind string
	ID   string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *EntityNotFoundError) Unwrap() error {
	return storage.ErrNotFound
}

// WrapNotFound converts storage.ErrNotFound into an EntityNotFoundError and
// passes other errors through with context.
func WrapNotFound(err error, kind, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &EntityNotFoundError{Kind: kind, ID: id}
	}
	return fmt.Errorf("load %s %s: %w", kind, id, err)
}

// AsEntityNotFound extracts an EntityNotFoundError from err.
func AsEntityNotFound(err error) (*EntityNotFoundError, bool) {
	var nf *EntityNotFoundError
	if errors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}
