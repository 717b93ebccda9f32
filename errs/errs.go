// Package errs holds the error taxonomy shared by the services and the
// HTTP layer.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindStock
	KindGateway
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindStock:
		return "stock"
	case KindGateway:
		return "gateway"
	default:
		return "internal"
	}
}

// Error is a classified error. Msg is safe to show to clients, Err is the
// underlying cause and is only logged.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error   { return &Error{Kind: KindValidation, Msg: msg} }
func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Msg: msg} }
func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &Error{Kind: KindForbidden, Msg: msg} }
func Conflict(msg string) error     { return &Error{Kind: KindConflict, Msg: msg} }

// Gateway reports a payment-gateway failure: a bad callback signature
// (cause nil) or an unreachable/erroring gateway (cause set).
func Gateway(msg string, cause error) error {
	return &Error{Kind: KindGateway, Msg: msg, Err: cause}
}

func Internal(msg string, cause error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: cause}
}

// StockError reports that a product cannot cover the requested quantity.
type StockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	if e.Available <= 0 {
		if e.Name != "" {
			return fmt.Sprintf("%s is out of stock", e.Name)
		}
		return "Out of stock"
	}
	if e.Name != "" {
		return fmt.Sprintf("Insufficient stock for %s: only %d items available in stock", e.Name, e.Available)
	}
	return fmt.Sprintf("Only %d items available in stock", e.Available)
}

// KindOf classifies err. Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var se *StockError
	if errors.As(err, &se) {
		return KindStock
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-facing message of err, or fallback for
// unclassified errors.
func Message(err error, fallback string) string {
	var se *StockError
	if errors.As(err, &se) {
		return se.Error()
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Msg
	}
	return fallback
}
