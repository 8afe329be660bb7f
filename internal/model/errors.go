package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures the caller can act on.
type ErrorKind string

// Error kinds.
const (
	KindNotFound          ErrorKind = "not_found"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindSlotUnavailable   ErrorKind = "slot_unavailable"
	KindConflict          ErrorKind = "conflict"
)

// Error is a domain failure with a kind and a human-readable reason.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return e.Reason
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// holds for every not-found failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrSlotUnavailable   = &Error{Kind: KindSlotUnavailable}
	ErrConflict          = &Error{Kind: KindConflict}
)

func newf(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a not-found error.
func NotFoundf(format string, args ...any) error { return newf(KindNotFound, format, args...) }

// InsufficientStockf returns an insufficient-stock error.
func InsufficientStockf(format string, args ...any) error {
	return newf(KindInsufficientStock, format, args...)
}

// InvalidInputf returns an invalid-input error.
func InvalidInputf(format string, args ...any) error { return newf(KindInvalidInput, format, args...) }

// SlotUnavailablef returns a slot-unavailable error.
func SlotUnavailablef(format string, args ...any) error {
	return newf(KindSlotUnavailable, format, args...)
}

// Conflictf returns a conflict error.
func Conflictf(format string, args ...any) error { return newf(KindConflict, format, args...) }

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
