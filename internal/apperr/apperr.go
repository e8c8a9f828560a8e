// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr defines the error taxonomy shared by the domain packages
// and the HTTP layer. Every validation failure carries a Kind so callers can
// tell bad input from a missing record, a refused permission, or a state
// conflict without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindInvalidOperation Kind = "invalid_operation"
	KindInternal         Kind = "internal"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string // machine-readable reason, e.g. "category_has_children"
	Message string // human-readable message safe to show to clients
	Err     error  // optional underlying cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap returns an Error of the given kind carrying err as its cause.
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func InvalidInput(code, message string) *Error {
	return New(KindInvalidInput, code, message)
}

func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func InvalidOperation(code, message string) *Error {
	return New(KindInvalidOperation, code, message)
}

// KindOf reports the Kind of err. Errors that were never classified are
// reported as KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is a classified error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a Kind to the HTTP status code returned to clients.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvalidOperation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the code and message that may be shown to a client.
// Internal errors are masked so driver or storage details never leak.
func Public(err error) (code, message string) {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Code, e.Message
	}
	return "internal_error", "Internal server error."
}
