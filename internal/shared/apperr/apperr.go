// Package apperr holds the error kinds shared between services and the HTTP
// layer. Services wrap them with %w; httpx maps them to status codes.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)
