// Package apperr defines the sentinel errors shared by the repository, the
// sync coordinator and the transport layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrRemote        = errors.New("remote error")
	ErrTimeout       = errors.New("operation timed out")
)
