package storage

import "errors"

// ErrUnavailable marks a transient backend failure. Every lifecycle action is
// idempotent, so callers surface these as retryable 500s.
var ErrUnavailable = errors.New("record store unavailable")

// ErrAlreadyExists is returned by conditional creates when a record with the
// same primary key already landed in the store.
var ErrAlreadyExists = errors.New("subscriber record already exists")
