package persistentlogin

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedToken  = errors.New("malformed persistent login token")
	ErrStoreRequired   = errors.New("persistent login store is required")
	ErrGeneratorFailed = errors.New("failed to generate persistent login token value")
)

// StorageError reports a failed Store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("persistent login store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// TokenError is returned by the Manager when a required write (create,
// rotate, delete) could not be completed.
type TokenError struct {
	Op  string
	Err error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("persistent login token %s failed: %v", e.Op, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}
