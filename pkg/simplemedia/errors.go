package simplemedia

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrValidation indicates malformed input or a violated constraint
	ErrValidation = errors.New("validation failed")

	// ErrInvalidRank indicates a binding rank is not a valid order key
	ErrInvalidRank = errors.New("invalid rank")

	// ErrStore indicates the metadata store failed
	ErrStore = errors.New("metadata store failed")

	// ErrContentStore indicates the blob store failed
	ErrContentStore = errors.New("content store failed")

	// ErrNotFound is returned by repositories when a row does not exist.
	// The Service reports it as a nil result instead.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned by repositories when a unique key is taken
	ErrDuplicate = errors.New("duplicate key")

	// ErrReferenceNotFound is returned by repositories when a referenced row is missing
	ErrReferenceNotFound = errors.New("referenced row not found")

	// ErrInvalidData is returned by repositories when a row violates a column constraint
	ErrInvalidData = errors.New("invalid data")
)

// ValidationError represents rejected input for an operation
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InvalidRankError represents a binding rank that is not a valid order key
type InvalidRankError struct {
	Rank string
	Err  error
}

func (e *InvalidRankError) Error() string {
	return fmt.Sprintf("invalid rank %q: %v", e.Rank, e.Err)
}

func (e *InvalidRankError) Unwrap() error {
	return e.Err
}

func (e *InvalidRankError) Is(target error) bool {
	return target == ErrInvalidRank || target == ErrValidation
}

// StoreError represents a metadata store failure
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: metadata store failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// ContentStoreError represents a blob store failure for a key
type ContentStoreError struct {
	Op  string
	Key string
	Err error
}

func (e *ContentStoreError) Error() string {
	return fmt.Sprintf("content store operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *ContentStoreError) Unwrap() error {
	return e.Err
}

func (e *ContentStoreError) Is(target error) bool {
	return target == ErrContentStore
}

// IsDataError reports whether err is a repository error caused by the data
// written rather than by the backend.
func IsDataError(err error) bool {
	return errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrReferenceNotFound) ||
		errors.Is(err, ErrInvalidData)
}

// classify wraps a repository error for op. Data errors become validation
// errors; everything else is a store failure. Errors that are already
// classified pass through.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		verr *ValidationError
		rerr *InvalidRankError
		serr *StoreError
		cerr *ContentStoreError
	)
	if errors.As(err, &verr) || errors.As(err, &rerr) || errors.As(err, &serr) || errors.As(err, &cerr) {
		return err
	}
	if IsDataError(err) {
		return &ValidationError{Op: op, Err: err}
	}
	return &StoreError{Op: op, Err: err}
}
