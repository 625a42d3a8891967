package core

import "fmt"

// ModelError wraps a failed model collaborator call. It is offered to the
// on_model_error hooks before propagating to the caller.
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model call failed (%s): %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError wraps err for the named model.
func NewModelError(model string, err error) *ModelError {
	return &ModelError{Model: model, Err: err}
}

// PersistenceError wraps a failed store read/write. For the synthetic state
// persist write it is logged and swallowed; everywhere else it propagates.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err for the named store operation.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// CacheError wraps a response-cache store failure. Non-fatal by contract:
// reads fail open (treated as a miss), writes are logged and ignored.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// NewCacheError wraps err for the named cache operation and key.
func NewCacheError(op, key string, err error) *CacheError {
	return &CacheError{Op: op, Key: key, Err: err}
}
