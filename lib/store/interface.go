package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/bKV/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() (db.KVDB, error)

// IStore is the minimal string key-value storage interface used by document stores
// that persist their whole state under one key.
//
// None of the methods return an error. Backend failures are logged by the implementation
// and a failed read degrades to "not found". Implementations that buffer writes report
// the outcome of the durable operations through IFlusher and their result hooks.
type IStore interface {
	// GetItem returns the current value for name. The boolean return value indicates
	// whether a value was found. A value written by SetItem is visible immediately,
	// even if it has not reached the durable store yet.
	GetItem(ctx context.Context, name string) (value string, loaded bool)
	// SetItem records a value for name. The call returns without waiting for durable storage.
	SetItem(ctx context.Context, name, value string)
	// RemoveItem deletes name. A pending, not yet persisted value for name is discarded.
	RemoveItem(ctx context.Context, name string)
}

// IFlusher is implemented by stores that hold writes back before persisting them.
type IFlusher interface {
	// FlushAll persists every pending write now and returns one result per key.
	FlushAll(ctx context.Context) (results []FlushResult)
	// PendingCount returns the number of keys with a write not yet persisted.
	PendingCount() (n int)
}

// IFlushStore combines IStore and IFlusher
type IFlushStore interface {
	IStore
	IFlusher
}

// --------------------------------------------------------------------------
// Flush Results
// --------------------------------------------------------------------------

// FlushSource names what triggered a durable operation
type FlushSource string

const (
	SourceTimer  FlushSource = "timer"  // The debounce window elapsed
	SourceFlush  FlushSource = "flush"  // FlushAll was called
	SourceRemove FlushSource = "remove" // RemoveItem was called
)

// FlushResult is the outcome of one durable operation
type FlushResult struct {
	Key      string        `json:"key"`
	Version  uint64        `json:"version"`
	Source   FlushSource   `json:"source"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Ok reports whether the durable operation succeeded
func (r FlushResult) Ok() bool {
	return r.Err == nil
}

func (r FlushResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s v%d (%s) failed after %s: %v", r.Key, r.Version, r.Source, r.Duration, r.Err)
	}
	return fmt.Sprintf("%s v%d (%s) ok in %s", r.Key, r.Version, r.Source, r.Duration)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and optionally the underlying error.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Err  error   // The cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("KVStoreError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new KVStoreError with the given code and message wrapping err.
func WrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCBackendError                        // 4: The durable store rejected the operation.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCBackendError:
		return "BackendError"
	default:
		return "Unknown"
	}
}
