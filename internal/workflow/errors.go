// Package workflow implements the durable step executor and the workflow
// engine that sequences, retries, and replays backport runs.
package workflow

import (
	"errors"
	"fmt"
)

// FatalError marks an error whose precondition will not resolve by
// retrying (missing PR, missing branch, permission denial). The engine
// aborts the run immediately when a step raises one.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as a FatalError. Wrapping nil returns nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// Fatalf creates a FatalError with a formatted message.
func Fatalf(format string, args ...any) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// IsFatal reports whether err carries a fatal classification anywhere in
// its chain.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// TransientError explicitly marks an error as retryable. The engine treats
// any non-fatal step error as transient, so tagging is optional; it exists
// for collaborators that want to be explicit about rate limits and 5xx.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError. Wrapping nil returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err should be retried. Fatal wins if both
// classifications somehow appear in the chain.
func IsTransient(err error) bool {
	return err != nil && !IsFatal(err)
}
