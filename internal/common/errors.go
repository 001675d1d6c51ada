// Package common defines the error taxonomy shared by repositories,
// services and the HTTP layer.
package common

import (
	"errors"
	"fmt"
)

var (

	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// service specific errors
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// ErrorConflict signals that a file with the same name already exists
	// in the target store. The write must not have touched metadata.
	ErrorConflict = errors.New("already exists")

	// ErrorCapacity signals that no backing store is available and
	// auto-creation failed. Fatal for the request; callers may retry later.
	ErrorCapacity = errors.New("no store available")

	// ErrorSessionNotFound covers both unknown and expired upload sessions;
	// the client must restart the chunked flow from scratch.
	ErrorSessionNotFound = errors.New("session not found or expired")

	// ErrorFolderResolution signals a non-recoverable metadata inconsistency:
	// the folder row is still absent after the insert-if-absent sequence.
	ErrorFolderResolution = errors.New("folder resolution failed")
)

// IncompleteError is returned by session completion when not every chunk
// has arrived yet. It carries the counts so the client can resume instead
// of restarting.
type IncompleteError struct {
	Uploaded int
	Expected int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("upload incomplete: %d of %d chunks received", e.Uploaded, e.Expected)
}

// RemoteError wraps a backing-store client failure with enough context
// (store name, path) for an operator to reconcile manually.
type RemoteError struct {
	Store string
	Path  string
	Err   error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote store %q path %q: %v", e.Store, e.Path, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
