// Package blobstore abstracts the backing store: an external,
// independently addressable repository of blobs keyed by path.
package blobstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is the distinct "absent" signal; an existence check
	// treats it as "proceed", any other failure is a hard error.
	ErrNotFound = errors.New("blob not found")

	// ErrAlreadyExists is returned by Put when the remote rejects the
	// write because content already sits at the path (409/422-style).
	// Idempotent bootstrap paths treat it as success.
	ErrAlreadyExists = errors.New("blob already exists")
)

// StoreRef addresses one backing store together with the credential to
// reach it.
type StoreRef struct {
	Owner string
	Name  string
	Token string
}

// Object is a blob read back from a backing store.
type Object struct {
	Path    string
	SHA     string
	Content []byte
}

// PutResult reports the revision the backing store assigned to a write.
type PutResult struct {
	SHA string
}

// Client talks to backing stores. Implementations must return ErrNotFound
// for missing blobs/stores and ErrAlreadyExists for conflicting writes so
// callers can tell recoverable outcomes from hard failures.
type Client interface {
	// Get fetches the blob at path.
	Get(ctx context.Context, ref StoreRef, path string) (*Object, error)

	// Put writes content at path with a commit message. sha, when
	// non-empty, is the expected current revision (required by stores that
	// guard updates).
	Put(ctx context.Context, ref StoreRef, path string, content []byte, message, sha string) (*PutResult, error)

	// Delete removes the blob at path, identified by its revision.
	Delete(ctx context.Context, ref StoreRef, path, sha, message string) error

	// StoreExists reports whether the remote store itself exists.
	StoreExists(ctx context.Context, ref StoreRef) (bool, error)

	// CreateStore provisions a new remote store.
	CreateStore(ctx context.Context, ref StoreRef, description string) error
}
