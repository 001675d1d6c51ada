// Package settings persists loosely-typed key/value settings rows. Typing
// and validation happen at the service boundary, not here.
package settings

import "context"

// Repository is the data-access contract for settings.
type Repository interface {
	// Get returns the raw string value for key. common.ErrorNotFound when
	// the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Upsert stores value under key, replacing any previous value.
	Upsert(ctx context.Context, key, value string) error
}
