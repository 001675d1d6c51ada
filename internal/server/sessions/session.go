// Package sessions holds chunked upload session state. A session lives
// outside the metadata database because it is transient and hot: every
// chunk touches it, and it expires on its own.
package sessions

import (
	"context"
	"time"
)

// Session is the metadata of one in-flight chunked upload.
type Session struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	TotalChunks int       `json:"total_chunks"`
	MimeType    string    `json:"mime_type"`
	Folder      string    `json:"folder,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Store keeps sessions and their chunk payloads. Implementations return
// common.ErrorSessionNotFound for unknown or expired session ids.
type Store interface {
	// Create persists a new session with the given TTL.
	Create(ctx context.Context, s *Session, ttl time.Duration) error

	// Get returns the session by id.
	Get(ctx context.Context, id string) (*Session, error)

	// Touch extends the session expiry by ttl from now.
	Touch(ctx context.Context, id string, ttl time.Duration) error

	// PutChunk stores the payload for one chunk index.
	PutChunk(ctx context.Context, id string, index int, data []byte) error

	// ChunkCount returns how many distinct chunks have been received.
	ChunkCount(ctx context.Context, id string) (int, error)

	// Chunks returns all received chunks keyed by index.
	Chunks(ctx context.Context, id string) (map[int][]byte, error)

	// Delete removes the session and its chunks.
	Delete(ctx context.Context, id string) error

	// Sweep drops expired sessions and reports how many were removed.
	// Stores with native expiry may make this a no-op.
	Sweep(ctx context.Context) (int, error)
}
