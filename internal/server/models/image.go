package models

import "time"

// Image is the metadata row for one uploaded file. (StoreID, Filename) is
// unique: the write path surfaces a conflict instead of overwriting.
// Metadata is authoritative for listing/serving; a remote blob without a
// row is invisible rather than corrupting.
type Image struct {
	ID       int64
	StoreID  int64
	Filename string
	Size     int64
	MimeType string
	// RemotePath is the blob path inside the backing store, e.g.
	// "public/images/2026/08/30/cat.png" or "public/<folder>/cat.png".
	RemotePath string
	// SHA is the sha-like content revision the backing store reported for
	// the committed blob.
	SHA       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
