package models

import "time"

// Folder is a logical grouping of files inside one backing store. Path is
// derived deterministically from Name ("public/" + name) and unique per
// (path, store). An auto-created folder is indistinguishable from an
// explicitly created one once committed.
type Folder struct {
	ID        int64
	Name      string
	Path      string
	StoreID   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FolderPathPrefix is where folders live inside a backing store.
const FolderPathPrefix = "public/"

// FolderPath derives the remote path for a folder name.
func FolderPath(name string) string { return FolderPathPrefix + name }
