package backup

import (
	"time"

	backupimport "github.com/listenupapp/doujinshelf/internal/backup/import"
)

// BackupOptions configures backup creation.
type BackupOptions struct {
	OutputPath string  // Where to write the export; defaults to the exports dir
	IDs        []int64 // Limit to these galleries
}

// RestoreOptions configures an import.
type RestoreOptions struct {
	MergeStrategy backupimport.MergeStrategy
	DryRun        bool // Match without writing
}

// BackupResult contains the outcome of a backup operation.
type BackupResult struct {
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Count    int           `json:"count"`
	Unhashed int           `json:"unhashed"`
	Duration time.Duration `json:"duration"`
	Checksum string        `json:"checksum"`
}

// BackupInfo describes an existing export file.
type BackupInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// RestoreResult contains the outcome of an import.
type RestoreResult = backupimport.Result
