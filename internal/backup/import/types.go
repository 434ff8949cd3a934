// Package backupimport applies an export file to the library, matching
// records to galleries by page digests rather than by id or path.
package backupimport

import "time"

// MergeStrategy decides which side wins on conflicting scalar fields.
// Tags are always unioned.
type MergeStrategy string

const (
	// MergeKeepBackup overwrites local fields with imported ones.
	MergeKeepBackup MergeStrategy = "keep_backup"
	// MergeKeepLocal only fills local fields that are empty.
	MergeKeepLocal MergeStrategy = "keep_local"
)

// Valid returns true if the merge strategy is recognized.
func (s MergeStrategy) Valid() bool {
	switch s {
	case MergeKeepBackup, MergeKeepLocal, "":
		return true
	default:
		return false
	}
}

// Options configures an import.
type Options struct {
	MergeStrategy MergeStrategy
	DryRun        bool // Match without writing
}

// Result reports what was imported.
type Result struct {
	Records   int
	Matched   int
	Updated   int
	Unmatched []string
	Errors    []Error
	Duration  time.Duration
}

// Error describes a non-fatal error during import. Key is the record key
// or, for hashing failures, the local gallery id.
type Error struct {
	Key   string `json:"key,omitempty"`
	Error string `json:"error"`
}
