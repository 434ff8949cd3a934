// Package backup manages export files of the library: creating them under
// the data directory, listing, deleting, and importing them back.
package backup

import "github.com/listenupapp/doujinshelf/internal/errors"

// ErrBackupNotFound indicates the requested export file does not exist.
var ErrBackupNotFound = errors.Wrap(errors.ErrNotFound, errors.CodeNotFound, "backup not found")
