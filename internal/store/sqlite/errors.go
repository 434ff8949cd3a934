package sqlite

import "strings"

// isConstraint reports whether err is the SQLite constraint failure named
// by msg, e.g. "UNIQUE constraint failed".
func isConstraint(err error, msg string) bool {
	return err != nil && strings.Contains(err.Error(), msg)
}
