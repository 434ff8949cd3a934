package store

import "github.com/listenupapp/doujinshelf/internal/errors"

// Sentinel errors returned by Store implementations. They are the domain
// sentinels, so errors.Is works against either name.
var (
	ErrNotFound      = errors.ErrNotFound
	ErrAlreadyExists = errors.ErrDuplicate
	ErrTxClosed      = errors.ErrTxClosed
)
