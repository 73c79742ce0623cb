package localstore

import "errors"

// Sentinel kinds for local state failures.
var (
	ErrRead    = errors.New("read local state")
	ErrWrite   = errors.New("write local state")
	ErrCorrupt = errors.New("local state is corrupt")
)
