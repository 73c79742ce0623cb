package filter

import "errors"

// ErrInvalidSpec marks filter parameters that cannot be interpreted.
var ErrInvalidSpec = errors.New("invalid filter")
