package ordering

import "errors"

// ErrUnknownMode is returned for unsupported sort modes.
var ErrUnknownMode = errors.New("unknown sort mode")
