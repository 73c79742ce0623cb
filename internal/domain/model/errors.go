package model

import "errors"

// ErrValidation marks entries that do not satisfy the schema.
var ErrValidation = errors.New("validation failed")
