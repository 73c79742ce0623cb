package grade

import "errors"

// Sentinel kinds for grade lookups.
var (
	ErrUnknownGrade   = errors.New("unknown grade")
	ErrUnknownSubject = errors.New("unknown subject")
)
