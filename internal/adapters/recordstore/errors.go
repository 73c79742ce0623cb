package recordstore

import (
	"errors"
)

// Sentinel kinds for record store failures.
var (
	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("record store unreachable")
	// ErrAPI marks a response that reported success:false.
	ErrAPI = errors.New("record store rejected the request")
)

// DefaultFailureMessage is shown when the store fails without a message.
const DefaultFailureMessage = "獲取資料失敗"

// APIError is a logical failure reported by the record store.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap allows errors.Is(err, ErrAPI).
func (e *APIError) Unwrap() error { return ErrAPI }
