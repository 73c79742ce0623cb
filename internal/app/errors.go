package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted           = errors.New("service not started")
	ErrSuperseded           = errors.New("response superseded by a newer request")
	ErrVerificationRequired = errors.New("verification token required")
	ErrCooldown             = errors.New("submitted too recently")
	ErrQueueFull            = errors.New("submission queue full")
	ErrEntryNotFound        = errors.New("entry not found")
	ErrInvalidScope         = errors.New("invalid statistics scope")
)
