package stats

import "errors"

var (
	// ErrSelectionFull is returned when the comparison selection is at capacity.
	ErrSelectionFull = errors.New("comparison selection is full")
	// ErrAlreadySelected is returned when a school is added twice.
	ErrAlreadySelected = errors.New("school already selected")
	// ErrNotSelected is returned when removing a school that is not selected.
	ErrNotSelected = errors.New("school not selected")
	// ErrEmptySchool is returned for a blank school name.
	ErrEmptySchool = errors.New("school name is empty")
)
