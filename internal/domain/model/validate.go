package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/okian/huikao/internal/domain/grade"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func entryValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("grade", func(fl validator.FieldLevel) bool {
			return grade.Grade(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// Validate checks the schema invariants of an entry: required identity
// fields, all five subject grades drawn from the grade set and a composition
// level in [0,6]. The returned error wraps ErrValidation.
func (e Entry) Validate() error {
	err := entryValidator().Struct(e)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldName(fe))
	}
	return &FieldError{Fields: fields}
}

func fieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	ns = strings.TrimPrefix(ns, "Entry.")
	return strings.ToLower(strings.ReplaceAll(ns, "Scores.", "scores."))
}

// FieldError lists the fields that failed validation.
type FieldError struct {
	Fields []string
}

func (e *FieldError) Error() string {
	return "invalid entry: " + strings.Join(e.Fields, ", ")
}

// Unwrap lets callers match ErrValidation.
func (e *FieldError) Unwrap() error { return ErrValidation }
