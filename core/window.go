package core

import (
	"time"

	"github.com/pkg/errors"
)

var errWindowOrder = errors.New("end time must be after start time")

// IsWithinWindow reports whether now lies within [start, end], bounds included.
func IsWithinWindow(now, start, end time.Time) bool {
	return !now.Before(start) && !now.After(end)
}

// ValidateWindow rejects windows that are unset or where start is not strictly before end.
func ValidateWindow(start, end time.Time) error {
	var flds []FieldError
	if start.IsZero() {
		flds = append(flds, FieldError{Field: "start_at", Error: "this field is required"})
	}
	if end.IsZero() {
		flds = append(flds, FieldError{Field: "end_at", Error: "this field is required"})
	}
	if len(flds) > 0 {
		return NewValidationError(nil, flds...)
	}
	if !start.Before(end) {
		return NewValidationError(errWindowOrder, FieldError{Field: "end_at", Error: errWindowOrder.Error()})
	}
	return nil
}
