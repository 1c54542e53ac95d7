package patient

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrMissingName          = errors.New("name is required")
	ErrInvalidAge           = errors.New("age must be between 0 and 150")
	ErrInvalidGender        = errors.New("gender must be Male, Female or Other")
	ErrMissingCategory      = errors.New("condition category is required")
	ErrMissingCondition     = errors.New("condition is required")
	ErrInvalidAdmissionDate = errors.New("admission date must be a date (YYYY-MM-DD)")
	ErrInvalidStatus        = errors.New("status must be Active or Discharged")
	ErrInvalidLocationType  = errors.New("location type must be Ward or Clinic")
	ErrMissingWardName      = errors.New("ward name is required")
	ErrMissingBedNumber     = errors.New("bed number is required")
	ErrMissingClinicNumber  = errors.New("clinic number is required")
	ErrMixedLocation        = errors.New("only the fields of the selected location type may be set")
	ErrMissingID            = errors.New("patient id is required")
	ErrAlreadySubscribed    = errors.New("patients are already subscribed")
)

// ValidationErrors maps a field name to what is wrong with it.
type ValidationErrors map[string]error

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f].Error())
	}
	return "invalid patient: " + strings.Join(parts, "; ")
}

// Operation names used in OperationError.
const (
	OpCreate = "add"
	OpUpdate = "update"
	OpDelete = "delete"
)

// OperationError is returned by every failed mutation. Its message is the
// same whatever went wrong; the cause stays reachable through errors.Is and
// errors.As.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return "failed to " + e.Op + " patient"
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
