package domain

import (
	"errors"
	"fmt"
)

// NetworkError is a transport failure talking to a third-party endpoint.
type NetworkError struct {
	Endpoint string
	Cause    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s: %v", e.Endpoint, e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ProviderError means the language-model provider answered with an error.
type ProviderError struct {
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	return "provider error: " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ParseError means the model's answer was not the JSON object we asked for.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return "parse error: " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// DuplicateError is returned when a posting URL has already been saved.
type DuplicateError struct {
	URL    string
	Status Status
}

func (e *DuplicateError) Error() string {
	if e.Status == "" {
		return "job posting already saved"
	}
	return fmt.Sprintf("job posting already saved (status: %s)", e.Status)
}

// StoreError is a failed call to the job database. Op is "lookup", "insert"
// or "update"; Message is the provider's text when it sent one.
type StoreError struct {
	Op      string
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Op + " failed"
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// LookupError, PersistError and UpdateError name the three database failure
// kinds. They share StoreError's shape.
type (
	LookupError  struct{ StoreError }
	PersistError struct{ StoreError }
	UpdateError  struct{ StoreError }
)

func NewLookupError(message string, cause error) *LookupError {
	return &LookupError{StoreError{Op: "lookup", Message: message, Cause: cause}}
}

func NewPersistError(message string, cause error) *PersistError {
	return &PersistError{StoreError{Op: "insert", Message: message, Cause: cause}}
}

func NewUpdateError(message string, cause error) *UpdateError {
	return &UpdateError{StoreError{Op: "update", Message: message, Cause: cause}}
}

// MappingError means a stored record could not be read into a JobPosting.
type MappingError struct {
	RecordID string
	Message  string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("cannot map record %s: %s", e.RecordID, e.Message)
}

// ValidationError rejects caller input before any outbound call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return "invalid request: " + e.Message
}

// IsStoreError reports whether err came from the job database.
func IsStoreError(err error) bool {
	var (
		l *LookupError
		p *PersistError
		u *UpdateError
	)
	return errors.As(err, &l) || errors.As(err, &p) || errors.As(err, &u)
}
