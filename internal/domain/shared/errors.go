// Package shared holds the error kinds every domain package builds on, so
// callers can test for "not found" or "invalid input" without knowing which
// package produced the error.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Domain sentinels carry one of these as their Kind.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")

	ErrStateTransition = errors.New("invalid state transition")
)

// DomainError is a sentinel or wrapped failure raised by a domain package.
// It matches both its Kind and its cause under errors.Is.
type DomainError struct {
	Domain  string // "student", "content"
	Op      string // "Validate", "Transition", ...
	Kind    error
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

func (e *DomainError) Is(target error) bool {
	return (e.Kind != nil && errors.Is(e.Kind, target)) ||
		(e.Err != nil && errors.Is(e.Err, target))
}

// NewDomainError builds a sentinel.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError attaches domain context to err, usually another sentinel.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// IsNotFound reports whether err is any domain's "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
