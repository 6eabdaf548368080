// Package shared holds sentinel errors and small error types used across
// the identity provider.
package shared

import (
	"errors"
	"sort"
	"strings"
)

var (

	// common errors
	ErrNotFound = errors.New("not found")

	// persistence errors
	ErrNothingToPersist = errors.New("nothing to persist")

	// identity-specific errors
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError carries field-keyed validation messages. It is a
// recoverable condition reported back to the caller, never a fault.
type ValidationError map[string]string

func (v ValidationError) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("validation failed")
	for _, f := range fields {
		b.WriteString("; ")
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(v[f])
	}
	return b.String()
}
