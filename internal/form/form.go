// Package form holds in-progress edits and their validation state.
package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// State is the lifecycle position of a form.
type State int

const (
	StateEmpty State = iota
	StateEditing
	StateValid
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateEditing:
		return "editing"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	}
	return "unknown"
}

// Field names a validated form input.
type Field string

var (
	// ErrInvalid is returned by Submit when a validator fails.
	ErrInvalid = errors.New("form is invalid")
	// ErrAlreadySubmitted is returned by a second Submit of the same valid state.
	ErrAlreadySubmitted = errors.New("form already submitted")
)

// ValidationError lists the failing fields and a message for each.
type ValidationError struct {
	Fields map[Field]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
}

// Unwrap lets errors.Is(err, ErrInvalid) match.
func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// Message returns the error for one field, or "".
func (e *ValidationError) Message(f Field) string {
	if e == nil {
		return ""
	}
	return e.Fields[f]
}
