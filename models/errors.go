package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("not found")

// ValidationError lists every violation found before any write was attempted.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Add(format string, args ...interface{}) {
	e.Messages = append(e.Messages, fmt.Sprintf(format, args...))
}

// Err returns e when it holds messages, nil otherwise.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Messages) == 0 {
		return nil
	}
	return e
}

// FetchError is a failed read from the backend.
type FetchError struct {
	Op  string
	ID  int64
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %d: %v", e.Op, e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError is a failed create or update of one vehicle in a batch.
type WriteError struct {
	VehicleIndex int
	Err          error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("vehicle %d: %v", e.VehicleIndex, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
