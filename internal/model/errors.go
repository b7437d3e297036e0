package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation names a task, rule or history
// row that does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError rejects a record before any state change.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// CycleError is returned when attaching a child would make a task its own
// ancestor.
type CycleError struct {
	ParentID string
	ChildID  string
}

func (e *CycleError) Error() string {
	if e.ParentID == e.ChildID {
		return fmt.Sprintf("task %s cannot be its own parent", e.ChildID)
	}
	return fmt.Sprintf("attaching %s under %s would create a cycle", e.ChildID, e.ParentID)
}

// MultipleParentsError is returned when a task that already has a direct
// parent is attached to another one.
type MultipleParentsError struct {
	ChildID  string
	ParentID string
}

func (e *MultipleParentsError) Error() string {
	return fmt.Sprintf("task %s already has parent %s", e.ChildID, e.ParentID)
}

// IsValidationError reports whether err (or any error in its chain) is a
// ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsCycleError reports whether err (or any error in its chain) is a
// CycleError.
func IsCycleError(err error) bool {
	var target *CycleError
	return errors.As(err, &target)
}

// IsMultipleParentsError reports whether err (or any error in its chain)
// is a MultipleParentsError.
func IsMultipleParentsError(err error) bool {
	var target *MultipleParentsError
	return errors.As(err, &target)
}
