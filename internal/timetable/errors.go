package timetable

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures. Every kind is scoped to the single
// operation that produced it; none leaves schedule state modified.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindOutOfRange   ErrorKind = "OUT_OF_RANGE"
	KindMoveConflict ErrorKind = "MOVE_CONFLICT"
	KindNoOp         ErrorKind = "NO_OP"
	KindInvalidInput ErrorKind = "INVALID_INPUT"
)

// CollisionKind names the rule a target slot violated.
type CollisionKind string

const (
	// CollisionSlot means the target level already holds a booking at that slot.
	CollisionSlot       CollisionKind = "slot"
	CollisionRoom       CollisionKind = "room"
	CollisionInstructor CollisionKind = "instructor"
)

// Collision describes one existing booking that blocks a move.
type Collision struct {
	Level      Level         `json:"level"`
	Day        string        `json:"day"`
	Time       string        `json:"time"`
	Kind       CollisionKind `json:"kind"`
	Resource   string        `json:"resource"`
	CourseCode string        `json:"course_code"`
}

// Error is the typed failure returned by every engine operation.
type Error struct {
	Kind       ErrorKind
	Message    string
	Collisions []Collision
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches sentinel errors of the same kind so callers can use errors.Is(err, ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrOutOfRange   = &Error{Kind: KindOutOfRange}
	ErrMoveConflict = &Error{Kind: KindMoveConflict}
	ErrNoOp         = &Error{Kind: KindNoOp}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
)

// KindOf extracts the engine error kind, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...any) *Error {
	return newError(KindInvalidInput, format, args...)
}
