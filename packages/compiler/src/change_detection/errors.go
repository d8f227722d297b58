package change_detection

import (
	"errors"
	"fmt"
)

// ErrReentrantDetection is returned when DetectChanges or CheckNoChanges
// is called on an arena that is already running a pass.
var ErrReentrantDetection = errors.New("change detection is already running")

// ErrForeignDetector is returned when detectors of different arenas are
// linked.
var ErrForeignDetector = errors.New("change detectors belong to different arenas")

// ChangeDetectionError wraps any failure of a detection pass. Location is
// the failing expression and where it was declared, or empty when the
// binding could not be identified.
type ChangeDetectionError struct {
	Location    string
	OriginalErr error
	Context     *DebugContext
}

func (e *ChangeDetectionError) Error() string {
	return fmt.Sprintf("%v in [%s]", e.OriginalErr, e.Location)
}

func (e *ChangeDetectionError) Unwrap() error { return e.OriginalErr }

// EventEvaluationError wraps a failing event handler.
type EventEvaluationError struct {
	EventName   string
	OriginalErr error
	Context     *DebugContext
}

func (e *EventEvaluationError) Error() string {
	return fmt.Sprintf("Error during evaluation of \"%s\": %v", e.EventName, e.OriginalErr)
}

func (e *EventEvaluationError) Unwrap() error { return e.OriginalErr }

// ExpressionChangedAfterItHasBeenCheckedError is raised by CheckNoChanges.
type ExpressionChangedAfterItHasBeenCheckedError struct {
	Expression    string
	PreviousValue any
	CurrentValue  any
}

func (e *ExpressionChangedAfterItHasBeenCheckedError) Error() string {
	return fmt.Sprintf("Expression '%s' has changed after it was checked. Previous value: '%s'. Current value: '%s'",
		e.Expression, DisplayString(e.PreviousValue), DisplayString(e.CurrentValue))
}

// DehydratedError is returned when a detector is used after Dehydrate.
type DehydratedError struct {
	ID string
}

func (e *DehydratedError) Error() string {
	return "Attempt to use a dehydrated detector: " + e.ID
}

// PipeNotFoundError is returned when a binding uses a pipe the detector
// was not hydrated with.
type PipeNotFoundError struct {
	Name string
}

func (e *PipeNotFoundError) Error() string {
	return "Cannot find pipe '" + e.Name + "'"
}
