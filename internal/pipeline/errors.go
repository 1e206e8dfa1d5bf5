package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/maauso/slidecast/internal/media"
)

// ErrMissingInput is matched by every *MissingInputError.
var ErrMissingInput = errors.New("missing input")

// MissingInputError reports a pair whose image or audio was not supplied.
// Index is -1 when no pairs were supplied at all.
type MissingInputError struct {
	Index int
	Field string
	Path  string
	Err   error
}

func (e *MissingInputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: no %s supplied", ErrMissingInput, e.Field)
	}
	msg := fmt.Sprintf("%v: pair %d has no %s", ErrMissingInput, e.Index, e.Field)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MissingInputError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrMissingInput.
func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput
}

// Error records the stage and pair at which a run stopped.
// Index is -1 when the failure is not tied to one pair, as with
// concatenation or a cancelled run.
type Error struct {
	Stage Stage
	Index int
	Err   error
}

func (e *Error) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("stage %s, pair %d: %v", e.Stage, e.Index, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded in err, or StageIdle if the run
// never got past its precondition check.
func FailedStage(err error) Stage {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return StageIdle
}

// Kind names the error category of err for API consumers. A run stopped by
// its context is an InternalError even when a stage error wraps the
// cancellation.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "InternalError"
	case errors.Is(err, ErrMissingInput):
		return "MissingInputError"
	case errors.Is(err, media.ErrTranscode):
		return "TranscodeError"
	case errors.Is(err, media.ErrImage):
		return "ImageError"
	case errors.Is(err, media.ErrMux):
		return "MuxError"
	case errors.Is(err, media.ErrConcat):
		return "ConcatError"
	default:
		return "InternalError"
	}
}
