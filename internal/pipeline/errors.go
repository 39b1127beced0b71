package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgnsrekt/daydrill/internal/integrity"
	"github.com/dgnsrekt/daydrill/internal/schedule"
	"github.com/dgnsrekt/daydrill/internal/tts"
)

// ErrLocked is returned when another run holds the output lock.
var ErrLocked = errors.New("another build is running on this output directory")

// Build checks named in a BuildError.
const (
	CheckSchedule  = "schedule"
	CheckSynthesis = "synthesis"
	CheckCompile   = "compile"
	CheckManifest  = "manifest"
	CheckExport    = "export"
	CheckValidate  = "validate"
	CheckCommit    = "commit"
	CheckCanceled  = "canceled"
)

// BuildError is a fatal failure of one day.
type BuildError struct {
	Day   int
	Check string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("day %d: %s: %v", e.Day, e.Check, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// buildError picks the check from the error itself when it is more
// specific than the step that returned it.
func buildError(day int, step string, err error) *BuildError {
	var (
		synthErr    *tts.SynthesisError
		consistency *schedule.ConsistencyError
		mismatch    *integrity.DurationMismatch
	)
	check := step
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		check = CheckCanceled
	case errors.As(err, &consistency):
		check = CheckSchedule
	case errors.As(err, &synthErr):
		check = CheckSynthesis
	case errors.As(err, &mismatch):
		check = CheckValidate
	}
	return &BuildError{Day: day, Check: check, Err: err}
}
