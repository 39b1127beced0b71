package integrity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dgnsrekt/daydrill/internal/audio"
)

// Default tolerances.
const (
	DefaultAbsolute = 150 * time.Millisecond
	DefaultRelative = 0.01
)

// Policy is the allowed deviation between expected and measured duration.
type Policy struct {
	Absolute time.Duration
	Relative float64

	// Offline accepts missing and zero-byte files. Only for runs that do not
	// produce real audio.
	Offline bool
}

// DefaultPolicy returns the default tolerance in online mode.
func DefaultPolicy() Policy {
	return Policy{Absolute: DefaultAbsolute, Relative: DefaultRelative}
}

// Allowed returns max(Absolute, Relative × expected).
func (p Policy) Allowed(expected time.Duration) time.Duration {
	rel := time.Duration(p.Relative * float64(expected))
	return max(p.Absolute, rel)
}

// Report is the outcome of one check.
type Report struct {
	Path     string
	Valid    bool
	Expected time.Duration
	Actual   time.Duration
	Diff     time.Duration
	Allowed  time.Duration
	Message  string
}

// DurationMismatch is returned by Report.Err for an invalid track.
type DurationMismatch struct {
	Report Report
}

func (e *DurationMismatch) Error() string {
	return fmt.Sprintf("%s: %s", e.Report.Path, e.Report.Message)
}

// Err returns nil for a valid report and a *DurationMismatch otherwise.
func (r Report) Err() error {
	if r.Valid {
		return nil
	}
	return &DurationMismatch{Report: r}
}

// Validator measures files with a codec and compares them to the policy.
type Validator struct {
	Codec  audio.Codec
	Policy Policy
}

// New creates a validator.
func New(codec audio.Codec, policy Policy) *Validator {
	return &Validator{Codec: codec, Policy: policy}
}

// Check measures path. The returned error is only for failures to read or
// measure; a duration outside the tolerance is reported as Valid=false.
func (v *Validator) Check(ctx context.Context, path string, expected time.Duration) (Report, error) {
	r := Report{Path: path, Expected: expected, Allowed: v.Policy.Allowed(expected)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if v.Policy.Offline {
			r.Valid = true
			r.Message = "missing, accepted offline"
			return r, nil
		}
		r.Message = "file is missing"
		return r, nil
	case err != nil:
		return r, fmt.Errorf("read %s: %w", path, err)
	}

	if len(data) == 0 {
		r.Valid = v.Policy.Offline
		if r.Valid {
			r.Message = "empty, accepted offline"
		} else {
			r.Message = "file is empty"
		}
		return r, nil
	}

	actual, err := v.Codec.Measure(ctx, data)
	if err != nil {
		return r, fmt.Errorf("measure %s: %w", path, err)
	}
	r.Actual = actual
	r.Diff = (actual - expected).Abs()
	r.Valid = r.Diff <= r.Allowed
	if r.Valid {
		r.Message = "ok"
	} else {
		r.Message = fmt.Sprintf("duration %s differs from expected %s by %s (allowed %s, %s)",
			actual, expected, r.Diff, r.Allowed, humanize.Bytes(uint64(len(data))))
	}
	return r, nil
}
