package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/cache"
	"github.com/dgnsrekt/daydrill/internal/compiler"
	"github.com/dgnsrekt/daydrill/internal/integrity"
	"github.com/dgnsrekt/daydrill/internal/schedule"
	"github.com/dgnsrekt/daydrill/internal/study"
)

// State is the build state of a day.
type State int

const (
	StatePending State = iota
	StateBuilding
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateBuilding:
		return "building"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Cache is the part of the segment store the runner drives directly.
type Cache interface {
	Warm(ctx context.Context, keys []cache.Key, workers int) error
	Stats() cache.Stats
}

// Options configures a Runner.
type Options struct {
	Items     []study.Item
	Templates []compiler.Template
	Layout    Layout

	Scheduler *schedule.Scheduler
	Compiler  *compiler.Compiler
	Cache     Cache // optional; enables warming and per-day cache counters
	Codec     audio.Codec
	Validator *integrity.Validator

	// MaxDay is the last day to build; zero means the last origin day.
	MaxDay int

	// HaltOnFailure stops the run at the first failed day.
	HaltOnFailure bool

	// StrictValidation fails a day whose track duration is off.
	StrictValidation bool

	// Workers bounds concurrent synthesis while warming the cache.
	Workers int

	Logger *log.Logger
}

// DayResult is the outcome of one day. A day whose tracks held silent
// placeholders ends Pending: it is committed without those tracks, so the
// next run builds it again.
type DayResult struct {
	Day      int
	State    State
	Skipped  bool // already complete on disk
	Reviews  int
	New      int
	Tracks   []integrity.Report
	Degraded int
	Elapsed  time.Duration
	Err      error
}

// Summary is the outcome of a run.
type Summary struct {
	RunID   string
	Days    []DayResult
	Built   int
	Skipped int
	Failed  int
	Pending int // committed with placeholder tracks left out
	Cache   cache.Stats
}

// Runner builds days in ascending order.
type Runner struct {
	opts   Options
	verify func(*schedule.DayPlan) error
}

// New validates opts and creates a runner.
func New(opts Options) (*Runner, error) {
	switch {
	case opts.Scheduler == nil:
		return nil, errors.New("pipeline: scheduler is required")
	case opts.Compiler == nil:
		return nil, errors.New("pipeline: compiler is required")
	case opts.Codec == nil:
		return nil, errors.New("pipeline: codec is required")
	case opts.Validator == nil:
		return nil, errors.New("pipeline: validator is required")
	case opts.Layout.Root == "":
		return nil, errors.New("pipeline: output directory is required")
	case opts.MaxDay < 0:
		return nil, errors.New("pipeline: max day must not be negative")
	}
	if opts.Layout.Pad <= 0 {
		opts.Layout.Pad = 3
	}
	if opts.Layout.Ext == "" {
		opts.Layout.Ext = opts.Codec.Ext()
	}
	if len(opts.Layout.Templates) == 0 {
		for _, tpl := range opts.Templates {
			opts.Layout.Templates = append(opts.Layout.Templates, tpl.Name)
		}
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Runner{opts: opts, verify: schedule.Verify}, nil
}

// Layout returns the output layout in use.
func (r *Runner) Layout() Layout { return r.opts.Layout }

// MaxDay returns the last day the runner considers.
func (r *Runner) MaxDay() int {
	if r.opts.MaxDay > 0 {
		return r.opts.MaxDay
	}
	return study.MaxOriginDay(r.opts.Items)
}

// Run builds every pending day. The returned error is the first failure
// when HaltOnFailure is set, a cancellation, or a problem with the run
// itself; with HaltOnFailure unset, failed days are only reported in the
// summary and joined into the error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	logger := r.opts.Logger.With("run", sum.RunID)

	if err := os.MkdirAll(r.opts.Layout.Root, 0o755); err != nil {
		return sum, fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(r.opts.Layout.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return sum, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return sum, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release lock", "err", err)
		}
	}()

	last := r.MaxDay()
	logger.Info("build started", "days", last, "output", r.opts.Layout.Root)
	start := time.Now()

	var failures []error
	for day := 1; day <= last; day++ {
		if err := ctx.Err(); err != nil {
			failures = append(failures, buildError(day, CheckCanceled, err))
			break
		}

		res := r.runDay(ctx, logger.With("day", day), day)
		sum.Days = append(sum.Days, res)

		switch {
		case res.Skipped:
			sum.Skipped++
		case res.State == StateComplete:
			sum.Built++
		case res.State == StatePending:
			sum.Pending++
		case res.State == StateFailed:
			sum.Failed++
			failures = append(failures, res.Err)
		}

		if res.State == StateFailed {
			var be *BuildError
			if errors.As(res.Err, &be) && be.Check == CheckCanceled {
				break
			}
			if r.opts.HaltOnFailure {
				logger.Error("halting after failed day", "day", day)
				break
			}
		}
	}

	if r.opts.Cache != nil {
		sum.Cache = r.opts.Cache.Stats()
	}
	logger.Info("build finished",
		"built", sum.Built,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"pending", sum.Pending,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return sum, errors.Join(failures...)
}

func (r *Runner) runDay(ctx context.Context, logger *log.Logger, day int) DayResult {
	res := DayResult{Day: day, State: StatePending}

	complete, err := r.opts.Layout.Complete(day)
	if err != nil {
		r.rollback(logger, day)
		res.State = StateFailed
		res.Err = buildError(day, CheckCommit, err)
		logger.Error("day failed", "err", err)
		return res
	}
	if complete {
		res.State = StateComplete
		res.Skipped = true
		logger.Debug("day complete, skipping")
		return res
	}

	res.State = StateBuilding
	start := time.Now()
	if err := r.buildDay(ctx, logger, day, &res); err != nil {
		r.rollback(logger, day)
		res.State = StateFailed
		res.Err = err
		res.Elapsed = time.Since(start)
		logger.Error("day failed", "err", err)
		return res
	}

	res.Elapsed = time.Since(start)
	if res.Degraded > 0 {
		res.State = StatePending
		logger.Warn("day left pending, placeholder tracks not written",
			"placeholders", res.Degraded,
			"elapsed", res.Elapsed.Round(time.Millisecond))
		return res
	}
	res.State = StateComplete
	logger.Info("day built",
		"reviews", res.Reviews,
		"new", res.New,
		"tracks", len(res.Tracks),
		"elapsed", res.Elapsed.Round(time.Millisecond))
	return res
}

func (r *Runner) buildDay(ctx context.Context, logger *log.Logger, day int, res *DayResult) error {
	layout := r.opts.Layout
	stage := layout.StagingDir(day)
	if err := os.RemoveAll(stage); err != nil {
		return buildError(day, CheckCommit, err)
	}
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return buildError(day, CheckCommit, err)
	}

	rules := make([]schedule.Rule, 0, len(r.opts.Templates))
	for _, tpl := range r.opts.Templates {
		rules = append(rules, tpl.Rule())
	}
	plan, err := r.opts.Scheduler.Plan(r.opts.Items, day, rules)
	if err != nil {
		return buildError(day, CheckSchedule, err)
	}
	if err := r.verify(plan); err != nil {
		return buildError(day, CheckSchedule, err)
	}
	res.Reviews, res.New = plan.Reviews, plan.New

	if err := r.warm(ctx, logger, plan); err != nil {
		return buildError(day, CheckSynthesis, err)
	}

	tracks := make([]*compiler.Track, 0, len(r.opts.Templates))
	for _, tpl := range r.opts.Templates {
		seq, _ := plan.Sequence(tpl.Name)
		track, err := r.opts.Compiler.Compile(ctx, tpl, day, seq.Entries)
		if err != nil {
			return buildError(day, CheckCompile, err)
		}
		if track.IsDegraded() {
			res.Degraded += track.Degraded
			logger.Warn("track has silent placeholders, leaving it out",
				"template", track.Template, "placeholders", track.Degraded)
			continue
		}
		tracks = append(tracks, track)
	}

	var manifest bytes.Buffer
	if err := WriteManifest(&manifest, plan); err != nil {
		return buildError(day, CheckManifest, err)
	}
	if err := os.WriteFile(filepath.Join(stage, ManifestName), manifest.Bytes(), 0o644); err != nil {
		return buildError(day, CheckManifest, err)
	}

	for _, track := range tracks {
		data, err := r.opts.Codec.Encode(ctx, track.Audio)
		if err != nil {
			return buildError(day, CheckExport, err)
		}
		path := filepath.Join(stage, layout.TrackName(track.Template))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return buildError(day, CheckExport, err)
		}
		logger.Debug("track written",
			"template", track.Template,
			"expected", track.Expected,
			"size", humanize.Bytes(uint64(len(data))))
	}

	for _, track := range tracks {
		path := filepath.Join(stage, layout.TrackName(track.Template))
		report, err := r.opts.Validator.Check(ctx, path, track.Expected)
		if err != nil {
			return buildError(day, CheckValidate, err)
		}
		res.Tracks = append(res.Tracks, report)
		if report.Valid {
			continue
		}
		if r.opts.StrictValidation {
			return buildError(day, CheckValidate, report.Err())
		}
		logger.Warn("track duration mismatch", "template", track.Template, "detail", report.Message)
	}

	if err := ctx.Err(); err != nil {
		return buildError(day, CheckCanceled, err)
	}
	return r.commit(day)
}

// warm resolves the day's unique segments before compiling.
func (r *Runner) warm(ctx context.Context, logger *log.Logger, plan *schedule.DayPlan) error {
	if r.opts.Cache == nil {
		return nil
	}

	var keys []cache.Key
	for _, tpl := range r.opts.Templates {
		seq, _ := plan.Sequence(tpl.Name)
		keys = append(keys, r.opts.Compiler.Keys(tpl, seq.Entries)...)
	}

	before := r.opts.Cache.Stats()
	if err := r.opts.Cache.Warm(ctx, keys, r.opts.Workers); err != nil {
		return err
	}
	after := r.opts.Cache.Stats()
	logger.Info("segments ready",
		"keys", len(keys),
		"memory_hits", after.MemoryHits-before.MemoryHits,
		"disk_hits", after.DiskHits-before.DiskHits,
		"syntheses", after.Syntheses-before.Syntheses,
		"renders", after.Renders-before.Renders)
	return nil
}

// commit replaces the day directory with the staging directory.
func (r *Runner) commit(day int) error {
	layout := r.opts.Layout
	dir := layout.DayDir(day)
	if err := os.RemoveAll(dir); err != nil {
		return buildError(day, CheckCommit, err)
	}
	if err := os.Rename(layout.StagingDir(day), dir); err != nil {
		return buildError(day, CheckCommit, err)
	}
	return nil
}

// rollback removes everything written for day.
func (r *Runner) rollback(logger *log.Logger, day int) {
	layout := r.opts.Layout
	for _, dir := range []string{layout.StagingDir(day), layout.DayDir(day)} {
		if err := os.RemoveAll(dir); err != nil {
			logger.Error("rollback failed", "dir", dir, "err", err)
		}
	}
}
