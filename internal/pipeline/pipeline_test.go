package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/cache"
	"github.com/dgnsrekt/daydrill/internal/compiler"
	"github.com/dgnsrekt/daydrill/internal/integrity"
	"github.com/dgnsrekt/daydrill/internal/schedule"
	"github.com/dgnsrekt/daydrill/internal/study"
	"github.com/dgnsrekt/daydrill/internal/tts"
	"github.com/dgnsrekt/daydrill/internal/tts/engines"
)

var testFormat = audio.NewFormat(8000)

type env struct {
	out      string
	cacheDir string
	engine   *engines.MockEngine
	store    *cache.Store
	runner   *Runner
}

type envOption func(*Options, *cache.Options)

func halt(v bool) envOption {
	return func(o *Options, _ *cache.Options) { o.HaltOnFailure = v }
}

func degraded() envOption {
	return func(_ *Options, c *cache.Options) { c.Policy = cache.FailDegraded }
}

// newEnv wires a runner the way the CLI does, with the mock engine and the
// WAV codec. Calling it twice with the same directories simulates a second
// process.
func newEnv(t *testing.T, out, cacheDir string, opts ...envOption) *env {
	t.Helper()
	logger := log.New(io.Discard)

	engine := engines.NewMockEngine(testFormat)
	disk, err := cache.NewDiskCache(cacheDir, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = disk.Close() })

	copts := cache.Options{
		Memory:      cache.NewMemoryCache(1 << 22),
		Disk:        disk,
		Synthesizer: engine,
		Format:      testFormat,
		Logger:      logger,
	}

	sched, err := schedule.New(schedule.DefaultConfig())
	require.NoError(t, err)

	ropts := Options{
		Items:            study.SampleItems,
		Templates:        compiler.DefaultTemplates(),
		Layout:           Layout{Root: out, Pad: 3},
		Scheduler:        sched,
		Codec:            audio.WAVCodec{},
		Validator:        integrity.New(audio.WAVCodec{}, integrity.DefaultPolicy()),
		MaxDay:           4,
		HaltOnFailure:    true,
		StrictValidation: true,
		Workers:          4,
		Logger:           logger,
	}
	for _, o := range opts {
		o(&ropts, &copts)
	}

	store, err := cache.NewStore(copts)
	require.NoError(t, err)

	comp, err := compiler.New(compiler.Options{
		Resolver:      store,
		Base:          compiler.Voice{Language: "en"},
		Target:        compiler.Voice{Language: "da"},
		Format:        testFormat,
		ExplicitPause: 500 * time.Millisecond,
		Logger:        logger,
	})
	require.NoError(t, err)

	ropts.Compiler = comp
	ropts.Cache = store
	runner, err := New(ropts)
	require.NoError(t, err)

	return &env{out: out, cacheDir: cacheDir, engine: engine, store: store, runner: runner}
}

// snapshot maps every file under root to a hash of its contents.
func snapshot(t *testing.T, root string) map[string][32]byte {
	t.Helper()
	files := make(map[string][32]byte)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == lockName {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		files[rel] = sha256.Sum256(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func dayDirs(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestRunBuildsAllDays(t *testing.T) {
	e := newEnv(t, t.TempDir(), t.TempDir())

	sum, err := e.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Built)
	assert.Zero(t, sum.Skipped)
	assert.NotEmpty(t, sum.RunID)

	assert.Equal(t, []string{"day_001", "day_002", "day_003", "day_004"}, dayDirs(t, e.out))
	for day := 1; day <= 4; day++ {
		complete, err := e.runner.Layout().Complete(day)
		require.NoError(t, err)
		assert.True(t, complete, "day %d", day)
	}

	for _, d := range sum.Days {
		for _, r := range d.Tracks {
			assert.True(t, r.Valid, "day %d %s: %s", d.Day, r.Path, r.Message)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	out, cacheDir := t.TempDir(), t.TempDir()

	first := newEnv(t, out, cacheDir)
	_, err := first.runner.Run(context.Background())
	require.NoError(t, err)
	before := snapshot(t, out)
	require.NotEmpty(t, before)

	second := newEnv(t, out, cacheDir)
	sum, err := second.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, sum.Built)
	assert.Equal(t, 4, sum.Skipped)
	assert.Zero(t, second.engine.Calls())
	assert.Equal(t, before, snapshot(t, out))
}

func TestRunRebuildsFromCacheOnly(t *testing.T) {
	cacheDir := t.TempDir()

	first := newEnv(t, t.TempDir(), cacheDir)
	_, err := first.runner.Run(context.Background())
	require.NoError(t, err)
	require.NotZero(t, first.engine.Calls())

	// fresh output, warm cache
	second := newEnv(t, t.TempDir(), cacheDir)
	sum, err := second.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Built)
	assert.Zero(t, second.engine.Calls())
	assert.Equal(t, snapshot(t, first.out), snapshot(t, second.out))
}

func TestRunRecoversSingleDay(t *testing.T) {
	out, cacheDir := t.TempDir(), t.TempDir()

	e := newEnv(t, out, cacheDir)
	_, err := e.runner.Run(context.Background())
	require.NoError(t, err)
	before := snapshot(t, out)

	removed := e.runner.Layout().TrackPath(2, "review_forward")
	require.NoError(t, os.Remove(removed))

	status, err := e.runner.Status()
	require.NoError(t, err)
	assert.Equal(t, []int{2}, Pending(status))

	again := newEnv(t, out, cacheDir)
	sum, err := again.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Built)
	assert.Equal(t, 3, sum.Skipped)
	assert.Zero(t, again.engine.Calls())
	assert.Equal(t, before, snapshot(t, out))
}

func TestRunRollsBackInconsistentDay(t *testing.T) {
	e := newEnv(t, t.TempDir(), t.TempDir())
	e.runner.verify = func(p *schedule.DayPlan) error {
		if p.Day == 2 {
			return &schedule.ConsistencyError{Day: 2, Template: "workout", Check: "forced"}
		}
		return schedule.Verify(p)
	}

	sum, err := e.runner.Run(context.Background())
	require.Error(t, err)

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 2, be.Day)
	assert.Equal(t, CheckSchedule, be.Check)

	var ce *schedule.ConsistencyError
	assert.ErrorAs(t, err, &ce)

	assert.Equal(t, 1, sum.Built)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, []string{"day_001"}, dayDirs(t, e.out))
}

func TestRunRollbackLeavesNoFiles(t *testing.T) {
	e := newEnv(t, t.TempDir(), t.TempDir())
	e.runner.verify = func(p *schedule.DayPlan) error {
		return &schedule.ConsistencyError{Day: p.Day, Check: "forced"}
	}

	_, err := e.runner.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, snapshot(t, e.out))
	assert.Empty(t, dayDirs(t, e.out))
}

func TestRunContinuesAfterFailure(t *testing.T) {
	e := newEnv(t, t.TempDir(), t.TempDir(), halt(false))
	e.runner.verify = func(p *schedule.DayPlan) error {
		if p.Day == 2 {
			return &schedule.ConsistencyError{Day: 2, Check: "forced"}
		}
		return schedule.Verify(p)
	}

	sum, err := e.runner.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, sum.Built)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, []string{"day_001", "day_003", "day_004"}, dayDirs(t, e.out))
}

func TestRunSynthesisFailure(t *testing.T) {
	e := newEnv(t, t.TempDir(), t.TempDir())
	// "tryghed" is first taught on day 2
	e.engine.FailOn("tryghed", tts.NewSynthesisError(tts.ErrorCodeEngineFailure, "boom", nil))

	sum, err := e.runner.Run(context.Background())
	require.Error(t, err)

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 2, be.Day)
	assert.Equal(t, CheckSynthesis, be.Check)
	assert.Equal(t, 1, sum.Built)
	assert.Equal(t, []string{"day_001"}, dayDirs(t, e.out))
}

func TestRunDegradedLeavesDayPending(t *testing.T) {
	out, cacheDir := t.TempDir(), t.TempDir()
	e := newEnv(t, out, cacheDir, degraded())
	// "tryghed" is taught on day 2 and reviewed on day 3
	e.engine.FailOn("tryghed", tts.NewSynthesisError(tts.ErrorCodeEngineFailure, "boom", nil))

	sum, err := e.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Built)
	assert.Equal(t, 2, sum.Pending)
	assert.Equal(t, StatePending, sum.Days[1].State)
	assert.NotZero(t, sum.Days[1].Degraded)
	assert.NotZero(t, sum.Cache.Placeholders)

	// placeholders are never cached
	assert.False(t, e.store.Contains(cache.Key{Text: "tryghed", Language: "da", Speed: 1}))

	layout := e.runner.Layout()
	assert.NoFileExists(t, layout.TrackPath(2, "workout"))
	assert.FileExists(t, layout.TrackPath(2, "review_forward"))
	complete, err := layout.Complete(2)
	require.NoError(t, err)
	assert.False(t, complete)

	status, err := e.runner.Status()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, Pending(status))

	// the engine recovers; the next run rebuilds only the pending days
	next := newEnv(t, out, cacheDir, degraded())
	sum, err = next.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Built)
	assert.Equal(t, 2, sum.Skipped)
	assert.Zero(t, sum.Pending)
	assert.Greater(t, next.engine.Calls(), int64(0))
	assert.FileExists(t, layout.TrackPath(2, "workout"))
	assert.True(t, next.store.Contains(cache.Key{Text: "tryghed", Language: "da", Speed: 1}))
}

func TestRunStatErrorRollsBack(t *testing.T) {
	e := newEnv(t, t.TempDir(), t.TempDir(), halt(false))
	layout := e.runner.Layout()
	// a file where the day directory belongs makes every stat fail with ENOTDIR
	require.NoError(t, os.WriteFile(layout.DayDir(2), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(layout.StagingDir(2), 0o755))

	sum, err := e.runner.Run(context.Background())
	require.Error(t, err)

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 2, be.Day)
	assert.Equal(t, CheckCommit, be.Check)
	assert.Equal(t, StateFailed, sum.Days[1].State)
	assert.Equal(t, 3, sum.Built)
	assert.NoFileExists(t, layout.DayDir(2))
	assert.NoDirExists(t, layout.StagingDir(2))
}

func TestRunCanceled(t *testing.T) {
	e := newEnv(t, t.TempDir(), t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := e.runner.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, CheckCanceled, be.Check)
	assert.Zero(t, sum.Built)
	assert.Empty(t, dayDirs(t, e.out))
}

// skewCodec reports every track one second longer than it is.
type skewCodec struct{ audio.WAVCodec }

func (c skewCodec) Measure(ctx context.Context, data []byte) (time.Duration, error) {
	d, err := c.WAVCodec.Measure(ctx, data)
	return d + time.Second, err
}

func TestRunValidationModes(t *testing.T) {
	tests := []struct {
		name   string
		strict bool
	}{
		{"strict fails", true},
		{"report completes", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, t.TempDir(), t.TempDir(), func(o *Options, _ *cache.Options) {
				o.Validator = integrity.New(skewCodec{}, integrity.DefaultPolicy())
				o.StrictValidation = tt.strict
			})

			sum, err := e.runner.Run(context.Background())
			if tt.strict {
				var mismatch *integrity.DurationMismatch
				require.ErrorAs(t, err, &mismatch)
				var be *BuildError
				require.ErrorAs(t, err, &be)
				assert.Equal(t, CheckValidate, be.Check)
				assert.Empty(t, dayDirs(t, e.out))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 4, sum.Built)
		})
	}
}

func TestRunLocked(t *testing.T) {
	e := newEnv(t, t.TempDir(), t.TempDir())

	lock := flock.New(e.runner.Layout().LockPath())
	ok, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = lock.Unlock() }()

	_, err = e.runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrLocked)
}

func TestRunReplacesStaleStaging(t *testing.T) {
	e := newEnv(t, t.TempDir(), t.TempDir())
	stale := e.runner.Layout().StagingDir(1)
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "junk"), []byte("x"), 0o644))

	_, err := e.runner.Run(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = os.Stat(filepath.Join(e.runner.Layout().DayDir(1), "junk"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestManifest(t *testing.T) {
	e := newEnv(t, t.TempDir(), t.TempDir())
	_, err := e.runner.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(e.runner.Layout().ManifestPath(1))
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)

	require.NotEmpty(t, rows)
	assert.Equal(t, manifestHeader, rows[0])

	perTemplate := make(map[string]int)
	for _, row := range rows[1:] {
		perTemplate[row[0]]++
		assert.Equal(t, "new", row[9])
		assert.Equal(t, "1", row[8])
	}
	// three new items on day 1
	assert.Equal(t, 9, perTemplate["workout"])
	assert.Equal(t, 3, perTemplate["review_forward"])
	assert.Equal(t, 3, perTemplate["review_reverse"])
}

func TestLayout(t *testing.T) {
	l := Layout{Root: "out", Pad: 3, Ext: ".wav", Templates: []string{"a", "b"}}
	assert.Equal(t, filepath.Join("out", "day_007"), l.DayDir(7))
	assert.Equal(t, filepath.Join("out", ".day_007.partial"), l.StagingDir(7))
	assert.Equal(t, filepath.Join("out", "day_1234", "a.wav"), l.TrackPath(1234, "a"))
	assert.Equal(t, []string{
		filepath.Join("out", "day_002", ManifestName),
		filepath.Join("out", "day_002", "a.wav"),
		filepath.Join("out", "day_002", "b.wav"),
	}, l.Required(2))
	assert.True(t, strings.HasSuffix(l.LockPath(), lockName))
}

func TestStatus(t *testing.T) {
	e := newEnv(t, t.TempDir(), t.TempDir())

	status, err := e.runner.Status()
	require.NoError(t, err)
	require.Len(t, status, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, Pending(status))
	assert.Len(t, status[0].Missing, 4)

	_, err = e.runner.Run(context.Background())
	require.NoError(t, err)

	status, err = e.runner.Status()
	require.NoError(t, err)
	assert.Empty(t, Pending(status))
}

func TestNewDefaults(t *testing.T) {
	e := newEnv(t, t.TempDir(), t.TempDir(), func(o *Options, _ *cache.Options) { o.MaxDay = 0 })
	assert.Equal(t, 3, e.runner.MaxDay())
	assert.Equal(t, "wav", e.runner.Layout().Ext)
	assert.Equal(t, []string{"workout", "review_forward", "review_reverse"}, e.runner.Layout().Templates)
}
