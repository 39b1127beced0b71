package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/tts"
)

// FailurePolicy decides what GetOrCreate returns when synthesis fails.
type FailurePolicy int

const (
	// FailStrict returns the synthesis error.
	FailStrict FailurePolicy = iota

	// FailDegraded returns a short silent placeholder marked Degraded.
	// Placeholders are never written to either tier.
	FailDegraded
)

// PlaceholderDuration is the length of a degraded placeholder.
const PlaceholderDuration = 500 * time.Millisecond

// Source tells where a Result came from.
type Source int

const (
	SourceMemory Source = iota
	SourceDisk
	SourceSynthesized
	SourceRendered
	SourcePlaceholder
)

func (s Source) String() string {
	switch s {
	case SourceMemory:
		return "memory"
	case SourceDisk:
		return "disk"
	case SourceSynthesized:
		return "synthesized"
	case SourceRendered:
		return "rendered"
	case SourcePlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Result is resolved audio for a key.
type Result struct {
	Clip     audio.Clip
	Source   Source
	Degraded bool
}

// Stats counts what the store did during a run.
type Stats struct {
	MemoryHits   int64
	DiskHits     int64
	Syntheses    int64
	Renders      int64
	Corrupt      int64
	Placeholders int64
	Memory       CacheStats
}

// Options configures a Store.
type Options struct {
	Memory      *MemoryCache
	Disk        *DiskCache
	Synthesizer tts.Synthesizer
	Renderer    tts.Renderer
	Format      audio.Format
	Policy      FailurePolicy
	Logger      *log.Logger
}

// Store resolves keys to audio through memory, disk and finally the
// synthesizer. Concurrent requests for the same key share one resolution.
type Store struct {
	mem    *MemoryCache
	disk   *DiskCache
	synth  tts.Synthesizer
	render tts.Renderer
	format audio.Format
	policy FailurePolicy
	logger *log.Logger

	group singleflight.Group

	// keys whose synthesis failed in this run; degraded mode only
	failedMu sync.Mutex
	failed   map[string]struct{}

	memoryHits   atomic.Int64
	diskHits     atomic.Int64
	syntheses    atomic.Int64
	renders      atomic.Int64
	corrupt      atomic.Int64
	placeholders atomic.Int64
}

// NewStore creates a store. Disk and Synthesizer are required.
func NewStore(opts Options) (*Store, error) {
	if opts.Disk == nil {
		return nil, errors.New("cache: disk cache is required")
	}
	if opts.Synthesizer == nil {
		return nil, errors.New("cache: synthesizer is required")
	}
	if opts.Memory == nil {
		opts.Memory = NewMemoryCache(0)
	}
	if opts.Format.SampleRate == 0 {
		opts.Format = audio.NewFormat(audio.DefaultSampleRate)
	}
	if opts.Renderer == nil {
		opts.Renderer = audio.SpeedRenderer{Format: opts.Format}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Store{
		mem:    opts.Memory,
		disk:   opts.Disk,
		synth:  opts.Synthesizer,
		render: opts.Renderer,
		format: opts.Format,
		policy: opts.Policy,
		logger: opts.Logger,
		failed: make(map[string]struct{}),
	}, nil
}

// GetOrCreate returns the audio for key, synthesizing and rendering only
// what neither tier holds yet. Rendered keys are served from the rendered
// tier first; on a miss the raw tier is consulted (or filled) and the
// result re-rendered and stored. In degraded mode a key that failed once
// is served as a placeholder for the rest of the run.
func (s *Store) GetOrCreate(ctx context.Context, key Key) (Result, error) {
	if key.Speed != 0 && key.Speed != NormalSpeed {
		if err := audio.ValidateSpeed(key.Speed); err != nil {
			return Result{}, err
		}
	}

	if s.policy == FailDegraded && (s.hasFailed(key) || s.hasFailed(key.Raw())) {
		return s.placeholder(), nil
	}

	res, err := s.resolve(ctx, key)
	if err == nil {
		return res, nil
	}
	if s.policy == FailDegraded && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		s.markFailed(key)
		s.logger.Warn("synthesis failed, using silent placeholder", "text", key.Text, "err", err)
		return s.placeholder(), nil
	}
	return Result{}, err
}

// placeholder is never written to either tier.
func (s *Store) placeholder() Result {
	s.placeholders.Add(1)
	return Result{
		Clip:     audio.Silence(s.format, PlaceholderDuration),
		Source:   SourcePlaceholder,
		Degraded: true,
	}
}

func (s *Store) hasFailed(key Key) bool {
	s.failedMu.Lock()
	defer s.failedMu.Unlock()
	_, ok := s.failed[key.id()]
	return ok
}

func (s *Store) markFailed(key Key) {
	s.failedMu.Lock()
	defer s.failedMu.Unlock()
	s.failed[key.id()] = struct{}{}
}

func (s *Store) resolve(ctx context.Context, key Key) (Result, error) {
	if res, ok := s.lookup(key); ok {
		return res, nil
	}

	ch := s.group.DoChan(key.id(), func() (any, error) {
		// another caller may have finished between lookup and here
		if res, ok := s.lookup(key); ok {
			return res, nil
		}
		if key.Tier() == TierRaw {
			return s.synthesize(ctx, key)
		}
		return s.renderFromRaw(ctx, key)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// lookup checks memory then disk for key's own tier.
func (s *Store) lookup(key Key) (Result, bool) {
	if pcm, ok := s.mem.Get(key); ok {
		s.memoryHits.Add(1)
		return s.result(pcm, SourceMemory), true
	}

	pcm, err := s.disk.Get(key.Tier(), key.Digest())
	switch {
	case err == nil:
		verr := s.format.Validate(pcm)
		if verr == nil && len(pcm) == 0 {
			verr = ErrCacheCorrupted
		}
		if verr != nil {
			s.discard(key, verr)
			return Result{}, false
		}
		s.diskHits.Add(1)
		s.promote(key, pcm)
		return s.result(pcm, SourceDisk), true
	case errors.Is(err, ErrCacheCorrupted):
		s.discard(key, err)
	case !errors.Is(err, ErrCacheMiss):
		s.logger.Warn("cache read failed", "tier", key.Tier(), "err", err)
	}
	return Result{}, false
}

func (s *Store) discard(key Key, cause error) {
	s.corrupt.Add(1)
	_ = s.disk.Delete(key.Tier(), key.Digest())
	s.logger.Warn("discarding corrupt cache entry", "tier", key.Tier(), "digest", key.Digest(), "err", cause)
}

func (s *Store) synthesize(ctx context.Context, key Key) (Result, error) {
	pcm, err := s.synth.Synthesize(ctx, key.Text, key.Language, key.Voice)
	if err != nil {
		return Result{}, err
	}
	if err := s.format.Validate(pcm); err != nil {
		return Result{}, tts.NewSynthesisError(tts.ErrorCodeEngineFailure, "engine returned malformed audio", err)
	}
	if len(pcm) == 0 {
		return Result{}, tts.NewSynthesisError(tts.ErrorCodeEngineFailure, "engine returned no audio", nil)
	}
	s.syntheses.Add(1)

	if err := s.store(key, pcm); err != nil {
		return Result{}, err
	}
	s.logger.Debug("synthesized", "engine", s.synth.Name(), "text", key.Text, "duration", s.format.Duration(len(pcm)))
	return s.result(pcm, SourceSynthesized), nil
}

func (s *Store) renderFromRaw(ctx context.Context, key Key) (Result, error) {
	raw, err := s.resolve(ctx, key.Raw())
	if err != nil {
		return Result{}, err
	}

	pcm, err := s.render.Render(raw.Clip.PCM, key.Speed)
	if err != nil {
		return Result{}, fmt.Errorf("render at %.2fx: %w", key.Speed, err)
	}
	s.renders.Add(1)

	if err := s.store(key, pcm); err != nil {
		return Result{}, err
	}
	return s.result(pcm, SourceRendered), nil
}

// store persists to disk first so a memory hit always has a disk copy.
func (s *Store) store(key Key, pcm []byte) error {
	if err := s.disk.Put(key.Tier(), key.Digest(), pcm); err != nil {
		return err
	}
	s.promote(key, pcm)
	return nil
}

func (s *Store) promote(key Key, pcm []byte) {
	if err := s.mem.Put(key, pcm); err != nil && !errors.Is(err, ErrItemTooLarge) {
		s.logger.Debug("memory cache put failed", "err", err)
	}
}

func (s *Store) result(pcm []byte, src Source) Result {
	return Result{Clip: audio.Clip{Format: s.format, PCM: pcm}, Source: src}
}

// Warm resolves keys with at most workers concurrent resolutions. In
// strict mode the first failure cancels the rest and is returned.
func (s *Store) Warm(ctx context.Context, keys []Key, workers int) error {
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k.id()]; dup {
			continue
		}
		seen[k.id()] = struct{}{}

		g.Go(func() error {
			_, err := s.GetOrCreate(gctx, k)
			return err
		})
	}
	return g.Wait()
}

// Contains reports whether key is already cached in memory or on disk.
func (s *Store) Contains(key Key) bool {
	return s.mem.Contains(key) || s.disk.Contains(key.Tier(), key.Digest())
}

// Stats returns the counters collected so far.
func (s *Store) Stats() Stats {
	return Stats{
		MemoryHits:   s.memoryHits.Load(),
		DiskHits:     s.diskHits.Load(),
		Syntheses:    s.syntheses.Load(),
		Renders:      s.renders.Load(),
		Corrupt:      s.corrupt.Load(),
		Placeholders: s.placeholders.Load(),
		Memory:       s.mem.Stats(),
	}
}
