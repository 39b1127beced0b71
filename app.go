package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/cache"
	"github.com/dgnsrekt/daydrill/internal/compiler"
	"github.com/dgnsrekt/daydrill/internal/config"
	"github.com/dgnsrekt/daydrill/internal/integrity"
	"github.com/dgnsrekt/daydrill/internal/pipeline"
	"github.com/dgnsrekt/daydrill/internal/schedule"
	"github.com/dgnsrekt/daydrill/internal/study"
	"github.com/dgnsrekt/daydrill/internal/tts"
	"github.com/dgnsrekt/daydrill/internal/tts/engines"
)

// app holds everything one build needs.
type app struct {
	settings config.Settings
	disk     *cache.DiskCache
	store    *cache.Store
	runner   *pipeline.Runner
}

func newApp(s config.Settings, logger *log.Logger) (*app, error) {
	items, err := study.Load(s.Source)
	if err != nil {
		return nil, err
	}

	engineOpts, err := s.EngineOptions()
	if err != nil {
		return nil, err
	}
	if res := tts.CheckEngine(engineOpts.Engine); !res.Available {
		return nil, fmt.Errorf("%w\n\n%s", res.Error, res.Guidance)
	}
	synth, err := engines.New(engineOpts)
	if err != nil {
		return nil, err
	}
	synth = tts.NewRetrying(synth, s.RetryPolicy(), logger.With("component", "retry"))

	disk, err := cache.NewDiskCache(s.Cache.Dir, s.Cache.CompressionLevel)
	if err != nil {
		return nil, err
	}

	policy := cache.FailStrict
	if s.Cache.Degraded {
		policy = cache.FailDegraded
	}
	store, err := cache.NewStore(cache.Options{
		Memory:      cache.NewMemoryCache(s.MemoryBytes()),
		Disk:        disk,
		Synthesizer: synth,
		Format:      s.Format(),
		Policy:      policy,
		Logger:      logger.With("component", "cache"),
	})
	if err != nil {
		return nil, errors.Join(err, disk.Close())
	}

	runner, err := newRunner(s, items, store, logger)
	if err != nil {
		return nil, errors.Join(err, disk.Close())
	}
	return &app{settings: s, disk: disk, store: store, runner: runner}, nil
}

func newRunner(s config.Settings, items []study.Item, store *cache.Store, logger *log.Logger) (*pipeline.Runner, error) {
	roles, err := s.CompiledRoles()
	if err != nil {
		return nil, err
	}
	templates, err := s.CompiledTemplates(roles)
	if err != nil {
		return nil, err
	}

	copts := s.CompilerOptions(roles)
	copts.Resolver = store
	copts.Logger = logger.With("component", "compiler")
	comp, err := compiler.New(copts)
	if err != nil {
		return nil, err
	}

	sched, err := schedule.New(s.ScheduleConfig())
	if err != nil {
		return nil, err
	}

	codec, err := audio.NewCodec(s.CodecOptions())
	if err != nil {
		return nil, err
	}

	return pipeline.New(pipeline.Options{
		Items:            items,
		Templates:        templates,
		Layout:           layoutFor(s, codec),
		Scheduler:        sched,
		Compiler:         comp,
		Cache:            store,
		Codec:            codec,
		Validator:        integrity.New(codec, s.ValidationPolicy()),
		MaxDay:           s.Build.MaxDay,
		HaltOnFailure:    s.Build.HaltOnFailure,
		StrictValidation: s.Validation.Strict,
		Workers:          s.Build.Workers,
		Logger:           logger.With("component", "pipeline"),
	})
}

func layoutFor(s config.Settings, codec audio.Codec) pipeline.Layout {
	names := make([]string, 0, len(s.Templates))
	for _, t := range s.Templates {
		names = append(names, t.Name)
	}
	return pipeline.Layout{
		Root:      s.OutputDir,
		Pad:       s.Build.Pad,
		Ext:       codec.Ext(),
		Templates: names,
	}
}

func (a *app) Close() error {
	return a.disk.Close()
}
