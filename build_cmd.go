package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/daydrill/internal/pipeline"
)

var (
	watch bool

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build every missing day",
		Long: paragraph(fmt.Sprintf("\n%s the days whose manifest or tracks are missing. Complete days are left alone, so deleting a single file rebuilds exactly that day.", keyword("Build"))),
		Example: paragraph("daydrill build\ndaydrill build --max-day 30 --engine mock --offline\ndaydrill build --watch"),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !watch {
				return buildOnce(ctx)
			}
			return buildWatch(ctx)
		},
	}
)

func init() {
	f := buildCmd.Flags()
	f.Int("max-day", 0, "last day to build (0: last day in the vocabulary)")
	f.String("engine", "", "speech engine: gtts, piper or mock")
	f.Bool("offline", false, "write empty tracks and skip audio tooling")
	f.Bool("strict", false, "fail a day when a track duration is off")
	f.Bool("degraded", false, "use silent placeholders for segments that fail to synthesize")
	f.Bool("halt-on-failure", true, "stop at the first failed day")
	f.Int("workers", 0, "concurrent syntheses while warming the cache")
	f.BoolVarP(&watch, "watch", "w", false, "rebuild when the vocabulary file changes")

	_ = viper.BindPFlag("build.max_day", f.Lookup("max-day"))
	_ = viper.BindPFlag("engine.name", f.Lookup("engine"))
	_ = viper.BindPFlag("audio.offline", f.Lookup("offline"))
	_ = viper.BindPFlag("validation.strict", f.Lookup("strict"))
	_ = viper.BindPFlag("cache.degraded", f.Lookup("degraded"))
	_ = viper.BindPFlag("build.halt_on_failure", f.Lookup("halt-on-failure"))
	_ = viper.BindPFlag("build.workers", f.Lookup("workers"))
}

func buildOnce(ctx context.Context) error {
	logger := log.Default()

	a, err := newApp(settings, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	sum, err := a.runner.Run(ctx)
	printSummary(sum)
	return err
}

func printSummary(sum pipeline.Summary) {
	if len(sum.Days) == 0 {
		return
	}
	fmt.Printf("%s %d built, %d already complete, %d failed\n",
		keyword("daydrill"), sum.Built, sum.Skipped, sum.Failed)
	if sum.Pending > 0 {
		fmt.Println(faint(fmt.Sprintf("%d days left pending: tracks with silent placeholders were not written", sum.Pending)))
	}

	c := sum.Cache
	fmt.Println(faint(fmt.Sprintf("segments: %s synthesized, %s rendered, %s from memory, %s from disk",
		humanize.Comma(c.Syntheses), humanize.Comma(c.Renders),
		humanize.Comma(c.MemoryHits), humanize.Comma(c.DiskHits))))
	if m := c.Memory; m.Evictions > 0 {
		log.Debug("memory tier under pressure", "hit_rate", fmt.Sprintf("%.0f%%", 100*m.HitRate()),
			"evictions", m.Evictions, "held", humanize.Bytes(uint64(m.Bytes)), "limit", humanize.Bytes(uint64(m.Limit))) //nolint:gosec
	}
	if c.Placeholders > 0 {
		fmt.Println(faint(fmt.Sprintf("%s silent placeholders, rerun to retry them", humanize.Comma(c.Placeholders))))
	}
}

// buildWatch builds, then rebuilds whenever the vocabulary file is written.
func buildWatch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	source, err := filepath.Abs(settings.Source)
	if err != nil {
		return err
	}
	// editors often replace the file, so watch its directory
	dir := filepath.Dir(source)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	log.Info("fsnotify watching dir", "dir", dir)

	rebuild := func() {
		if err := buildOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("build failed", "err", err)
		}
	}
	rebuild()

	const settle = 500 * time.Millisecond
	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != source {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			timer = time.After(settle)
		case <-timer:
			timer = nil
			log.Info("vocabulary changed, rebuilding", "source", source)
			rebuild()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}
