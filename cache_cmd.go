package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/daydrill/internal/cache"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the segment cache",
		Args:  cobra.NoArgs,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show how many segments are cached",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			disk, err := cache.NewDiskCache(settings.Cache.Dir, settings.Cache.CompressionLevel)
			if err != nil {
				return err
			}
			defer func() { _ = disk.Close() }()

			u, err := disk.Usage()
			if err != nil {
				return err
			}

			var files, bytes int64
			rows := make([][]string, 0, 3)
			for _, tier := range []cache.Tier{cache.TierRaw, cache.TierRendered} {
				files += u.Files[tier]
				bytes += u.Bytes[tier]
				rows = append(rows, []string{tier.String(), humanize.Comma(u.Files[tier]), humanize.Bytes(uint64(u.Bytes[tier]))}) //nolint:gosec
			}
			rows = append(rows, []string{"total", humanize.Comma(files), humanize.Bytes(uint64(bytes))}) //nolint:gosec

			fmt.Println(renderTable([]string{"Tier", "Segments", "Size"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
			fmt.Println(faint(disk.Dir()))
			return nil
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached segment",
		Long:  paragraph(fmt.Sprintf("\n%s every cached segment. The next build synthesizes everything again; finished days are not touched.", keyword("Delete"))),
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			disk, err := cache.NewDiskCache(settings.Cache.Dir, settings.Cache.CompressionLevel)
			if err != nil {
				return err
			}
			defer func() { _ = disk.Close() }()

			u, err := disk.Usage()
			if err != nil {
				return err
			}
			if err := disk.Clear(); err != nil {
				return err
			}
			removed := u.Files[cache.TierRaw] + u.Files[cache.TierRendered]
			fmt.Printf("Removed %s segments from %s\n", humanize.Comma(removed), disk.Dir())
			return nil
		},
	}
)

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}
