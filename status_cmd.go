package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/pipeline"
	"github.com/dgnsrekt/daydrill/internal/study"
)

var (
	statusAll bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "List days that still need building",
		Long:  paragraph(fmt.Sprintf("\n%s which days are complete on disk without building anything.", keyword("Show"))),
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			items, err := study.Load(settings.Source)
			if err != nil {
				return err
			}
			codec, err := audio.NewCodec(settings.CodecOptions())
			if err != nil {
				return err
			}

			maxDay := settings.Build.MaxDay
			if maxDay == 0 {
				maxDay = study.MaxOriginDay(items)
			}
			days, err := pipeline.Scan(layoutFor(settings, codec), maxDay)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(days))
			for _, d := range days {
				if d.State == pipeline.StateComplete && !statusAll {
					continue
				}
				missing := make([]string, 0, len(d.Missing))
				for _, p := range d.Missing {
					missing = append(missing, filepath.Base(p))
				}
				rows = append(rows, []string{strconv.Itoa(d.Day), d.State.String(), strings.Join(missing, ", ")})
			}

			pending := pipeline.Pending(days)
			if len(rows) > 0 {
				fmt.Println(renderTable([]string{"Day", "State", "Missing"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
			}
			fmt.Printf("%d of %d days pending in %s\n", len(pending), len(days), settings.OutputDir)
			return nil
		},
	}
)

func init() {
	statusCmd.Flags().BoolVarP(&statusAll, "all", "a", false, "include complete days")
}
