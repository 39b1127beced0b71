package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/daydrill/internal/study"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample vocabulary file",
	Long:  paragraph(fmt.Sprintf("\n%s a small sample vocabulary to the configured source path. An existing file is never overwritten.", keyword("Write"))),
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		written, err := study.WriteSample(settings.Source)
		if err != nil {
			return err
		}
		if !written {
			fmt.Println("Vocabulary already exists:", settings.Source)
			return nil
		}
		fmt.Println("Wrote sample vocabulary to:", settings.Source)
		return nil
	},
}
