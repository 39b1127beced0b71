package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const defaultConfig = `# master vocabulary CSV (id, W2, W1, L1, L2, StudyDay)
source: "sentence_pairs.csv"
# where day_NNN directories are written
output_dir: "output"

log:
  # debug, info, warn or error
  level: "info"
  # append logs to a file instead of stderr
  file: ""

# language tags of the two sides
languages:
  base: "en-GB"
  target: "da"

# engine voice per side: a Google domain for gtts (co.uk), a model path for piper
voices:
  base: ""
  target: ""

engine:
  # gtts, piper or mock
  name: "gtts"
  requests_per_minute: 50
  timeout: "30s"
  piper:
    binary: "piper"
    sample_rate: 22050

retry:
  max_attempts: 4
  initial_interval: "500ms"
  max_interval: "10s"

cache:
  dir: "cache"
  memory_mb: 256
  # zstd level 1-4
  compression_level: 3
  # use silent placeholders for failed segments instead of failing the day
  degraded: false

schedule:
  # days after first study on which an item comes back
  macro_intervals: [1, 3, 7, 14, 30, 60, 120, 240]
  # slot offsets between repeats inside a track
  micro_intervals: [0, 3, 7, 14, 28]
  # at most this many reviews per new item (0: no limit)
  review_ratio: 0
  seed: 0

audio:
  sample_rate: 24000
  # wav or mp3 (mp3 needs ffmpeg)
  format: "wav"
  bitrate: "128k"
  # length of an SP token
  explicit_pause: "3s"
  # add each segment's own length to its pause, to repeat it aloud
  echo_pauses: false
  # write empty tracks, for dry runs
  offline: false
  pauses:
    W1: "250ms"
    W2: "250ms"
    L1: "500ms"
    L2: "500ms"

validation:
  # fail the day when a track is off by more than the tolerance
  strict: false
  tolerance: "150ms"
  relative_tolerance: 0.01

build:
  # 0: last day in the vocabulary
  max_day: 0
  halt_on_failure: true
  pad: 3
  workers: 4

templates:
  - name: "workout"
    pattern: "SP W2 W1 L1 L2 L2 L2 L2 L2"
    repetitions: 3
    source: "new_only"
    speed: 1.0
  - name: "review_forward"
    pattern: "SP W2 W1 L1 L2"
    repetitions: 1
    source: "all_due"
    speed: 1.0
  - name: "review_reverse"
    pattern: "SP W2 W1 L2 L1"
    repetitions: 1
    source: "all_due"
    speed: 1.0

# extra content tokens; side is taken from the suffix (1 base, 2 target)
# roles:
#   S2:
#     field: "secondary_front"
#     pause: "1s"
`

var (
	configCmd = &cobra.Command{
		Use:     "config",
		Hidden:  false,
		Short:   "Edit the daydrill config file",
		Long:    paragraph(fmt.Sprintf("\n%s the daydrill config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
		Example: paragraph("daydrill config\ndaydrill config --config path/to/config.yml\ndaydrill config show"),
		Args:    cobra.NoArgs,
		// the file must stay editable while it is invalid
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(*cobra.Command, []string) error {
			if err := ensureConfigFile(); err != nil {
				return err
			}

			c, err := editor.Cmd("daydrill", configFile)
			if err != nil {
				return fmt.Errorf("unable to set config file: %w", err)
			}
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			if err := c.Run(); err != nil {
				return fmt.Errorf("unable to run command: %w", err)
			}

			fmt.Println("Wrote config file to:", configFile)
			return nil
		},
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Long:  paragraph(fmt.Sprintf("\n%s the settings after merging defaults, the config file, environment and flags.", keyword("Print"))),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" && cmd.Flags().Changed("config") {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("unable to read config file: %w", err)
				}
			}
			if used := viper.ConfigFileUsed(); used != "" {
				fmt.Println(faint("# " + used))
			}

			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(viper.AllSettings()); err != nil {
				return fmt.Errorf("unable to encode settings: %w", err)
			}
			return enc.Close()
		},
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
