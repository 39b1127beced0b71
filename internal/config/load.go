package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// DAYDRILL_ENGINE_NAME=mock.
const EnvPrefix = "daydrill"

var validate = validator.New()

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source", "sentence_pairs.csv")
	v.SetDefault("output_dir", "output")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("languages.base", "en-GB")
	v.SetDefault("languages.target", "da")
	v.SetDefault("voices.base", "")
	v.SetDefault("voices.target", "")

	v.SetDefault("engine.name", "gtts")
	v.SetDefault("engine.requests_per_minute", 50)
	v.SetDefault("engine.timeout", "30s")
	v.SetDefault("engine.tempdir", "")
	v.SetDefault("engine.slow", false)
	v.SetDefault("engine.piper.binary", "piper")
	v.SetDefault("engine.piper.sample_rate", 22050)

	v.SetDefault("retry.max_attempts", 4)
	v.SetDefault("retry.initial_interval", "500ms")
	v.SetDefault("retry.max_interval", "10s")

	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.memory_mb", 256)
	v.SetDefault("cache.compression_level", 3)
	v.SetDefault("cache.degraded", false)

	v.SetDefault("schedule.macro_intervals", []int{1, 3, 7, 14, 30, 60, 120, 240})
	v.SetDefault("schedule.micro_intervals", []int{0, 3, 7, 14, 28})
	v.SetDefault("schedule.review_ratio", 0)
	v.SetDefault("schedule.seed", 0)

	v.SetDefault("audio.sample_rate", 24000)
	v.SetDefault("audio.format", "wav")
	v.SetDefault("audio.bitrate", "128k")
	v.SetDefault("audio.explicit_pause", "3s")
	v.SetDefault("audio.echo_pauses", false)
	v.SetDefault("audio.offline", false)
	v.SetDefault("audio.pauses", map[string]any{
		"W1": "250ms",
		"W2": "250ms",
		"L1": "500ms",
		"L2": "500ms",
	})

	v.SetDefault("validation.strict", false)
	v.SetDefault("validation.tolerance", "150ms")
	v.SetDefault("validation.relative_tolerance", 0.01)

	v.SetDefault("build.max_day", 0)
	v.SetDefault("build.halt_on_failure", true)
	v.SetDefault("build.pad", 3)
	v.SetDefault("build.workers", 4)

	v.SetDefault("templates", []map[string]any{
		{"name": "workout", "pattern": "SP W2 W1 L1 L2 L2 L2 L2 L2", "repetitions": 3, "source": "new_only", "speed": 1.0},
		{"name": "review_forward", "pattern": "SP W2 W1 L1 L2", "repetitions": 1, "source": "all_due", "speed": 1.0},
		{"name": "review_reverse", "pattern": "SP W2 W1 L2 L1", "repetitions": 1, "source": "all_due", "speed": 1.0},
	})
}

// Default returns the settings with nothing but defaults applied.
func Default() Settings {
	v := viper.New()
	SetDefaults(v)
	s, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("invalid default settings: %v", err))
	}
	return s
}

// Load decodes, normalises and validates the settings held by v.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.normalize(); err != nil {
		return s, err
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate checks field constraints and cross-field rules.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid settings:\n  %s", strings.Join(msgs, "\n  "))
		}
		return fmt.Errorf("invalid settings: %w", err)
	}

	seen := make(map[string]bool, len(s.Templates))
	for _, t := range s.Templates {
		if seen[t.Name] {
			return fmt.Errorf("invalid settings: duplicate template %q", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// normalize upper-cases role tokens, which viper lower-cases, and expands
// ~ in paths.
func (s *Settings) normalize() error {
	if len(s.Audio.Pauses) > 0 {
		pauses := make(map[string]time.Duration, len(s.Audio.Pauses))
		for k, d := range s.Audio.Pauses {
			pauses[strings.ToUpper(k)] = d
		}
		s.Audio.Pauses = pauses
	}
	if len(s.Roles) > 0 {
		roles := make(map[string]RoleSettings, len(s.Roles))
		for k, r := range s.Roles {
			roles[strings.ToUpper(k)] = r
		}
		s.Roles = roles
	}

	s.Audio.Format = strings.ToLower(s.Audio.Format)
	s.Log.Level = strings.ToLower(s.Log.Level)

	paths := []*string{&s.Source, &s.OutputDir, &s.Cache.Dir, &s.Log.File, &s.Engine.TempDir}
	if strings.EqualFold(s.Engine.Name, "piper") {
		paths = append(paths, &s.Voices.Base, &s.Voices.Target)
	}
	for _, p := range paths {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}
