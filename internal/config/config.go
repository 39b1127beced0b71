package config

import (
	"time"
)

// Settings is the decoded configuration file.
type Settings struct {
	Source     string                  `mapstructure:"source" yaml:"source" validate:"required"`
	OutputDir  string                  `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
	Log        LogSettings             `mapstructure:"log" yaml:"log"`
	Languages  LanguageSettings        `mapstructure:"languages" yaml:"languages"`
	Voices     VoiceSettings           `mapstructure:"voices" yaml:"voices"`
	Engine     EngineSettings          `mapstructure:"engine" yaml:"engine"`
	Retry      RetrySettings           `mapstructure:"retry" yaml:"retry"`
	Cache      CacheSettings           `mapstructure:"cache" yaml:"cache"`
	Schedule   ScheduleSettings        `mapstructure:"schedule" yaml:"schedule"`
	Audio      AudioSettings           `mapstructure:"audio" yaml:"audio"`
	Validation ValidationSettings      `mapstructure:"validation" yaml:"validation"`
	Build      BuildSettings           `mapstructure:"build" yaml:"build"`
	Templates  []TemplateSettings      `mapstructure:"templates" yaml:"templates" validate:"required,min=1,dive"`
	Roles      map[string]RoleSettings `mapstructure:"roles" yaml:"roles,omitempty" validate:"dive"`
}

type LogSettings struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	File  string `mapstructure:"file" yaml:"file"`
}

// LanguageSettings are language tags for the two sides of a drill.
type LanguageSettings struct {
	Base   string `mapstructure:"base" yaml:"base" validate:"required"`
	Target string `mapstructure:"target" yaml:"target" validate:"required"`
}

// VoiceSettings select an engine voice per side. For gtts this is the
// Google domain (co.uk, com.au); for piper the model path.
type VoiceSettings struct {
	Base   string `mapstructure:"base" yaml:"base"`
	Target string `mapstructure:"target" yaml:"target"`
}

type EngineSettings struct {
	Name              string        `mapstructure:"name" yaml:"name" validate:"required"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute" validate:"gte=0"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
	TempDir           string        `mapstructure:"tempdir" yaml:"tempdir"`
	Slow              bool          `mapstructure:"slow" yaml:"slow"`
	Piper             PiperSettings `mapstructure:"piper" yaml:"piper"`
}

type PiperSettings struct {
	Binary     string `mapstructure:"binary" yaml:"binary"`
	SampleRate int    `mapstructure:"sample_rate" yaml:"sample_rate" validate:"gte=0"`
}

type RetrySettings struct {
	MaxAttempts     int           `mapstructure:"max_attempts" yaml:"max_attempts" validate:"gte=1"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval" validate:"gte=0"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval" validate:"gtefield=InitialInterval"`
}

type CacheSettings struct {
	Dir              string `mapstructure:"dir" yaml:"dir" validate:"required"`
	MemoryMB         int    `mapstructure:"memory_mb" yaml:"memory_mb" validate:"gte=0"`
	CompressionLevel int    `mapstructure:"compression_level" yaml:"compression_level" validate:"gte=1,lte=4"`

	// Degraded serves silent placeholders for failed segments instead of
	// failing the day.
	Degraded bool `mapstructure:"degraded" yaml:"degraded"`
}

type ScheduleSettings struct {
	MacroIntervals []int  `mapstructure:"macro_intervals" yaml:"macro_intervals" validate:"required,min=1,dive,gte=1"`
	MicroIntervals []int  `mapstructure:"micro_intervals" yaml:"micro_intervals" validate:"required,min=1,dive,gte=0"`
	ReviewRatio    int    `mapstructure:"review_ratio" yaml:"review_ratio" validate:"gte=0"`
	Seed           uint64 `mapstructure:"seed" yaml:"seed"`
}

type AudioSettings struct {
	SampleRate    int                      `mapstructure:"sample_rate" yaml:"sample_rate" validate:"gte=8000,lte=48000"`
	Format        string                   `mapstructure:"format" yaml:"format" validate:"oneof=wav mp3"`
	Bitrate       string                   `mapstructure:"bitrate" yaml:"bitrate"`
	ExplicitPause time.Duration            `mapstructure:"explicit_pause" yaml:"explicit_pause" validate:"gte=0"`
	EchoPauses    bool                     `mapstructure:"echo_pauses" yaml:"echo_pauses"`
	Offline       bool                     `mapstructure:"offline" yaml:"offline"`
	Pauses        map[string]time.Duration `mapstructure:"pauses" yaml:"pauses"`
}

type ValidationSettings struct {
	Strict            bool          `mapstructure:"strict" yaml:"strict"`
	Tolerance         time.Duration `mapstructure:"tolerance" yaml:"tolerance" validate:"gte=0"`
	RelativeTolerance float64       `mapstructure:"relative_tolerance" yaml:"relative_tolerance" validate:"gte=0,lt=1"`
}

type BuildSettings struct {
	MaxDay        int  `mapstructure:"max_day" yaml:"max_day" validate:"gte=0"`
	HaltOnFailure bool `mapstructure:"halt_on_failure" yaml:"halt_on_failure"`
	Pad           int  `mapstructure:"pad" yaml:"pad" validate:"gte=1,lte=9"`
	Workers       int  `mapstructure:"workers" yaml:"workers" validate:"gte=1,lte=64"`
}

type TemplateSettings struct {
	Name        string  `mapstructure:"name" yaml:"name" validate:"required"`
	Pattern     string  `mapstructure:"pattern" yaml:"pattern" validate:"required"`
	Repetitions int     `mapstructure:"repetitions" yaml:"repetitions" validate:"gte=0"`
	Source      string  `mapstructure:"source" yaml:"source" validate:"omitempty,oneof=all_due all new_only new"`
	Speed       float64 `mapstructure:"speed" yaml:"speed" validate:"gte=0"`
}

// RoleSettings adds or overrides a content token. Side is deduced from
// the token suffix when empty.
type RoleSettings struct {
	Field string        `mapstructure:"field" yaml:"field" validate:"oneof=front back secondary_front secondary_back"`
	Side  string        `mapstructure:"side" yaml:"side,omitempty" validate:"omitempty,oneof=base target"`
	Pause time.Duration `mapstructure:"pause" yaml:"pause" validate:"gte=0"`
}
