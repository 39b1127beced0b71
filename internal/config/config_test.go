package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/daydrill/internal/compiler"
	"github.com/dgnsrekt/daydrill/internal/schedule"
	"github.com/dgnsrekt/daydrill/internal/study"
	"github.com/dgnsrekt/daydrill/internal/tts"
)

func loadYAML(t *testing.T, doc string) (Settings, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return Load(v)
}

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, "sentence_pairs.csv", s.Source)
	assert.Equal(t, "gtts", s.Engine.Name)
	assert.Equal(t, 30*time.Second, s.Engine.Timeout)
	assert.Equal(t, 3*time.Second, s.Audio.ExplicitPause)
	assert.Equal(t, 250*time.Millisecond, s.Audio.Pauses["W1"])
	assert.Equal(t, 500*time.Millisecond, s.Audio.Pauses["L2"])
	assert.True(t, s.Build.HaltOnFailure)
	assert.False(t, s.Validation.Strict)
	assert.Equal(t, []int{0, 3, 7, 14, 28}, s.Schedule.MicroIntervals)
	require.Len(t, s.Templates, 3)
	assert.Equal(t, "workout", s.Templates[0].Name)
	assert.Equal(t, int64(256<<20), s.MemoryBytes())
}

func TestLoadOverrides(t *testing.T) {
	s, err := loadYAML(t, `
engine:
  name: mock
audio:
  pauses:
    w1: 1s
validation:
  strict: true
templates:
  - name: quick
    pattern: "W2 W1"
    repetitions: 2
    source: new_only
    speed: 1.5
`)
	require.NoError(t, err)
	assert.Equal(t, "mock", s.Engine.Name)
	assert.Equal(t, time.Second, s.Audio.Pauses["W1"])
	assert.True(t, s.Validation.Strict)

	roles, err := s.CompiledRoles()
	require.NoError(t, err)
	assert.Equal(t, time.Second, roles["W1"].Pause)

	tpls, err := s.CompiledTemplates(roles)
	require.NoError(t, err)
	require.Len(t, tpls, 1)
	assert.Equal(t, schedule.SourceNewOnly, tpls[0].Source)
	assert.Equal(t, 1.5, tpls[0].Speed)

	engine, err := s.EngineType()
	require.NoError(t, err)
	assert.Equal(t, tts.EngineMock, engine)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad format", "audio:\n  format: ogg\n"},
		{"no templates", "templates: []\n"},
		{"zero macro interval", "schedule:\n  macro_intervals: [0, 3]\n"},
		{"negative micro interval", "schedule:\n  micro_intervals: [-1]\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"zero workers", "build:\n  workers: 0\n"},
		{"duplicate template", "templates:\n  - {name: a, pattern: W2}\n  - {name: a, pattern: W1}\n"},
		{"bad role field", "roles:\n  X1: {field: tertiary}\n"},
		{"retry interval order", "retry:\n  initial_interval: 5s\n  max_interval: 1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadYAML(t, tt.doc)
			assert.Error(t, err)
		})
	}
}

func TestRoles(t *testing.T) {
	s, err := loadYAML(t, `
roles:
  s2:
    field: secondary_front
    pause: 2s
  x1:
    field: front
    side: target
`)
	require.NoError(t, err)

	roles, err := s.CompiledRoles()
	require.NoError(t, err)

	assert.Equal(t, compiler.Role{Field: study.FieldSecondaryFront, Side: compiler.SideTarget, Pause: 2 * time.Second}, roles["S2"])
	assert.Equal(t, compiler.SideTarget, roles["X1"].Side)
	assert.Contains(t, roles, "W1")

	tokens, err := compiler.ParsePattern("SP S2 X1 W2", roles)
	require.NoError(t, err)
	assert.Len(t, tokens, 4)
}

func TestRolesReservedToken(t *testing.T) {
	s := Default()
	s.Roles = map[string]RoleSettings{"SP": {Field: "front"}}
	_, err := s.CompiledRoles()
	assert.Error(t, err)
}

func TestExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	s, err := loadYAML(t, "source: ~/words.csv\ncache:\n  dir: ~/cache\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "words.csv"), s.Source)
	assert.Equal(t, filepath.Join(home, "cache"), s.Cache.Dir)
}

func TestConversions(t *testing.T) {
	s := Default()
	s.Audio.Offline = true

	assert.Equal(t, 24000, s.Format().SampleRate)
	assert.True(t, s.ValidationPolicy().Offline)
	assert.Equal(t, 150*time.Millisecond, s.ValidationPolicy().Absolute)
	assert.True(t, s.CodecOptions().Offline)
	assert.Equal(t, 4, s.RetryPolicy().MaxAttempts)

	cfg := s.ScheduleConfig()
	_, err := schedule.New(cfg)
	require.NoError(t, err)

	opts, err := s.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, tts.EngineGTTS, opts.Engine)
	assert.Equal(t, 50, opts.RequestsPerMinute)

	copts := s.CompilerOptions(compiler.DefaultRoles())
	assert.Equal(t, "da", copts.Target.Language)
	assert.Equal(t, "en-GB", copts.Base.Language)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daydrill.yml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: days\nbuild:\n  max_day: 12\n"), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "days", s.OutputDir)
	assert.Equal(t, 12, s.Build.MaxDay)
	assert.Equal(t, 3, s.Build.Pad)
}
