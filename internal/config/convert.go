package config

import (
	"fmt"
	"slices"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/compiler"
	"github.com/dgnsrekt/daydrill/internal/integrity"
	"github.com/dgnsrekt/daydrill/internal/schedule"
	"github.com/dgnsrekt/daydrill/internal/study"
	"github.com/dgnsrekt/daydrill/internal/tts"
	"github.com/dgnsrekt/daydrill/internal/tts/engines"
)

// Format is the canonical PCM format.
func (s Settings) Format() audio.Format {
	return audio.NewFormat(s.Audio.SampleRate)
}

func (s Settings) ScheduleConfig() schedule.Config {
	return schedule.Config{
		MacroIntervals: slices.Clone(s.Schedule.MacroIntervals),
		MicroIntervals: slices.Clone(s.Schedule.MicroIntervals),
		ReviewRatio:    s.Schedule.ReviewRatio,
		Seed:           s.Schedule.Seed,
	}
}

// CompiledRoles returns the default role table extended by the configured roles,
// with the configured pauses applied.
func (s Settings) CompiledRoles() (compiler.Roles, error) {
	roles := compiler.DefaultRoles()
	for token, rs := range s.Roles {
		if token == compiler.PauseToken {
			return nil, fmt.Errorf("role %q is reserved for explicit pauses", token)
		}
		field, err := study.ParseField(rs.Field)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", token, err)
		}
		side := compiler.SideOf(token)
		if rs.Side != "" {
			if side, err = compiler.ParseSide(rs.Side); err != nil {
				return nil, fmt.Errorf("role %s: %w", token, err)
			}
		}
		roles[token] = compiler.Role{Field: field, Side: side, Pause: rs.Pause}
	}
	return roles.WithPauses(s.Audio.Pauses)
}

// CompiledTemplates parses every configured template against roles.
func (s Settings) CompiledTemplates(roles compiler.Roles) ([]compiler.Template, error) {
	out := make([]compiler.Template, 0, len(s.Templates))
	for _, ts := range s.Templates {
		source, err := schedule.ParseSource(ts.Source)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", ts.Name, err)
		}
		tpl, err := compiler.NewTemplate(ts.Name, ts.Pattern, ts.Repetitions, source, ts.Speed, roles)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, nil
}

// CompilerOptions returns the compiler settings without a resolver.
func (s Settings) CompilerOptions(roles compiler.Roles) compiler.Options {
	return compiler.Options{
		Roles:         roles,
		Base:          compiler.Voice{Language: s.Languages.Base, Voice: s.Voices.Base},
		Target:        compiler.Voice{Language: s.Languages.Target, Voice: s.Voices.Target},
		Format:        s.Format(),
		ExplicitPause: s.Audio.ExplicitPause,
		EchoPauses:    s.Audio.EchoPauses,
	}
}

func (s Settings) EngineType() (tts.EngineType, error) {
	return tts.ParseEngine(s.Engine.Name)
}

func (s Settings) EngineOptions() (engines.Options, error) {
	engine, err := s.EngineType()
	if err != nil {
		return engines.Options{}, err
	}
	return engines.Options{
		Engine:            engine,
		Format:            s.Format(),
		RequestsPerMinute: s.Engine.RequestsPerMinute,
		Timeout:           s.Engine.Timeout,
		TempDir:           s.Engine.TempDir,
		Slow:              s.Engine.Slow,
		PiperBinary:       s.Engine.Piper.Binary,
		PiperSampleRate:   s.Engine.Piper.SampleRate,
	}, nil
}

func (s Settings) RetryPolicy() tts.RetryPolicy {
	return tts.RetryPolicy{
		MaxAttempts:     s.Retry.MaxAttempts,
		InitialInterval: s.Retry.InitialInterval,
		MaxInterval:     s.Retry.MaxInterval,
	}
}

func (s Settings) CodecOptions() audio.CodecOptions {
	return audio.CodecOptions{
		Format:  s.Audio.Format,
		Offline: s.Audio.Offline,
		Bitrate: s.Audio.Bitrate,
		Timeout: s.Engine.Timeout,
	}
}

// ValidationPolicy accepts empty tracks only when the build writes
// offline placeholders.
func (s Settings) ValidationPolicy() integrity.Policy {
	return integrity.Policy{
		Absolute: s.Validation.Tolerance,
		Relative: s.Validation.RelativeTolerance,
		Offline:  s.Audio.Offline,
	}
}

// MemoryBytes is the in-memory cache capacity.
func (s Settings) MemoryBytes() int64 {
	return int64(s.Cache.MemoryMB) << 20
}
