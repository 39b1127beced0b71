package engines

import (
	"fmt"
	"time"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/tts"
)

// Options selects and configures an engine.
type Options struct {
	Engine            tts.EngineType
	Format            audio.Format
	RequestsPerMinute int
	Timeout           time.Duration
	TempDir           string
	Slow              bool
	PiperBinary       string
	PiperSampleRate   int
}

// New returns the engine named in opts.
func New(opts Options) (tts.Synthesizer, error) {
	switch opts.Engine {
	case tts.EngineGTTS:
		return NewGTTSEngine(GTTSConfig{
			TempDir:           opts.TempDir,
			Format:            opts.Format,
			RequestsPerMinute: opts.RequestsPerMinute,
			Timeout:           opts.Timeout,
			Slow:              opts.Slow,
		})
	case tts.EnginePiper:
		return NewPiperEngine(PiperConfig{
			Binary:          opts.PiperBinary,
			ModelSampleRate: opts.PiperSampleRate,
			Format:          opts.Format,
			Timeout:         opts.Timeout,
		}), nil
	case tts.EngineMock:
		return NewMockEngine(opts.Format), nil
	default:
		return nil, fmt.Errorf("%w: %q", tts.ErrInvalidEngine, opts.Engine)
	}
}
