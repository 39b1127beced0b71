package engines

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/tts"
)

var errNoModel = errors.New("no piper model configured")

// PiperEngine implements offline synthesis with Piper.
// The voice selects the model file, so each language side of a drill can
// use its own model. Piper writes raw PCM at the model's rate; the engine
// resamples it to the configured format.
type PiperEngine struct {
	binary     string
	modelRate  int
	format     audio.Format
	timeout    time.Duration
	modelCheck func(string) error
}

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	// Binary path (optional, defaults to "piper")
	Binary string

	// Sample rate of the voice models (optional, defaults to 22050)
	ModelSampleRate int

	// Output PCM format
	Format audio.Format

	// Timeout per synthesis (defaults to 30s)
	Timeout time.Duration
}

// NewPiperEngine creates a new Piper engine.
func NewPiperEngine(config PiperConfig) *PiperEngine {
	if config.ModelSampleRate == 0 {
		config.ModelSampleRate = 22050
	}
	if config.Format.SampleRate == 0 {
		config.Format = audio.NewFormat(audio.DefaultSampleRate)
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &PiperEngine{
		binary:    or(config.Binary, "piper"),
		modelRate: config.ModelSampleRate,
		format:    config.Format,
		timeout:   config.Timeout,
		modelCheck: func(path string) error {
			_, err := os.Stat(path)
			return err
		},
	}
}

func (e *PiperEngine) Name() string { return "piper" }

// Synthesize feeds text to piper on stdin and reads raw PCM from stdout.
// The language is implied by the model and is only used in errors.
func (e *PiperEngine) Synthesize(ctx context.Context, text, language, voice string) ([]byte, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	if voice == "" {
		return nil, tts.NewSynthesisError(tts.ErrorCodeEngineUnavailable,
			fmt.Sprintf("set a model path as the %s voice", language), errNoModel)
	}
	if err := e.modelCheck(voice); err != nil {
		return nil, tts.NewSynthesisError(tts.ErrorCodeEngineUnavailable, "model file not accessible", err)
	}

	args := []string{"--model", voice, "--output-raw"}
	raw, err := audio.RunTool(ctx, e.timeout, []byte(strings.TrimSpace(text)), e.binary, args...)
	if err != nil {
		return nil, classify("piper", err)
	}
	if len(raw) == 0 {
		return nil, tts.NewSynthesisError(tts.ErrorCodeEngineFailure, "piper produced no audio output", nil)
	}
	raw = raw[:len(raw)-len(raw)%2]

	return audio.Resample(raw, audio.NewFormat(e.modelRate), e.format)
}

var _ tts.Synthesizer = (*PiperEngine)(nil)
