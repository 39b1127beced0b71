package tts

import "context"

// Synthesizer converts text to speech.
// Implementations return canonical PCM: signed 16-bit little-endian mono at
// the sample rate they were configured with. Failures should be
// *SynthesisError values so callers can tell transient from permanent.
type Synthesizer interface {
	// Synthesize renders text in the given language and voice. An empty
	// voice selects the engine default.
	Synthesize(ctx context.Context, text, language, voice string) ([]byte, error)

	// Name identifies the engine in logs.
	Name() string
}

// Renderer re-renders canonical PCM at a playback speed multiplier.
type Renderer interface {
	Render(raw []byte, speed float64) ([]byte, error)
}

// SynthesizerFunc adapts a function to the Synthesizer interface.
type SynthesizerFunc func(ctx context.Context, text, language, voice string) ([]byte, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, text, language, voice string) ([]byte, error) {
	return f(ctx, text, language, voice)
}

func (f SynthesizerFunc) Name() string { return "func" }
