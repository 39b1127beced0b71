package engines

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/tts"
)

// MockEngine produces deterministic tones instead of speech. The same
// input always yields the same PCM, and the length grows with the text,
// which is all a build needs for dry runs and tests.
type MockEngine struct {
	format  audio.Format
	perRune time.Duration
	delay   time.Duration

	calls atomic.Int64

	mu       sync.Mutex
	failures map[string]error
}

// NewMockEngine creates a mock engine writing the given format.
func NewMockEngine(format audio.Format) *MockEngine {
	if format.SampleRate == 0 {
		format = audio.NewFormat(audio.DefaultSampleRate)
	}
	return &MockEngine{
		format:   format,
		perRune:  40 * time.Millisecond,
		failures: make(map[string]error),
	}
}

func (e *MockEngine) Name() string { return "mock" }

// Synthesize returns a sine tone whose pitch depends on the input.
func (e *MockEngine) Synthesize(ctx context.Context, text, language, voice string) ([]byte, error) {
	e.calls.Add(1)

	if err := checkText(text); err != nil {
		return nil, err
	}

	e.mu.Lock()
	err := e.failures[text]
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := fnv.New32a()
	h.Write([]byte(language + "\x00" + voice + "\x00" + text))
	freq := 220 + float64(h.Sum32()%440)

	d := 200*time.Millisecond + time.Duration(utf8.RuneCountInString(text))*e.perRune
	frames := e.format.Frames(d)
	pcm := make([]byte, frames*e.format.BytesPerFrame())
	for i := 0; i < frames; i++ {
		v := 0.3 * math.Sin(2*math.Pi*freq*float64(i)/float64(e.format.SampleRate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*math.MaxInt16)))
	}
	return pcm, nil
}

// Test control methods

// Calls returns the number of Synthesize calls so far.
func (e *MockEngine) Calls() int64 { return e.calls.Load() }

// SetDelay sets a simulated processing delay.
func (e *MockEngine) SetDelay(d time.Duration) { e.delay = d }

// FailOn makes synthesis of text fail with err. A nil err clears it.
func (e *MockEngine) FailOn(text string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failures, text)
		return
	}
	e.failures[text] = err
}

var _ tts.Synthesizer = (*MockEngine)(nil)
