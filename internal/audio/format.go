package audio

import (
	"errors"
	"fmt"
	"time"
)

// Canonical PCM parameters: signed 16-bit little-endian mono.
const (
	DefaultSampleRate = 24000
	Channels          = 1
	BitDepth          = 16
)

var (
	// ErrFormatMismatch is returned when clips of different formats are joined.
	ErrFormatMismatch = errors.New("audio format mismatch")

	// ErrUnaligned is returned for PCM data that is not a whole number of samples.
	ErrUnaligned = errors.New("pcm data not aligned to sample size")
)

// Format describes raw PCM audio.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// NewFormat returns the canonical mono 16-bit format at the given rate.
func NewFormat(sampleRate int) Format {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return Format{SampleRate: sampleRate, Channels: Channels, BitDepth: BitDepth}
}

// BytesPerFrame is the size of one sample across all channels.
func (f Format) BytesPerFrame() int {
	return f.BitDepth / 8 * f.Channels
}

// BytesPerSecond is the PCM data rate.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.BytesPerFrame()
}

// Frames returns the number of whole frames needed for d, rounded to the
// nearest frame.
func (f Format) Frames(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d*time.Duration(f.SampleRate) + time.Second/2) / time.Second)
}

// Duration returns the playing time of n bytes of PCM.
func (f Format) Duration(n int) time.Duration {
	bps := f.BytesPerFrame()
	if f.SampleRate == 0 || bps == 0 {
		return 0
	}
	frames := n / bps
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Validate checks that data is a whole number of frames.
func (f Format) Validate(data []byte) error {
	if bps := f.BytesPerFrame(); bps == 0 || len(data)%bps != 0 {
		return fmt.Errorf("%w: %d bytes, %d-byte frames", ErrUnaligned, len(data), f.BytesPerFrame())
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("s%dle %dHz %dch", f.BitDepth, f.SampleRate, f.Channels)
}

// Clip is a run of PCM audio in a known format.
type Clip struct {
	Format Format
	PCM    []byte
}

// Duration of the clip, exact to the sample.
func (c Clip) Duration() time.Duration {
	return c.Format.Duration(len(c.PCM))
}

// Frames returns the number of frames in the clip.
func (c Clip) Frames() int {
	if bps := c.Format.BytesPerFrame(); bps > 0 {
		return len(c.PCM) / bps
	}
	return 0
}

// Silence returns a silent clip of duration d.
func Silence(f Format, d time.Duration) Clip {
	return Clip{Format: f, PCM: make([]byte, f.Frames(d)*f.BytesPerFrame())}
}

// Builder concatenates clips of one format.
type Builder struct {
	format Format
	buf    []byte
	frames int
}

// NewBuilder returns an empty builder for f.
func NewBuilder(f Format) *Builder {
	return &Builder{format: f}
}

// Append adds a clip to the end of the track.
func (b *Builder) Append(c Clip) error {
	if c.Format != b.format {
		return fmt.Errorf("%w: have %s, got %s", ErrFormatMismatch, b.format, c.Format)
	}
	if err := b.format.Validate(c.PCM); err != nil {
		return err
	}
	b.buf = append(b.buf, c.PCM...)
	b.frames += c.Frames()
	return nil
}

// AppendSilence adds d of silence and returns the exact duration added.
func (b *Builder) AppendSilence(d time.Duration) time.Duration {
	s := Silence(b.format, d)
	b.buf = append(b.buf, s.PCM...)
	b.frames += s.Frames()
	return s.Duration()
}

// Duration of everything appended so far.
func (b *Builder) Duration() time.Duration {
	return time.Duration(b.frames) * time.Second / time.Duration(b.format.SampleRate)
}

// Clip returns the assembled audio.
func (b *Builder) Clip() Clip {
	return Clip{Format: b.format, PCM: b.buf}
}
