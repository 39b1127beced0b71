package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Speed limits accepted by the renderers.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// ErrSpeedOutOfRange is returned for speeds outside [MinSpeed, MaxSpeed].
var ErrSpeedOutOfRange = errors.New("speed must be between 0.5 and 2.0")

// ValidateSpeed checks a playback speed multiplier.
func ValidateSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: %.2f", ErrSpeedOutOfRange, speed)
	}
	return nil
}

// SpeedRenderer changes the playing speed of canonical PCM by linear
// interpolation resampling. Pitch moves with speed.
type SpeedRenderer struct {
	Format Format
}

// Render returns raw played back at speed. A speed of 1 returns raw unchanged.
func (r SpeedRenderer) Render(raw []byte, speed float64) ([]byte, error) {
	if err := ValidateSpeed(speed); err != nil {
		return nil, err
	}
	if speed == 1 || len(raw) == 0 {
		if err := r.Format.Validate(raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
	return r.interpolate(raw, speed)
}

// interpolate reads raw at step input frames per output frame.
func (r SpeedRenderer) interpolate(raw []byte, step float64) ([]byte, error) {
	if r.Format.BitDepth != 16 || r.Format.Channels != 1 {
		return nil, fmt.Errorf("resampling supports 16-bit mono only, got %s", r.Format)
	}
	if err := r.Format.Validate(raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return raw, nil
	}

	in := make([]int16, len(raw)/2)
	for i := range in {
		in[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}

	n := int(float64(len(in)) / step)
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)

		var v float64
		if idx >= len(in)-1 {
			v = float64(in[len(in)-1])
		} else {
			v = float64(in[idx])*(1-frac) + float64(in[idx+1])*frac
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out, nil
}

// Resample converts 16-bit mono PCM between sample rates with linear
// interpolation.
func Resample(pcm []byte, from, to Format) ([]byte, error) {
	if from.Channels != to.Channels || from.BitDepth != to.BitDepth {
		return nil, fmt.Errorf("resample %s to %s: only the sample rate may change", from, to)
	}
	if from.SampleRate == to.SampleRate {
		return pcm, nil
	}
	if from.SampleRate <= 0 || to.SampleRate <= 0 {
		return nil, errors.New("resample: sample rate must be positive")
	}
	step := float64(from.SampleRate) / float64(to.SampleRate)
	return SpeedRenderer{Format: from}.interpolate(pcm, step)
}
