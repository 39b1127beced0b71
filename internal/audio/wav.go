package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWAV is returned when data is not a PCM WAV file.
var ErrInvalidWAV = errors.New("invalid wav data")

const wavHeaderSize = 44

// WAVCodec encodes clips as RIFF/WAVE PCM in process.
type WAVCodec struct{}

func (WAVCodec) Ext() string { return "wav" }

// Encode writes a canonical 44-byte header followed by the PCM data.
func (WAVCodec) Encode(_ context.Context, c Clip) ([]byte, error) {
	if err := c.Format.Validate(c.PCM); err != nil {
		return nil, err
	}
	f := c.Format
	out := make([]byte, wavHeaderSize, wavHeaderSize+len(c.PCM))
	le := binary.LittleEndian

	copy(out[0:], "RIFF")
	le.PutUint32(out[4:], uint32(36+len(c.PCM)))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	le.PutUint32(out[16:], 16)
	le.PutUint16(out[20:], 1) // PCM
	le.PutUint16(out[22:], uint16(f.Channels))
	le.PutUint32(out[24:], uint32(f.SampleRate))
	le.PutUint32(out[28:], uint32(f.BytesPerSecond()))
	le.PutUint16(out[32:], uint16(f.BytesPerFrame()))
	le.PutUint16(out[34:], uint16(f.BitDepth))
	copy(out[36:], "data")
	le.PutUint32(out[40:], uint32(len(c.PCM)))

	return append(out, c.PCM...), nil
}

// Measure reads the format and data chunks and returns the data duration.
func (WAVCodec) Measure(_ context.Context, data []byte) (time.Duration, error) {
	c, err := DecodeWAV(data)
	if err != nil {
		return 0, err
	}
	return c.Duration(), nil
}

// DecodeWAV parses a PCM WAV file, skipping unknown chunks.
func DecodeWAV(data []byte) (Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Clip{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}
	le := binary.LittleEndian

	var (
		f       Format
		haveFmt bool
	)
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(le.Uint32(data[off+4:]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			return Clip{}, fmt.Errorf("%w: chunk %q overruns file", ErrInvalidWAV, id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Clip{}, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			if le.Uint16(data[body:]) != 1 {
				return Clip{}, fmt.Errorf("%w: not PCM", ErrInvalidWAV)
			}
			f = Format{
				Channels:   int(le.Uint16(data[body+2:])),
				SampleRate: int(le.Uint32(data[body+4:])),
				BitDepth:   int(le.Uint16(data[body+14:])),
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return Clip{}, fmt.Errorf("%w: data before fmt", ErrInvalidWAV)
			}
			return Clip{Format: f, PCM: data[body : body+size]}, nil
		}

		off = body + size + size%2
	}
	return Clip{}, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
}
