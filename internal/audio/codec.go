package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownFormat is returned for an unsupported output format name.
var ErrUnknownFormat = errors.New("unknown audio output format")

// Codec turns finished clips into file contents and measures files again.
type Codec interface {
	// Ext is the file extension without the dot.
	Ext() string

	// Encode returns the file contents for c.
	Encode(ctx context.Context, c Clip) ([]byte, error)

	// Measure returns the playing time of encoded data.
	Measure(ctx context.Context, data []byte) (time.Duration, error)
}

// CodecOptions configures NewCodec.
type CodecOptions struct {
	Format  string // wav or mp3
	Offline bool   // write zero-byte placeholders
	Bitrate string // mp3 only
	Timeout time.Duration
}

// NewCodec returns the codec for the named output format.
func NewCodec(opts CodecOptions) (Codec, error) {
	name := strings.ToLower(strings.TrimSpace(opts.Format))
	if name == "" {
		name = "wav"
	}
	if name != "wav" && name != "mp3" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
	if opts.Offline {
		return OfflineCodec{Extension: name}, nil
	}
	if name == "mp3" {
		return &FFmpegCodec{Bitrate: opts.Bitrate, Timeout: opts.Timeout}, nil
	}
	return WAVCodec{}, nil
}

// OfflineCodec writes empty files. It pairs with offline validation, which
// accepts zero-byte tracks, for dry runs without audio tooling.
type OfflineCodec struct {
	Extension string
}

func (c OfflineCodec) Ext() string { return c.Extension }

func (OfflineCodec) Encode(context.Context, Clip) ([]byte, error) { return []byte{}, nil }

func (OfflineCodec) Measure(context.Context, []byte) (time.Duration, error) { return 0, nil }
