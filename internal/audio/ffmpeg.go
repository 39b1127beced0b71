package audio

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FFmpegCodec encodes mp3 with ffmpeg and measures files with ffprobe.
type FFmpegCodec struct {
	FFmpeg  string // defaults to "ffmpeg"
	FFprobe string // defaults to "ffprobe"
	Bitrate string // defaults to "64k"
	Timeout time.Duration
}

func (c *FFmpegCodec) Ext() string { return "mp3" }

func (c *FFmpegCodec) Encode(ctx context.Context, clip Clip) ([]byte, error) {
	f := clip.Format
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", fmt.Sprintf("s%dle", f.BitDepth),
		"-ar", strconv.Itoa(f.SampleRate),
		"-ac", strconv.Itoa(f.Channels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", or(c.Bitrate, "64k"),
		"-f", "mp3",
		"pipe:1",
	}
	out, err := RunTool(ctx, c.timeout(), clip.PCM, or(c.FFmpeg, "ffmpeg"), args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("ffmpeg produced no output")
	}
	return out, nil
}

func (c *FFmpegCodec) Measure(ctx context.Context, data []byte) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"-i", "pipe:0",
	}
	out, err := RunTool(ctx, c.timeout(), data, or(c.FFprobe, "ffprobe"), args...)
	if err != nil {
		return 0, err
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (c *FFmpegCodec) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return time.Minute
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
