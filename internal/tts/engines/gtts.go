package engines

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/tts"
)

// GTTSEngine synthesizes speech with gTTS (Google Translate TTS).
// It runs gtts-cli to produce MP3, then converts to PCM using ffmpeg.
type GTTSEngine struct {
	tempDir string
	format  audio.Format
	timeout time.Duration
	slow    bool

	gttsBin   string
	ffmpegBin string

	// Rate limiting to avoid being blocked by Google
	limiter *rate.Limiter
}

// GTTSConfig holds configuration for the gTTS engine.
type GTTSConfig struct {
	// TempDir for intermediate files - defaults to system temp
	TempDir string

	// Output PCM format
	Format audio.Format

	// Rate limit requests per minute to avoid being blocked (defaults to 50)
	RequestsPerMinute int

	// Timeout per external tool run (defaults to 30s)
	Timeout time.Duration

	// Slow speech (--slow flag)
	Slow bool

	// Binary overrides, mostly for tests.
	GTTSBinary   string
	FFmpegBinary string
}

// NewGTTSEngine creates a new gTTS engine.
func NewGTTSEngine(config GTTSConfig) (*GTTSEngine, error) {
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if err := os.MkdirAll(config.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	if config.Format.SampleRate == 0 {
		config.Format = audio.NewFormat(audio.DefaultSampleRate)
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 50
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &GTTSEngine{
		tempDir:   config.TempDir,
		format:    config.Format,
		timeout:   config.Timeout,
		slow:      config.Slow,
		gttsBin:   or(config.GTTSBinary, "gtts-cli"),
		ffmpegBin: or(config.FFmpegBinary, "ffmpeg"),
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
	}, nil
}

func (e *GTTSEngine) Name() string { return "gtts" }

// Synthesize converts text to PCM: text → gtts-cli → MP3 → ffmpeg → PCM.
// The voice, when set, is passed as the Google top-level domain that picks
// the accent (for example "co.uk").
func (e *GTTSEngine) Synthesize(ctx context.Context, text, language, voice string) ([]byte, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}

	if err := e.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, tts.NewSynthesisError(tts.ErrorCodeRateLimited, "rate limit wait", err)
	}

	mp3, err := e.synthesizeToMP3(ctx, text, language, voice)
	if err != nil {
		return nil, err
	}
	return e.convertMP3ToPCM(ctx, mp3)
}

func (e *GTTSEngine) synthesizeToMP3(ctx context.Context, text, language, voice string) ([]byte, error) {
	args := []string{text, "-l", gttsLanguage(language)}
	if voice != "" {
		args = append(args, "--tld", voice)
	}
	if e.slow {
		args = append(args, "--slow")
	}
	args = append(args, "-o", "-")

	mp3, err := audio.RunTool(ctx, e.timeout, nil, e.gttsBin, args...)
	if err != nil {
		return nil, classify("gtts-cli", err)
	}
	if len(mp3) == 0 {
		return nil, tts.NewSynthesisError(tts.ErrorCodeEngineTransient, "gtts-cli produced no MP3 output", nil)
	}

	const maxMP3Size = 50 * 1024 * 1024
	if len(mp3) > maxMP3Size {
		return nil, tts.NewSynthesisError(tts.ErrorCodeEngineFailure,
			fmt.Sprintf("gtts-cli MP3 output too large: %d bytes", len(mp3)), nil)
	}
	return mp3, nil
}

func (e *GTTSEngine) convertMP3ToPCM(ctx context.Context, mp3 []byte) ([]byte, error) {
	f, err := os.CreateTemp(e.tempDir, "gtts-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp MP3 file: %w", err)
	}
	defer os.Remove(f.Name())

	_, err = f.Write(mp3)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write MP3 data: %w", err)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", f.Name(),
		"-f", "s16le",
		"-ar", strconv.Itoa(e.format.SampleRate),
		"-ac", strconv.Itoa(e.format.Channels),
		"-",
	}
	pcm, err := audio.RunTool(ctx, e.timeout, nil, e.ffmpegBin, args...)
	if err != nil {
		return nil, classify("ffmpeg", err)
	}
	if len(pcm) == 0 {
		return nil, tts.NewSynthesisError(tts.ErrorCodeEngineFailure, "ffmpeg produced no PCM output", nil)
	}
	// keep the clip frame aligned
	pcm = pcm[:len(pcm)-len(pcm)%e.format.BytesPerFrame()]
	return pcm, nil
}

// gttsLanguage reduces a BCP 47 tag such as "en-GB" to the language code
// gtts-cli accepts. Chinese keeps its region since gTTS distinguishes them.
func gttsLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "en"
	}
	lower := strings.ToLower(tag)
	if strings.HasPrefix(lower, "zh-") {
		return "zh-" + strings.ToUpper(tag[3:])
	}
	base, _, _ := strings.Cut(tag, "-")
	base, _, _ = strings.Cut(base, "_")
	return strings.ToLower(base)
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

var _ tts.Synthesizer = (*GTTSEngine)(nil)
