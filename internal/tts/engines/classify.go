package engines

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/tts"
)

// Text size limit shared by the engines.
const maxTextSize = 5000

func checkText(text string) error {
	if strings.TrimSpace(text) == "" {
		return tts.NewSynthesisError(tts.ErrorCodeInvalidInput, "empty text", tts.ErrEmptyText)
	}
	if len(text) > maxTextSize {
		return tts.NewSynthesisError(tts.ErrorCodeInvalidInput, "text too long", nil)
	}
	return nil
}

var transientMarkers = []string{
	"connection", "timed out", "temporarily", "network is unreachable",
	"name or service not known", "502", "503", "504",
}

// classify maps a failed external tool run onto the synthesis error codes.
// Cancellation is passed through untouched so callers stop immediately.
func classify(step string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, audio.ErrToolTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return tts.NewSynthesisError(tts.ErrorCodeEngineTimeout, step+" timed out", err)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return tts.NewSynthesisError(tts.ErrorCodeEngineUnavailable, step+" not installed", err)
	}

	var te *audio.ToolError
	if errors.As(err, &te) {
		stderr := strings.ToLower(te.Stderr)
		if strings.Contains(stderr, "429") || strings.Contains(stderr, "too many requests") {
			return tts.NewSynthesisError(tts.ErrorCodeRateLimited, step+" rate limited", err)
		}
		for _, m := range transientMarkers {
			if strings.Contains(stderr, m) {
				return tts.NewSynthesisError(tts.ErrorCodeEngineTransient, step+" failed", err)
			}
		}
	}
	return tts.NewSynthesisError(tts.ErrorCodeEngineFailure, step+" failed", err)
}
