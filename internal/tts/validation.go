package tts

import (
	"fmt"
	"os/exec"
	"strings"
)

// EngineType names a synthesis engine.
type EngineType string

const (
	EngineNone  EngineType = ""
	EngineGTTS  EngineType = "gtts"
	EnginePiper EngineType = "piper"
	EngineMock  EngineType = "mock"
)

// ParseEngine normalises an engine name from flags or config.
func ParseEngine(name string) (EngineType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return EngineNone, fmt.Errorf("%w\n\nSet one in the config file:\n  engine:\n    name: gtts  # or \"piper\", \"mock\"", ErrNoEngineConfigured)
	case "gtts", "google":
		return EngineGTTS, nil
	case "piper":
		return EnginePiper, nil
	case "mock", "test":
		return EngineMock, nil
	default:
		return EngineNone, fmt.Errorf("%w: %s\n\nSupported engines:\n  - gtts (Google Translate TTS, online)\n  - piper (offline, one model per language)\n  - mock (generated tones, offline)", ErrInvalidEngine, name)
	}
}

// ValidationResult contains the result of engine validation
type ValidationResult struct {
	Engine    EngineType
	Available bool
	Error     error

	// Guidance provides setup instructions if validation failed
	Guidance string

	Details map[string]string
}

// CheckEngine verifies that the external tools an engine needs are
// installed. It does not contact any service.
func CheckEngine(engine EngineType) *ValidationResult {
	result := &ValidationResult{
		Engine:  engine,
		Details: make(map[string]string),
	}

	switch engine {
	case EngineMock:
		result.Details["engine"] = "mock (generated tones)"
		result.Available = true
	case EngineGTTS:
		result.Details["engine"] = "gTTS (Google Translate TTS)"
		for _, tool := range []string{"gtts-cli", "ffmpeg"} {
			path, err := exec.LookPath(tool)
			if err != nil {
				result.Error = fmt.Errorf("%s not found in PATH: %w", tool, err)
				result.Guidance = installGuidance(tool)
				return result
			}
			result.Details[tool] = path
		}
		result.Available = true
	case EnginePiper:
		result.Details["engine"] = "Piper (offline)"
		path, err := exec.LookPath("piper")
		if err != nil {
			result.Error = fmt.Errorf("piper not found in PATH: %w", err)
			result.Guidance = installGuidance("piper")
			return result
		}
		result.Details["piper"] = path
		result.Available = true
	default:
		result.Error = fmt.Errorf("%w: %s", ErrInvalidEngine, engine)
		result.Guidance = "Supported engines: gtts, piper, mock"
	}

	return result
}

func installGuidance(tool string) string {
	switch tool {
	case "gtts-cli":
		return `gTTS is not installed. Install it with pip:

  pip install gtts      # or: pipx install gtts

gTTS needs an internet connection. No API key is required.`
	case "ffmpeg":
		return `ffmpeg converts gTTS output to PCM. Install it with your package manager:

  sudo apt install ffmpeg   # Debian/Ubuntu
  brew install ffmpeg       # macOS`
	case "piper":
		return `Piper is not installed. Download a release from
https://github.com/rhasspy/piper/releases and put the binary on PATH, then set
a model file for each language:

  voices:
    base: ~/.local/share/piper/en_GB-alan-medium.onnx
    target: ~/.local/share/piper/da_DK-talesyntese-medium.onnx`
	default:
		return ""
	}
}
