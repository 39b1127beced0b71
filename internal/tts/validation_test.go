package tts

import (
	"errors"
	"strings"
	"testing"
)

func TestParseEngine(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      EngineType
		wantErr   error
		errorText string
	}{
		{name: "gtts", input: "gtts", want: EngineGTTS},
		{name: "google alias", input: "Google", want: EngineGTTS},
		{name: "mock", input: " mock ", want: EngineMock},
		{name: "empty", input: "  ", wantErr: ErrNoEngineConfigured, errorText: "name: gtts"},
		{name: "piper", input: "piper", want: EnginePiper},
		{name: "unknown", input: "whisper", wantErr: ErrInvalidEngine, errorText: "Supported engines"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEngine(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseEngine(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.errorText) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errorText)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEngine(%q) unexpected error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseEngine(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCheckEngine(t *testing.T) {
	mock := CheckEngine(EngineMock)
	if !mock.Available || mock.Error != nil {
		t.Errorf("mock engine should always be available: %+v", mock)
	}

	bad := CheckEngine("whisper")
	if bad.Available || !errors.Is(bad.Error, ErrInvalidEngine) {
		t.Errorf("unknown engine: %+v", bad)
	}

	// gtts depends on the host; only check that a failure carries guidance.
	gtts := CheckEngine(EngineGTTS)
	if !gtts.Available && gtts.Guidance == "" {
		t.Errorf("unavailable gtts should explain how to install: %+v", gtts)
	}
}
