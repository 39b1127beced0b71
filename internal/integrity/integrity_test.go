package integrity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/daydrill/internal/audio"
)

func TestAllowed(t *testing.T) {
	p := Policy{Absolute: 150 * time.Millisecond, Relative: 0.01}
	tests := []struct {
		expected time.Duration
		want     time.Duration
	}{
		{0, 150 * time.Millisecond},
		{time.Second, 150 * time.Millisecond},
		{time.Minute, 600 * time.Millisecond},
		{10 * time.Minute, 6 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Allowed(tt.expected); got != tt.want {
			t.Errorf("Allowed(%s) = %s, want %s", tt.expected, got, tt.want)
		}
	}
}

func writeTrack(t *testing.T, d time.Duration) string {
	t.Helper()
	f := audio.NewFormat(8000)
	data, err := audio.WAVCodec{}.Encode(context.Background(), audio.Silence(f, d))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "track.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	v := New(audio.WAVCodec{}, DefaultPolicy())

	path := writeTrack(t, 10*time.Second)

	tests := []struct {
		name     string
		expected time.Duration
		valid    bool
	}{
		{"exact", 10 * time.Second, true},
		{"within tolerance", 10*time.Second + 100*time.Millisecond, true},
		{"too long", 9 * time.Second, false},
		{"too short", 11 * time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := v.Check(ctx, path, tt.expected)
			if err != nil {
				t.Fatal(err)
			}
			if r.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v (%s)", r.Valid, tt.valid, r.Message)
			}
			if r.Actual != 10*time.Second {
				t.Errorf("Actual = %s", r.Actual)
			}
			var mismatch *DurationMismatch
			if got := errors.As(r.Err(), &mismatch); got == tt.valid {
				t.Errorf("Err() = %v", r.Err())
			}
		})
	}
}

func TestCheckMissingAndEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.wav")
	empty := filepath.Join(dir, "empty.wav")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		offline bool
		valid   bool
	}{
		{"missing online", missing, false, false},
		{"missing offline", missing, true, true},
		{"empty online", empty, false, false},
		{"empty offline", empty, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			p.Offline = tt.offline
			r, err := New(audio.WAVCodec{}, p).Check(ctx, tt.path, time.Second)
			if err != nil {
				t.Fatal(err)
			}
			if r.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v", r.Valid, tt.valid)
			}
		})
	}
}

func TestCheckUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(audio.WAVCodec{}, DefaultPolicy()).Check(context.Background(), path, time.Second); err == nil {
		t.Fatal("expected measure error")
	}
}
