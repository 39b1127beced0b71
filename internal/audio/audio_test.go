package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func TestFormat_Duration(t *testing.T) {
	f := NewFormat(24000)

	tests := []struct {
		name string
		d    time.Duration
		want int
	}{
		{"zero", 0, 0},
		{"one second", time.Second, 24000},
		{"250ms", 250 * time.Millisecond, 6000},
		{"rounds to nearest frame", time.Second/24000 + 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Frames(tt.d); got != tt.want {
				t.Errorf("Frames(%v) = %d, want %d", tt.d, got, tt.want)
			}
		})
	}

	if got := f.Duration(48000); got != time.Second {
		t.Errorf("Duration(48000) = %v, want 1s", got)
	}
}

func TestFormat_Validate(t *testing.T) {
	f := NewFormat(16000)
	if err := f.Validate(make([]byte, 10)); err != nil {
		t.Errorf("aligned data: %v", err)
	}
	if err := f.Validate(make([]byte, 11)); !errors.Is(err, ErrUnaligned) {
		t.Errorf("unaligned data: got %v", err)
	}
}

func TestBuilder(t *testing.T) {
	f := NewFormat(8000)
	b := NewBuilder(f)

	if err := b.Append(Silence(f, 500*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	added := b.AppendSilence(250 * time.Millisecond)
	if added != 250*time.Millisecond {
		t.Errorf("AppendSilence returned %v", added)
	}
	if got := b.Duration(); got != 750*time.Millisecond {
		t.Errorf("Duration = %v, want 750ms", got)
	}
	if got := b.Clip().Duration(); got != 750*time.Millisecond {
		t.Errorf("clip duration = %v, want 750ms", got)
	}

	err := b.Append(Silence(NewFormat(16000), time.Second))
	if !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("mismatched format: got %v", err)
	}
}

func ramp(n int) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(i)))
	}
	return out
}

func TestSpeedRenderer(t *testing.T) {
	r := SpeedRenderer{Format: NewFormat(8000)}
	raw := ramp(8000)

	same, err := r.Render(raw, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(same) != len(raw) {
		t.Errorf("speed 1 changed length: %d", len(same))
	}

	fast, err := r.Render(raw, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(fast) != len(raw)/2 {
		t.Errorf("speed 2 length = %d, want %d", len(fast), len(raw)/2)
	}
	if v := int16(binary.LittleEndian.Uint16(fast[2:])); v != 2 {
		t.Errorf("second sample = %d, want 2", v)
	}

	slow, err := r.Render(raw, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(slow) != len(raw)*2 {
		t.Errorf("speed 0.5 length = %d, want %d", len(slow), len(raw)*2)
	}

	for _, bad := range []float64{0.25, 3} {
		if _, err := r.Render(raw, bad); !errors.Is(err, ErrSpeedOutOfRange) {
			t.Errorf("speed %v: got %v", bad, err)
		}
	}
}

func TestWAVCodec_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := NewFormat(24000)
	clip := Clip{Format: f, PCM: ramp(12000)}

	var codec WAVCodec
	data, err := codec.Encode(ctx, clip)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != wavHeaderSize+len(clip.PCM) {
		t.Errorf("encoded size = %d", len(data))
	}

	d, err := codec.Measure(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	if d != 500*time.Millisecond {
		t.Errorf("Measure = %v, want 500ms", d)
	}

	decoded, err := DecodeWAV(data)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Format != f {
		t.Errorf("decoded format = %v, want %v", decoded.Format, f)
	}
}

func TestDecodeWAV_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("RIFX0000WAVEfmt ")},
		{"no data chunk", append([]byte("RIFF\x04\x00\x00\x00WAVE"), []byte("junk\x00\x00\x00\x00")...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeWAV(tt.data); !errors.Is(err, ErrInvalidWAV) {
				t.Errorf("got %v, want ErrInvalidWAV", err)
			}
		})
	}

	good, _ := WAVCodec{}.Encode(context.Background(), Silence(NewFormat(8000), time.Second))
	if _, err := DecodeWAV(good[:60]); !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("truncated data: got %v", err)
	}
}

func TestNewCodec(t *testing.T) {
	tests := []struct {
		opts    CodecOptions
		wantExt string
		wantErr bool
	}{
		{CodecOptions{}, "wav", false},
		{CodecOptions{Format: "WAV"}, "wav", false},
		{CodecOptions{Format: "mp3"}, "mp3", false},
		{CodecOptions{Format: "mp3", Offline: true}, "mp3", false},
		{CodecOptions{Format: "ogg"}, "", true},
	}
	for _, tt := range tests {
		c, err := NewCodec(tt.opts)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("%+v: got %v", tt.opts, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%+v: %v", tt.opts, err)
		}
		if c.Ext() != tt.wantExt {
			t.Errorf("%+v: ext %q, want %q", tt.opts, c.Ext(), tt.wantExt)
		}
	}

	off, _ := NewCodec(CodecOptions{Offline: true})
	data, err := off.Encode(context.Background(), Silence(NewFormat(8000), time.Second))
	if err != nil || len(data) != 0 {
		t.Errorf("offline encode = %d bytes, %v", len(data), err)
	}
}

func TestRunTool_Missing(t *testing.T) {
	_, err := RunTool(context.Background(), time.Second, nil, "daydrill-no-such-tool")
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("got %v, want *ToolError", err)
	}
	if te.Tool != "daydrill-no-such-tool" {
		t.Errorf("tool = %q", te.Tool)
	}
}

func TestResample(t *testing.T) {
	raw := ramp(22050)
	out, err := Resample(raw, NewFormat(22050), NewFormat(24000))
	if err != nil {
		t.Fatal(err)
	}
	if got := NewFormat(24000).Duration(len(out)); got < 999*time.Millisecond || got > time.Second {
		t.Errorf("resampled duration = %v, want ~1s", got)
	}

	same, _ := Resample(raw, NewFormat(22050), NewFormat(22050))
	if len(same) != len(raw) {
		t.Error("same rate should return input")
	}

	stereo := Format{SampleRate: 22050, Channels: 2, BitDepth: 16}
	if _, err := Resample(raw, NewFormat(22050), stereo); err == nil {
		t.Error("channel change should fail")
	}
}
