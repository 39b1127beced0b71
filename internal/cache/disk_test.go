package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestDisk(t *testing.T) *DiskCache {
	t.Helper()
	dc, err := NewDiskCache(t.TempDir(), 3)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	t.Cleanup(func() { dc.Close() })
	return dc
}

func TestDiskCache_PutGet(t *testing.T) {
	dc := newTestDisk(t)
	digest := Key{Text: "hund", Language: "da"}.Digest()
	value := bytes.Repeat([]byte{0, 1, 2, 3}, 4096)

	if _, err := dc.Get(TierRaw, digest); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("empty cache: got %v, want ErrCacheMiss", err)
	}

	if err := dc.Put(TierRaw, digest, value); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := dc.Get(TierRaw, digest)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Error("value changed in round trip")
	}

	path := dc.Path(TierRaw, digest)
	want := filepath.Join(dc.Dir(), "raw", digest[:2], digest+".zst")
	if path != want {
		t.Errorf("Path = %s, want %s", path, want)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() >= int64(len(value)) {
		t.Errorf("entry not compressed: %d bytes", info.Size())
	}

	if _, err := dc.Get(TierRendered, digest); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("tiers should be separate, got %v", err)
	}
}

func TestDiskCache_Corruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(path string) error
	}{
		{"empty file", func(p string) error { return os.WriteFile(p, nil, 0o644) }},
		{"garbage", func(p string) error { return os.WriteFile(p, []byte("not zstd at all"), 0o644) }},
		{"truncated", func(p string) error {
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			return os.WriteFile(p, data[:len(data)/2], 0o644)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc := newTestDisk(t)
			digest := Key{Text: tt.name}.Digest()
			if err := dc.Put(TierRaw, digest, bytes.Repeat([]byte("pcm!"), 2048)); err != nil {
				t.Fatal(err)
			}
			if err := tt.corrupt(dc.Path(TierRaw, digest)); err != nil {
				t.Fatal(err)
			}

			if _, err := dc.Get(TierRaw, digest); !errors.Is(err, ErrCacheCorrupted) {
				t.Fatalf("got %v, want ErrCacheCorrupted", err)
			}
			if dc.Contains(TierRaw, digest) {
				t.Error("corrupt entry should be removed")
			}
		})
	}
}

func TestDiskCache_DeleteClearUsage(t *testing.T) {
	dc := newTestDisk(t)
	for i, text := range []string{"a", "b", "c"} {
		tier := TierRaw
		if i == 2 {
			tier = TierRendered
		}
		if err := dc.Put(tier, Key{Text: text}.Digest(), []byte(text)); err != nil {
			t.Fatal(err)
		}
	}

	u, err := dc.Usage()
	if err != nil {
		t.Fatal(err)
	}
	if u.Files[TierRaw] != 2 || u.Files[TierRendered] != 1 {
		t.Errorf("usage files = %v", u.Files)
	}
	if u.Bytes[TierRaw] == 0 {
		t.Error("usage bytes should be counted")
	}

	if err := dc.Delete(TierRaw, Key{Text: "a"}.Digest()); err != nil {
		t.Fatal(err)
	}
	if err := dc.Delete(TierRaw, Key{Text: "missing"}.Digest()); err != nil {
		t.Errorf("deleting a missing entry: %v", err)
	}

	if err := dc.Clear(); err != nil {
		t.Fatal(err)
	}
	u, _ = dc.Usage()
	if u.Files[TierRaw]+u.Files[TierRendered] != 0 {
		t.Errorf("files after Clear = %v", u.Files)
	}
}

func TestKey_Digest(t *testing.T) {
	base := Key{Text: "caf\u00e9", Language: "fr", Voice: "", Speed: 1}

	// NFD spelling of the same text
	decomposed := base
	decomposed.Text = "cafe\u0301"
	if base.Digest() != decomposed.Digest() {
		t.Error("normalised text should give the same digest")
	}

	zero := base
	zero.Speed = 0
	if zero.Digest() != base.Digest() || zero.Tier() != TierRaw {
		t.Error("unset speed should mean normal speed")
	}

	fast := base
	fast.Speed = 1.25
	if fast.Digest() == base.Digest() {
		t.Error("speed should change the rendered digest")
	}
	if fast.Tier() != TierRendered || fast.Raw().Digest() != base.Digest() {
		t.Error("Raw() should map back to the raw key")
	}

	almost := fast
	almost.Speed = 1.2501
	if almost.Digest() != fast.Digest() {
		t.Error("speed is keyed to three decimals")
	}

	for _, k := range []Key{{Text: "a", Language: "bc"}, {Text: "ab", Language: "c"}} {
		if len(k.Digest()) != 64 {
			t.Errorf("digest length = %d", len(k.Digest()))
		}
	}
	if (Key{Text: "a", Language: "bc"}).Digest() == (Key{Text: "ab", Language: "c"}).Digest() {
		t.Error("field boundaries must be part of the digest")
	}
}
