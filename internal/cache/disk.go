package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const diskExt = ".zst"

// DiskCache stores one zstd frame per entry under
// <dir>/<tier>/<first two digest chars>/<digest>.zst.
//
// Frames carry a content checksum, so truncated or damaged files are
// detected on read. There is no index: the file system is the index, and
// nothing is evicted or expired except through Delete and Clear.
type DiskCache struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// DiskUsage summarises what a disk cache holds.
type DiskUsage struct {
	Files map[Tier]int64
	Bytes map[Tier]int64
}

// NewDiskCache opens (and creates) a disk cache rooted at dir.
func NewDiskCache(dir string, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if compressionLevel <= 0 {
		compressionLevel = 3
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)),
		zstd.WithEncoderCRC(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &DiskCache{dir: dir, encoder: encoder, decoder: decoder}, nil
}

// Dir returns the cache root.
func (dc *DiskCache) Dir() string { return dc.dir }

// Path returns the file that holds digest in tier.
func (dc *DiskCache) Path(tier Tier, digest string) string {
	shard := digest
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(dc.dir, tier.String(), shard, digest+diskExt)
}

// Get returns the decompressed entry. A missing file is ErrCacheMiss; an
// empty or undecodable file is removed and reported as ErrCacheCorrupted.
func (dc *DiskCache) Get(tier Tier, digest string) ([]byte, error) {
	path := dc.Path(tier, digest)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupted, err)
	}
	if len(data) == 0 {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %s is empty", ErrCacheCorrupted, path)
	}

	out, err := dc.decoder.DecodeAll(data, nil)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %s: %v", ErrCacheCorrupted, path, err)
	}
	return out, nil
}

// Contains reports whether an entry file exists, without reading it.
func (dc *DiskCache) Contains(tier Tier, digest string) bool {
	_, err := os.Stat(dc.Path(tier, digest))
	return err == nil
}

// Put compresses value and writes it atomically.
func (dc *DiskCache) Put(tier Tier, digest string, value []byte) error {
	path := dc.Path(tier, digest)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache shard: %w", err)
	}
	if err := writeFileAtomic(path, dc.encoder.EncodeAll(value, nil)); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Delete removes one entry. Deleting a missing entry is not an error.
func (dc *DiskCache) Delete(tier Tier, digest string) error {
	err := os.Remove(dc.Path(tier, digest))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes every entry of both tiers.
func (dc *DiskCache) Clear() error {
	for _, tier := range []Tier{TierRaw, TierRendered} {
		if err := os.RemoveAll(filepath.Join(dc.dir, tier.String())); err != nil {
			return fmt.Errorf("clear %s tier: %w", tier, err)
		}
	}
	return nil
}

// Usage walks the cache and counts entries and bytes per tier.
func (dc *DiskCache) Usage() (DiskUsage, error) {
	u := DiskUsage{Files: map[Tier]int64{}, Bytes: map[Tier]int64{}}
	for _, tier := range []Tier{TierRaw, TierRendered} {
		root := filepath.Join(dc.dir, tier.String())
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, diskExt) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			u.Files[tier]++
			u.Bytes[tier] += info.Size()
			return nil
		})
		if err != nil {
			return u, err
		}
	}
	return u, nil
}

// Close releases the codec resources.
func (dc *DiskCache) Close() error {
	dc.decoder.Close()
	return dc.encoder.Close()
}

// writeFileAtomic writes to a temp file in the same directory and renames
// it into place, so readers never see a partial entry.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
