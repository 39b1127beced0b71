package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheMiss is returned when an item is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheCorrupted is returned when cache data is corrupted
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Tier distinguishes raw synthesis output from speed-rendered audio.
type Tier int

const (
	// TierRaw holds engine output at normal speed.
	TierRaw Tier = iota + 1

	// TierRendered holds raw audio re-rendered at another speed.
	TierRendered
)

// String returns the directory name used for the tier.
func (t Tier) String() string {
	switch t {
	case TierRaw:
		return "raw"
	case TierRendered:
		return "rendered"
	default:
		return "unknown"
	}
}

// Key identifies one synthesized segment.
type Key struct {
	Text     string
	Language string
	Voice    string
	Speed    float64
}

// NormalSpeed is the speed at which rendered and raw audio coincide.
const NormalSpeed = 1.0

// Tier returns the tier the key resolves to.
func (k Key) Tier() Tier {
	if k.Speed == 0 || k.Speed == NormalSpeed {
		return TierRaw
	}
	return TierRendered
}

// Raw returns the key of the raw synthesis output this key is derived from.
func (k Key) Raw() Key {
	k.Speed = NormalSpeed
	return k
}

// Digest returns the hex SHA-256 over the NFC-normalised text, language,
// voice and (for rendered keys) the speed to three decimals.
func (k Key) Digest() string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	write(norm.NFC.String(k.Text))
	write(k.Language)
	write(k.Voice)
	if k.Tier() == TierRendered {
		write(strconv.FormatFloat(k.Speed, 'f', 3, 64))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// id is the tier-qualified identifier used by the memory tier and
// for collapsing concurrent requests.
func (k Key) id() string {
	return k.Tier().String() + "/" + k.Digest()
}

func (k Key) String() string {
	return fmt.Sprintf("%q [%s %s x%.2f]", k.Text, k.Language, k.Voice, k.Speed)
}

// CacheStats describes the memory tier.
type CacheStats struct {
	Limit     int64
	Bytes     int64
	Entries   map[Tier]int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate is the share of lookups served from memory.
func (s CacheStats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}
