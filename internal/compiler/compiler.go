package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/cache"
	"github.com/dgnsrekt/daydrill/internal/schedule"
)

// DefaultExplicitPause is the length of an SP token.
const DefaultExplicitPause = 3 * time.Second

// Resolver returns audio for a cache key. *cache.Store implements it.
type Resolver interface {
	GetOrCreate(ctx context.Context, key cache.Key) (cache.Result, error)
}

// Voice is the language and engine voice used for one side.
type Voice struct {
	Language string
	Voice    string
}

// Options configures a Compiler.
type Options struct {
	Resolver      Resolver
	Roles         Roles
	Base          Voice
	Target        Voice
	Format        audio.Format
	ExplicitPause time.Duration

	// EchoPauses lengthens each role pause by the segment's own duration,
	// leaving the learner time to repeat it aloud.
	EchoPauses bool

	Logger *log.Logger
}

// Compiler turns scheduled entries into audio tracks.
type Compiler struct {
	opts Options
}

// New creates a compiler.
func New(opts Options) (*Compiler, error) {
	if opts.Resolver == nil {
		return nil, errors.New("compiler: resolver is required")
	}
	if opts.Roles == nil {
		opts.Roles = DefaultRoles()
	}
	if opts.Format.SampleRate == 0 {
		opts.Format = audio.NewFormat(audio.DefaultSampleRate)
	}
	if opts.ExplicitPause < 0 {
		return nil, errors.New("compiler: explicit pause must not be negative")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Compiler{opts: opts}, nil
}

// Track is a compiled template for one day.
type Track struct {
	Template string
	Day      int
	Audio    audio.Clip

	// Expected is the exact duration of everything appended: the resolved
	// segments as returned by the cache plus every pause.
	Expected time.Duration

	Segments int // content segments appended
	Skipped  int // content tokens with empty text
	Degraded int // segments served as silent placeholders
}

// IsDegraded reports whether any segment is a placeholder.
func (t *Track) IsDegraded() bool { return t.Degraded > 0 }

// SegmentError names the entry and token whose audio could not be resolved.
type SegmentError struct {
	Template string
	ItemID   string
	Token    string
	Err      error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("template %s item %s token %s: %v", e.Template, e.ItemID, e.Token, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// Compile renders entries through the template pattern. Content tokens
// whose text is empty are skipped together with their pause.
func (c *Compiler) Compile(ctx context.Context, tpl Template, day int, entries []schedule.Entry) (*Track, error) {
	b := audio.NewBuilder(c.opts.Format)
	track := &Track{Template: tpl.Name, Day: day}

	for _, e := range entries {
		for _, tok := range tpl.Tokens {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if tok.Pause {
				b.AppendSilence(c.opts.ExplicitPause)
				continue
			}

			key, role, ok := c.key(tpl, tok, e)
			if !ok {
				track.Skipped++
				continue
			}

			res, err := c.opts.Resolver.GetOrCreate(ctx, key)
			if err != nil {
				return nil, &SegmentError{Template: tpl.Name, ItemID: e.Item.ID, Token: tok.Name, Err: err}
			}
			if err := b.Append(res.Clip); err != nil {
				return nil, &SegmentError{Template: tpl.Name, ItemID: e.Item.ID, Token: tok.Name, Err: err}
			}
			track.Segments++
			if res.Degraded {
				track.Degraded++
			}

			pause := role.Pause
			if c.opts.EchoPauses {
				pause += res.Clip.Duration()
			}
			b.AppendSilence(pause)
		}
	}

	track.Audio = b.Clip()
	track.Expected = b.Duration()

	c.opts.Logger.Debug("compiled track",
		"template", tpl.Name,
		"day", day,
		"entries", len(entries),
		"segments", track.Segments,
		"expected", track.Expected)
	return track, nil
}

// Keys returns the unique cache keys a compile of entries will resolve,
// in first-use order.
func (c *Compiler) Keys(tpl Template, entries []schedule.Entry) []cache.Key {
	var keys []cache.Key
	seen := make(map[cache.Key]struct{})
	for _, e := range entries {
		for _, tok := range tpl.Tokens {
			if tok.Pause {
				continue
			}
			key, _, ok := c.key(tpl, tok, e)
			if !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *Compiler) key(tpl Template, tok Token, e schedule.Entry) (cache.Key, Role, bool) {
	role := c.opts.Roles[tok.Name]
	text := strings.TrimSpace(e.Item.Text(role.Field))
	if text == "" {
		return cache.Key{}, role, false
	}

	v := c.opts.Base
	if role.Side == SideTarget {
		v = c.opts.Target
	}
	return cache.Key{Text: text, Language: v.Language, Voice: v.Voice, Speed: tpl.Speed}, role, true
}
