package compiler

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dgnsrekt/daydrill/internal/study"
)

// PauseToken marks an explicit thinking pause in a pattern.
const PauseToken = "SP"

// Side is the language side a role is spoken in.
type Side int

const (
	SideBase Side = iota
	SideTarget
)

func (s Side) String() string {
	if s == SideTarget {
		return "target"
	}
	return "base"
}

// ParseSide accepts "base" or "target".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "base":
		return SideBase, nil
	case "target":
		return SideTarget, nil
	default:
		return 0, fmt.Errorf("unknown language side %q (want base or target)", s)
	}
}

// SideOf deduces the side from a token suffix: tokens ending in 1 are
// spoken in the base language, tokens ending in 2 in the target language.
func SideOf(token string) Side {
	if strings.HasSuffix(token, "2") {
		return SideTarget
	}
	return SideBase
}

// Role binds a content token to an item field.
type Role struct {
	Field study.Field
	Side  Side
	Pause time.Duration // trailing pause after the segment
}

// Roles maps content tokens to roles.
type Roles map[string]Role

// Default role pauses.
const (
	DefaultWordPause     = 250 * time.Millisecond
	DefaultSentencePause = 500 * time.Millisecond
)

// DefaultRoles returns the standard W1/W2/L1/L2 table.
func DefaultRoles() Roles {
	return Roles{
		"W1": {Field: study.FieldBack, Side: SideBase, Pause: DefaultWordPause},
		"W2": {Field: study.FieldFront, Side: SideTarget, Pause: DefaultWordPause},
		"L1": {Field: study.FieldSecondaryBack, Side: SideBase, Pause: DefaultSentencePause},
		"L2": {Field: study.FieldSecondaryFront, Side: SideTarget, Pause: DefaultSentencePause},
	}
}

// WithPauses returns a copy with the trailing pauses replaced for the
// given tokens.
func (r Roles) WithPauses(pauses map[string]time.Duration) (Roles, error) {
	out := maps.Clone(r)
	for token, d := range pauses {
		token = strings.ToUpper(token)
		role, ok := out[token]
		if !ok {
			return nil, fmt.Errorf("pause for unknown role %q", token)
		}
		if d < 0 {
			return nil, fmt.Errorf("pause for role %q is negative", token)
		}
		role.Pause = d
		out[token] = role
	}
	return out, nil
}

// Tokens lists the known content tokens in sorted order.
func (r Roles) Tokens() []string {
	return slices.Sorted(maps.Keys(r))
}
