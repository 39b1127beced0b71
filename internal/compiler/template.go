package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgnsrekt/daydrill/internal/audio"
	"github.com/dgnsrekt/daydrill/internal/schedule"
)

// ErrEmptyPattern is returned for a pattern without tokens.
var ErrEmptyPattern = errors.New("template pattern is empty")

// Token is one step of a pattern: a content role or an explicit pause.
type Token struct {
	Name  string
	Pause bool
}

func (t Token) String() string { return t.Name }

// ParsePattern splits a space separated pattern such as "SP W2 W1 L1 L2"
// and checks every token against roles.
func ParsePattern(pattern string, roles Roles) ([]Token, error) {
	fields := strings.Fields(pattern)
	if len(fields) == 0 {
		return nil, ErrEmptyPattern
	}

	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		name := strings.ToUpper(f)
		if name == PauseToken {
			tokens = append(tokens, Token{Name: name, Pause: true})
			continue
		}
		if _, ok := roles[name]; !ok {
			return nil, fmt.Errorf("unknown pattern token %q (known: %s, %s)",
				f, strings.Join(roles.Tokens(), ", "), PauseToken)
		}
		tokens = append(tokens, Token{Name: name})
	}
	return tokens, nil
}

// Template describes how one track is assembled.
type Template struct {
	Name        string
	Pattern     string
	Tokens      []Token
	Repetitions int
	Source      schedule.Source
	Speed       float64
}

// NewTemplate parses the pattern and validates the template.
func NewTemplate(name, pattern string, repetitions int, source schedule.Source, speed float64, roles Roles) (Template, error) {
	if strings.TrimSpace(name) == "" {
		return Template{}, errors.New("template name is empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return Template{}, fmt.Errorf("template %q: name must not contain path separators", name)
	}
	if repetitions < 0 {
		return Template{}, fmt.Errorf("template %q: repetitions must not be negative", name)
	}
	if speed == 0 {
		speed = 1
	}
	if err := audio.ValidateSpeed(speed); err != nil {
		return Template{}, fmt.Errorf("template %q: %w", name, err)
	}

	tokens, err := ParsePattern(pattern, roles)
	if err != nil {
		return Template{}, fmt.Errorf("template %q: %w", name, err)
	}

	return Template{
		Name:        name,
		Pattern:     pattern,
		Tokens:      tokens,
		Repetitions: repetitions,
		Source:      source,
		Speed:       speed,
	}, nil
}

// Rule returns the scheduling part of the template.
func (t Template) Rule() schedule.Rule {
	return schedule.Rule{Template: t.Name, Repetitions: t.Repetitions, Source: t.Source}
}

// DefaultTemplates returns the stock workout and review templates.
func DefaultTemplates() []Template {
	roles := DefaultRoles()
	specs := []struct {
		name, pattern string
		reps          int
		source        schedule.Source
	}{
		{"workout", "SP W2 W1 L1 L2 L2 L2 L2 L2", 3, schedule.SourceNewOnly},
		{"review_forward", "SP W2 W1 L1 L2", 1, schedule.SourceAllDue},
		{"review_reverse", "SP W2 W1 L2 L1", 1, schedule.SourceAllDue},
	}
	out := make([]Template, 0, len(specs))
	for _, s := range specs {
		tpl, err := NewTemplate(s.name, s.pattern, s.reps, s.source, 1, roles)
		if err != nil {
			panic(err)
		}
		out = append(out, tpl)
	}
	return out
}
