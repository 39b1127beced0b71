package schedule

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/daydrill/internal/study"
)

// Entry is one scheduled occurrence of an item within a track.
type Entry struct {
	Item study.Item
	Kind study.Kind
	Slot int // interleaving slot; zero for pool entries
}

// Source selects which of the day's items a template draws from.
type Source int

const (
	// SourceAllDue uses the day's review items followed by its new items.
	SourceAllDue Source = iota
	// SourceNewOnly uses only the items introduced on the day.
	SourceNewOnly
)

func (s Source) String() string {
	switch s {
	case SourceAllDue:
		return "all_due"
	case SourceNewOnly:
		return "new_only"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// ParseSource is the inverse of Source.String.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all_due", "all", "":
		return SourceAllDue, nil
	case "new_only", "new":
		return SourceNewOnly, nil
	default:
		return 0, fmt.Errorf("unknown template source %q (want all_due or new_only)", s)
	}
}

// Rule is the scheduling part of a track template.
type Rule struct {
	Template    string
	Repetitions int
	Source      Source
}

// Sequence is the ordered item list for one template on one day.
type Sequence struct {
	Rule    Rule
	Pool    []Entry // items the template draws from, before interleaving
	Entries []Entry // interleaved result
}

// DayPlan holds every template's sequence for a day.
type DayPlan struct {
	Day       int
	Reviews   int
	New       int
	Sequences []Sequence
}

// Sequence returns the sequence for the named template.
func (p *DayPlan) Sequence(template string) (Sequence, bool) {
	for _, seq := range p.Sequences {
		if seq.Rule.Template == template {
			return seq, true
		}
	}
	return Sequence{}, false
}

// ConsistencyError reports a schedule that violates its own invariants.
// It always indicates a logic error and is never retried.
type ConsistencyError struct {
	Day      int
	Template string
	Check    string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("schedule consistency: day %d template %q: %s", e.Day, e.Template, e.Check)
}
