package schedule

import (
	"errors"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/dgnsrekt/daydrill/internal/study"
)

// Default interval sets.
var (
	DefaultMacroIntervals = []int{1, 3, 7, 14, 30, 60, 120, 240}
	DefaultMicroIntervals = []int{0, 3, 7, 14, 28}
)

// Config holds the interval sets and review sampling parameters.
type Config struct {
	// MacroIntervals are day offsets after the origin day on which an item is reviewed.
	MacroIntervals []int

	// MicroIntervals are slot offsets used to spread repeats within a track.
	MicroIntervals []int

	// ReviewRatio caps the number of review items at ReviewRatio per new
	// item (at least one new item is assumed). Zero disables the cap.
	ReviewRatio int

	// Seed is mixed with the day number to seed review sampling.
	Seed uint64
}

// DefaultConfig returns the default interval sets with sampling disabled.
func DefaultConfig() Config {
	return Config{
		MacroIntervals: slices.Clone(DefaultMacroIntervals),
		MicroIntervals: slices.Clone(DefaultMicroIntervals),
	}
}

// Scheduler builds day plans. It holds no state besides its configuration.
type Scheduler struct {
	cfg Config
}

// New creates a scheduler.
func New(cfg Config) (*Scheduler, error) {
	if len(cfg.MacroIntervals) == 0 {
		return nil, errors.New("schedule: at least one macro interval is required")
	}
	if len(cfg.MicroIntervals) == 0 {
		return nil, errors.New("schedule: at least one micro interval is required")
	}
	for _, k := range cfg.MacroIntervals {
		if k < 1 {
			return nil, errors.New("schedule: macro intervals must be positive")
		}
	}
	for _, s := range cfg.MicroIntervals {
		if s < 0 {
			return nil, errors.New("schedule: micro intervals must not be negative")
		}
	}
	if cfg.ReviewRatio < 0 {
		return nil, errors.New("schedule: review ratio must not be negative")
	}
	return &Scheduler{cfg: cfg}, nil
}

// Config returns the scheduler configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// Plan builds the sequences for every rule on the given day.
func (s *Scheduler) Plan(items []study.Item, day int, rules []Rule) (*DayPlan, error) {
	if day < 1 {
		return nil, errors.New("schedule: day must be positive")
	}

	all := s.Pool(items, day)
	var newOnly []Entry
	reviews := 0
	for _, e := range all {
		if e.Kind == study.KindNew {
			newOnly = append(newOnly, e)
		} else {
			reviews++
		}
	}

	plan := &DayPlan{Day: day, Reviews: reviews, New: len(newOnly)}
	for _, rule := range rules {
		pool := all
		if rule.Source == SourceNewOnly {
			pool = newOnly
		}
		plan.Sequences = append(plan.Sequences, Sequence{
			Rule:    rule,
			Pool:    pool,
			Entries: Interleave(pool, rule.Repetitions, s.cfg.MicroIntervals),
		})
	}
	return plan, nil
}

// Pool returns the day's candidate entries: due reviews first, then the
// items introduced on the day.
func (s *Scheduler) Pool(items []study.Item, day int) []Entry {
	fresh := NewItems(items, day)
	reviews := s.sampleReviews(DueReviews(items, day, s.cfg.MacroIntervals), len(fresh), day)

	pool := make([]Entry, 0, len(reviews)+len(fresh))
	for _, it := range reviews {
		pool = append(pool, Entry{Item: it, Kind: study.KindReview})
	}
	for _, it := range fresh {
		pool = append(pool, Entry{Item: it, Kind: study.KindNew})
	}
	return pool
}

// sampleReviews applies the review ratio cap. The subset is drawn with a
// generator seeded by the day so reruns select the same items, and it keeps
// master-list order.
func (s *Scheduler) sampleReviews(reviews []study.Item, newCount, day int) []study.Item {
	if s.cfg.ReviewRatio == 0 {
		return reviews
	}
	limit := s.cfg.ReviewRatio * max(1, newCount)
	if len(reviews) <= limit {
		return reviews
	}

	r := rand.New(rand.NewPCG(s.cfg.Seed, uint64(day)))
	picked := r.Perm(len(reviews))[:limit]
	sort.Ints(picked)

	out := make([]study.Item, 0, limit)
	for _, i := range picked {
		out = append(out, reviews[i])
	}
	return out
}

// DueReviews returns the items whose origin day plus some macro interval
// equals day. The whole history is searched; each item appears once even
// when several intervals coincide.
func DueReviews(items []study.Item, day int, macro []int) []study.Item {
	var due []study.Item
	seen := make(map[string]struct{})
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		for _, k := range macro {
			if it.OriginDay+k == day {
				due = append(due, it)
				seen[it.ID] = struct{}{}
				break
			}
		}
	}
	return due
}

// NewItems returns the items introduced on day, in master-list order.
func NewItems(items []study.Item, day int) []study.Item {
	var out []study.Item
	for _, it := range items {
		if it.OriginDay == day {
			out = append(out, it)
		}
	}
	return out
}

// Interleave repeats every entry the given number of times, spreading the
// repeats with the micro interval offsets.
//
// The entry at 1-based position p occupies slots p+s0, p+s0+s1, and so on.
// Slots are flattened in ascending order and entries sharing a slot keep
// their input order. When repetitions exceeds the number of offsets the
// last offset is reused, so each entry appears exactly repetitions times
// rather than at most len(micro) times.
func Interleave(entries []Entry, repetitions int, micro []int) []Entry {
	if len(entries) == 0 || repetitions <= 0 || len(micro) == 0 {
		return nil
	}

	offsets := make([]int, repetitions)
	for i := range offsets {
		if i < len(micro) {
			offsets[i] = micro[i]
		} else {
			offsets[i] = micro[len(micro)-1]
		}
	}

	slots := make(map[int][]Entry)
	for i, e := range entries {
		slot := i + 1
		for _, off := range offsets {
			slot += off
			placed := e
			placed.Slot = slot
			slots[slot] = append(slots[slot], placed)
		}
	}

	keys := make([]int, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]Entry, 0, len(entries)*repetitions)
	for _, k := range keys {
		out = append(out, slots[k]...)
	}
	return out
}
