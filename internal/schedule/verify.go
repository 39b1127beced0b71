package schedule

import "fmt"

// Verify checks that every sequence in the plan contains each pool item
// exactly Repetitions times, nothing outside the pool, and non-decreasing
// slots. The first violation is returned as a *ConsistencyError.
func Verify(plan *DayPlan) error {
	for _, seq := range plan.Sequences {
		if err := verifySequence(plan.Day, seq); err != nil {
			return err
		}
	}
	return nil
}

func verifySequence(day int, seq Sequence) error {
	fail := func(format string, args ...any) error {
		return &ConsistencyError{Day: day, Template: seq.Rule.Template, Check: fmt.Sprintf(format, args...)}
	}

	if want := len(seq.Pool) * seq.Rule.Repetitions; len(seq.Entries) != want {
		return fail("sequence has %d entries, want %d (%d items x %d repetitions)",
			len(seq.Entries), want, len(seq.Pool), seq.Rule.Repetitions)
	}

	expected := make(map[string]int, len(seq.Pool))
	for _, e := range seq.Pool {
		if _, dup := expected[e.Item.ID]; dup {
			return fail("item %s appears twice in the pool", e.Item.ID)
		}
		expected[e.Item.ID] = 0
	}

	last := 0
	for _, e := range seq.Entries {
		n, ok := expected[e.Item.ID]
		if !ok {
			return fail("item %s is not in the day's pool", e.Item.ID)
		}
		expected[e.Item.ID] = n + 1
		if e.Slot < last {
			return fail("slot %d follows slot %d", e.Slot, last)
		}
		last = e.Slot
	}

	for _, e := range seq.Pool {
		if n := expected[e.Item.ID]; n != seq.Rule.Repetitions {
			return fail("item %s appears %d times, want %d", e.Item.ID, n, seq.Rule.Repetitions)
		}
	}
	return nil
}
