package pipeline

// DayStatus is the on-disk state of one day.
type DayStatus struct {
	Day     int
	State   State
	Missing []string
}

// Scan reports days 1..maxDay of layout without building anything.
func Scan(layout Layout, maxDay int) ([]DayStatus, error) {
	out := make([]DayStatus, 0, maxDay)
	for day := 1; day <= maxDay; day++ {
		missing, err := layout.Missing(day)
		if err != nil {
			return nil, err
		}
		st := DayStatus{Day: day, State: StateComplete, Missing: missing}
		if len(missing) > 0 {
			st.State = StatePending
		}
		out = append(out, st)
	}
	return out, nil
}

// Status reports every day the runner would consider.
func (r *Runner) Status() ([]DayStatus, error) {
	return Scan(r.opts.Layout, r.MaxDay())
}

// Pending returns the days that a run would build.
func Pending(days []DayStatus) []int {
	var out []int
	for _, d := range days {
		if d.State != StateComplete {
			out = append(out, d.Day)
		}
	}
	return out
}
