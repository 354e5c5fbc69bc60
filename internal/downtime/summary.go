package downtime

import "math"

// Key groups intervals for aggregation.
type Key struct {
	Code      string
	Operation string
	State     string
}

// Summary is the total duration of all intervals sharing a Key.
type Summary struct {
	Code         string  `json:"code"`
	Operation    string  `json:"operation"`
	State        string  `json:"state"`
	TotalMinutes float64 `json:"totalMinutes"`
}

// Key returns the grouping key of the summary.
func (s Summary) Key() Key {
	return Key{Code: s.Code, Operation: s.Operation, State: s.State}
}

// Summarize sums interval durations per (code, operation, state). Groups are
// returned in order of first appearance; callers must not depend on it.
// Totals are not rounded.
func Summarize(intervals []Interval) []Summary {
	index := make(map[Key]int)
	out := make([]Summary, 0)
	for _, iv := range intervals {
		k := Key{Code: iv.Code, Operation: iv.Operation, State: iv.State}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Summary{Code: k.Code, Operation: k.Operation, State: k.State})
		}
		out[i].TotalMinutes += iv.DurationMinutes
	}
	return out
}

// RoundSummaries returns a copy of summaries with totals rounded to two decimals.
func RoundSummaries(summaries []Summary) []Summary {
	out := make([]Summary, len(summaries))
	for i, s := range summaries {
		s.TotalMinutes = RoundMinutes(s.TotalMinutes)
		out[i] = s
	}
	return out
}

// RoundMinutes rounds to two decimals, ties to even.
func RoundMinutes(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
