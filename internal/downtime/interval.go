// Package downtime turns ordered machine status events into downtime
// intervals and per-key totals.
package downtime

import (
	"slices"
	"time"

	"github.com/minhchien137/MachineStatusUpdate/internal/model"
)

// Interval is the span between two consecutive events, labelled with the
// earlier event's code, operation and state.
type Interval struct {
	Code            string    `json:"code"`
	Operation       string    `json:"operation"`
	State           string    `json:"state"`
	FromTime        time.Time `json:"fromTime"`
	ToTime          time.Time `json:"toTime"`
	DurationMinutes float64   `json:"durationMinutes"`
}

// Options controls interval derivation.
type Options struct {
	// GroupByCode pairs events only within the same machine code. When false,
	// adjacent events of the whole filtered sequence are paired even if they
	// belong to different machines.
	GroupByCode bool
}

// SortEvents returns a copy of events ordered by ascending timestamp. Ties
// keep their input order. Events without a timestamp are dropped.
func SortEvents(events []model.StatusEvent) []model.StatusEvent {
	sorted := make([]model.StatusEvent, 0, len(events))
	for _, e := range events {
		if e.HasTimestamp() {
			sorted = append(sorted, e)
		}
	}
	slices.SortStableFunc(sorted, func(a, b model.StatusEvent) int {
		return a.Datetime.Compare(*b.Datetime)
	})
	return sorted
}

// Derive builds the intervals of a filtered event collection. The input does
// not need to be sorted. The result is ordered by non-decreasing FromTime and
// holds len(events with timestamps)-1 intervals when opts.GroupByCode is false.
func Derive(events []model.StatusEvent, opts Options) []Interval {
	sorted := SortEvents(events)
	if !opts.GroupByCode {
		return pair(sorted, make([]Interval, 0, max(0, len(sorted)-1)))
	}

	var codes []string
	byCode := make(map[string][]model.StatusEvent)
	for _, e := range sorted {
		if _, ok := byCode[e.Code]; !ok {
			codes = append(codes, e.Code)
		}
		byCode[e.Code] = append(byCode[e.Code], e)
	}

	out := make([]Interval, 0, len(sorted))
	for _, code := range codes {
		out = pair(byCode[code], out)
	}
	slices.SortStableFunc(out, func(a, b Interval) int {
		return a.FromTime.Compare(b.FromTime)
	})
	return out
}

// pair appends one interval per adjacent pair of a sorted sequence.
func pair(sorted []model.StatusEvent, out []Interval) []Interval {
	for i := 0; i+1 < len(sorted); i++ {
		current, next := sorted[i], sorted[i+1]
		out = append(out, Interval{
			Code:            current.Code,
			Operation:       current.Operation,
			State:           current.State,
			FromTime:        *current.Datetime,
			ToTime:          *next.Datetime,
			DurationMinutes: next.Datetime.Sub(*current.Datetime).Minutes(),
		})
	}
	return out
}

// RoundIntervals returns a copy of intervals with durations rounded to two
// decimals, as written to spreadsheet exports.
func RoundIntervals(intervals []Interval) []Interval {
	out := make([]Interval, len(intervals))
	for i, iv := range intervals {
		iv.DurationMinutes = RoundMinutes(iv.DurationMinutes)
		out[i] = iv
	}
	return out
}
