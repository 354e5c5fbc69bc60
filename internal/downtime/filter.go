package downtime

import (
	"strings"
	"time"

	"github.com/minhchien137/MachineStatusUpdate/internal/model"
)

// DateMode selects how the From/To bounds of a Filter are compared.
type DateMode int

const (
	// DateModeCalendar compares calendar dates only; used by the history
	// listing and its export.
	DateModeCalendar DateMode = iota
	// DateModeTimestamp compares full timestamps; used by the downtime reports.
	DateModeTimestamp
)

func (m DateMode) String() string {
	if m == DateModeTimestamp {
		return "timestamp"
	}
	return "calendar"
}

// Layouts accepted for date filter values, tried in order.
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Filter narrows the events taking part in a listing or report. Empty string
// predicates and nil bounds always match.
type Filter struct {
	Code      string
	State     string
	Operation string
	From      *time.Time
	To        *time.Time
	Mode      DateMode
	Location  *time.Location
}

// NewFilter builds a Filter from raw request values. Date values that cannot
// be parsed disable their bound instead of failing the request.
func NewFilter(code, state, operation, from, to string, mode DateMode, loc *time.Location) Filter {
	if loc == nil {
		loc = time.Local
	}
	return Filter{
		Code:      code,
		State:     state,
		Operation: operation,
		From:      ParseDate(from, loc),
		To:        ParseDate(to, loc),
		Mode:      mode,
		Location:  loc,
	}
}

// ParseDate parses a filter date value. It returns nil for empty or invalid input.
func ParseDate(value string, loc *time.Location) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return &t
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return &t
		}
	}
	return nil
}

// Match reports whether the event satisfies every supplied predicate.
func (f Filter) Match(e model.StatusEvent) bool {
	if f.Code != "" && !strings.Contains(e.Code, f.Code) {
		return false
	}
	if f.State != "" && !strings.Contains(e.State, f.State) {
		return false
	}
	if f.Operation != "" && !strings.Contains(e.Operation, f.Operation) {
		return false
	}
	if f.From == nil && f.To == nil {
		return true
	}
	if e.Datetime == nil {
		return false
	}

	if f.Mode == DateModeTimestamp {
		if f.From != nil && e.Datetime.Before(*f.From) {
			return false
		}
		if f.To != nil && e.Datetime.After(*f.To) {
			return false
		}
		return true
	}

	day := f.truncate(*e.Datetime)
	if f.From != nil && day.Before(f.truncate(*f.From)) {
		return false
	}
	if f.To != nil && day.After(f.truncate(*f.To)) {
		return false
	}
	return true
}

// Apply returns the events matching the filter. Input order is kept but is
// not part of the contract.
func (f Filter) Apply(events []model.StatusEvent) []model.StatusEvent {
	out := make([]model.StatusEvent, 0, len(events))
	for _, e := range events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Bounds returns the inclusive timestamp range a store may use to pre-select
// candidate rows. In calendar mode the range is widened to whole days.
func (f Filter) Bounds() (since, until *time.Time) {
	if f.Mode == DateModeTimestamp {
		return f.From, f.To
	}
	if f.From != nil {
		s := f.truncate(*f.From)
		since = &s
	}
	if f.To != nil {
		u := f.truncate(*f.To).AddDate(0, 0, 1).Add(-time.Nanosecond)
		until = &u
	}
	return since, until
}

func (f Filter) truncate(t time.Time) time.Time {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
