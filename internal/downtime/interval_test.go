package downtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhchien137/MachineStatusUpdate/internal/model"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func ev(id int64, code, state string, offset time.Duration) model.StatusEvent {
	ts := t0.Add(offset)
	return model.StatusEvent{ID: id, Code: code, State: state, Operation: "OP-" + code, Datetime: &ts}
}

func TestDerive_Scenario(t *testing.T) {
	events := []model.StatusEvent{
		ev(1, "A", "Run", 0),
		ev(2, "A", "Down", 30*time.Minute),
		ev(3, "A", "Run", 45*time.Minute),
	}

	got := Derive(events, Options{})

	expected := []Interval{
		{Code: "A", Operation: "OP-A", State: "Run", FromTime: t0, ToTime: t0.Add(30 * time.Minute), DurationMinutes: 30},
		{Code: "A", Operation: "OP-A", State: "Down", FromTime: t0.Add(30 * time.Minute), ToTime: t0.Add(45 * time.Minute), DurationMinutes: 15},
	}
	assert.Equal(t, expected, got)
}

func TestDerive_Boundaries(t *testing.T) {
	t.Run("Nil input", func(t *testing.T) {
		got := Derive(nil, Options{})
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
	t.Run("Single event", func(t *testing.T) {
		assert.Empty(t, Derive([]model.StatusEvent{ev(1, "A", "Run", 0)}, Options{}))
	})
	t.Run("Single event grouped", func(t *testing.T) {
		assert.Empty(t, Derive([]model.StatusEvent{ev(1, "A", "Run", 0)}, Options{GroupByCode: true}))
	})
	t.Run("Only timestamp-less events", func(t *testing.T) {
		events := []model.StatusEvent{{ID: 1, Code: "A", State: "Run"}, {ID: 2, Code: "A", State: "Down"}}
		assert.Empty(t, Derive(events, Options{}))
	})
}

func TestDerive_SortsUnorderedInput(t *testing.T) {
	events := []model.StatusEvent{
		ev(3, "A", "Run", 45*time.Minute),
		ev(1, "A", "Run", 0),
		ev(2, "A", "Down", 30*time.Minute),
	}

	got := Derive(events, Options{})
	require.Len(t, got, 2)
	assert.Equal(t, "Run", got[0].State)
	assert.Equal(t, 30.0, got[0].DurationMinutes)
	assert.Equal(t, "Down", got[1].State)
	assert.Equal(t, 15.0, got[1].DurationMinutes)
}

func TestDerive_TiesKeepInputOrder(t *testing.T) {
	events := []model.StatusEvent{
		ev(1, "A", "Run", 0),
		ev(2, "A", "Setup", 0),
		ev(3, "A", "Down", 10*time.Minute),
	}

	got := Derive(events, Options{})
	require.Len(t, got, 2)
	assert.Equal(t, "Run", got[0].State)
	assert.Equal(t, 0.0, got[0].DurationMinutes)
	assert.Equal(t, "Setup", got[1].State)
	assert.Equal(t, 10.0, got[1].DurationMinutes)
}

func TestDerive_SkipsMissingTimestamps(t *testing.T) {
	events := []model.StatusEvent{
		{ID: 9, Code: "A", State: "Unknown"},
		ev(1, "A", "Run", 0),
		{ID: 10, Code: "A", State: "Unknown"},
		ev(2, "A", "Down", 20*time.Minute),
	}

	got := Derive(events, Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "Run", got[0].State)
	assert.Equal(t, 20.0, got[0].DurationMinutes)
}

func TestDerive_FractionalMinutesAreNotRounded(t *testing.T) {
	events := []model.StatusEvent{
		ev(1, "A", "Run", 0),
		ev(2, "A", "Down", 90*time.Second+500*time.Millisecond),
	}

	got := Derive(events, Options{})
	require.Len(t, got, 1)
	assert.InDelta(t, 1.508333333, got[0].DurationMinutes, 1e-9)
	assert.Equal(t, 1.51, RoundIntervals(got)[0].DurationMinutes)
	assert.InDelta(t, 1.508333333, got[0].DurationMinutes, 1e-9, "rounding returns a copy")
}

func TestDerive_CountAndOrdering(t *testing.T) {
	// Interleaved machines, shuffled input, some without timestamps.
	events := []model.StatusEvent{
		ev(5, "B", "Run", 50*time.Minute),
		ev(1, "A", "Run", 0),
		{ID: 7, Code: "A", State: "Run"},
		ev(4, "A", "Down", 40*time.Minute),
		ev(2, "B", "Down", 5*time.Minute),
		ev(3, "A", "Idle", 25*time.Minute),
		ev(6, "B", "Idle", 70*time.Minute),
	}
	stamped := 6

	for _, opts := range []Options{{}, {GroupByCode: true}} {
		got := Derive(events, opts)
		if !opts.GroupByCode {
			assert.Len(t, got, stamped-1)
		} else {
			assert.Len(t, got, stamped-2, "one fewer interval per machine")
		}
		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].FromTime.Before(got[i-1].FromTime), "fromTime must be non-decreasing")
		}
		for _, iv := range got {
			assert.GreaterOrEqual(t, iv.DurationMinutes, 0.0)
		}
	}
}

func TestDerive_Idempotent(t *testing.T) {
	events := []model.StatusEvent{
		ev(2, "B", "Down", 5*time.Minute),
		ev(1, "A", "Run", 0),
		ev(3, "A", "Idle", 25*time.Minute),
	}
	snapshot := append([]model.StatusEvent(nil), events...)

	first := Derive(events, Options{})
	second := Derive(events, Options{})
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, events, "input must not be reordered")
}

func TestDerive_CrossMachinePairing(t *testing.T) {
	events := []model.StatusEvent{
		ev(1, "A", "Run", 0),
		ev(2, "B", "Down", 10*time.Minute),
		ev(3, "A", "Down", 30*time.Minute),
		ev(4, "B", "Run", 40*time.Minute),
	}

	t.Run("Ungrouped pairs adjacent events of different machines", func(t *testing.T) {
		got := Derive(events, Options{})
		require.Len(t, got, 3)
		assert.Equal(t, Interval{Code: "A", Operation: "OP-A", State: "Run", FromTime: t0, ToTime: t0.Add(10 * time.Minute), DurationMinutes: 10}, got[0])
		assert.Equal(t, Interval{Code: "B", Operation: "OP-B", State: "Down", FromTime: t0.Add(10 * time.Minute), ToTime: t0.Add(30 * time.Minute), DurationMinutes: 20}, got[1])
		assert.Equal(t, Interval{Code: "A", Operation: "OP-A", State: "Down", FromTime: t0.Add(30 * time.Minute), ToTime: t0.Add(40 * time.Minute), DurationMinutes: 10}, got[2])
	})

	t.Run("Grouped pairs within each machine", func(t *testing.T) {
		got := Derive(events, Options{GroupByCode: true})
		require.Len(t, got, 2)
		assert.Equal(t, Interval{Code: "A", Operation: "OP-A", State: "Run", FromTime: t0, ToTime: t0.Add(30 * time.Minute), DurationMinutes: 30}, got[0])
		assert.Equal(t, Interval{Code: "B", Operation: "OP-B", State: "Down", FromTime: t0.Add(10 * time.Minute), ToTime: t0.Add(40 * time.Minute), DurationMinutes: 30}, got[1])
	})
}

func TestDerive_StateFilterChangesPairing(t *testing.T) {
	events := []model.StatusEvent{
		ev(1, "A", "Run", 0),
		ev(2, "A", "Down", 30*time.Minute),
		ev(3, "A", "Run", 45*time.Minute),
		ev(4, "A", "Down", 60*time.Minute),
		ev(5, "A", "Run", 100*time.Minute),
	}

	filtered := Filter{State: "Down"}.Apply(events)
	got := Derive(filtered, Options{})

	// Only the two Down events survive, so the single interval runs from the
	// first Down to the second Down and skips the Run event in between.
	require.Len(t, got, 1)
	assert.Equal(t, "Down", got[0].State)
	assert.Equal(t, t0.Add(30*time.Minute), got[0].FromTime)
	assert.Equal(t, t0.Add(60*time.Minute), got[0].ToTime)
	assert.Equal(t, 30.0, got[0].DurationMinutes)

	unfiltered := Summarize(Derive(events, Options{}))
	assert.Equal(t, []Summary{
		{Code: "A", Operation: "OP-A", State: "Run", TotalMinutes: 45},
		{Code: "A", Operation: "OP-A", State: "Down", TotalMinutes: 55},
	}, unfiltered)
}

func TestSortEvents(t *testing.T) {
	events := []model.StatusEvent{
		ev(2, "A", "Down", time.Minute),
		{ID: 3, Code: "A", State: "Run"},
		ev(1, "A", "Run", 0),
	}

	got := SortEvents(events)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
}
