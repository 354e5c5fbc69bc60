package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/minhchien137/MachineStatusUpdate/internal/downtime"
	"github.com/minhchien137/MachineStatusUpdate/internal/model"
)

type mapResolver map[string]string

func (m mapResolver) Resolve(ref string) string { return m[ref] }

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()
	require.NoError(t, png.Encode(out, img))
}

func reopen(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	r, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "photo.png")
	writePNG(t, photo)

	ts := time.Date(2024, 1, 15, 1, 30, 0, 0, time.UTC)
	events := []model.StatusEvent{
		{ID: 2, Code: "CNC-2", Name: "#2", State: "Down", Operation: "Assembly", Description: "spindle", Image: "/uploads/status-images/a.png", Datetime: &ts},
		{ID: 1, Code: "CNC-1", Name: "#1", State: "Run", Operation: "Assembly"},
	}
	x := NewExporter(time.FixedZone("ICT", 7*3600), mapResolver{"/uploads/status-images/a.png": photo})

	f, err := x.History(events)
	require.NoError(t, err)
	r := reopen(t, f)

	assert.Equal(t, []string{HistorySheet}, r.GetSheetList())
	rows, err := r.GetRows(HistorySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Id", "Code", "Name", "State", "Operation", "Description", "Image", "Datetime"}, rows[0])
	assert.Equal(t, "2", rows[1][0])
	assert.Equal(t, "CNC-2", rows[1][1])
	assert.Equal(t, "spindle", rows[1][5])
	assert.Equal(t, "2024-01-15 08:30:00", rows[1][7])

	pics, err := r.GetPictures(HistorySheet, "G2")
	require.NoError(t, err)
	assert.NotEmpty(t, pics)

	noImage, err := r.GetCellValue(HistorySheet, "G3")
	require.NoError(t, err)
	assert.Equal(t, "No image", noImage)
	stamp, err := r.GetCellValue(HistorySheet, "H3")
	require.NoError(t, err)
	assert.Empty(t, stamp)

	height, err := r.GetRowHeight(HistorySheet, 2)
	require.NoError(t, err)
	assert.Equal(t, 70.0, height)
}

func TestHistory_MissingFileIsNoImage(t *testing.T) {
	ts := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	events := []model.StatusEvent{{ID: 1, Code: "A", State: "Run", Image: "/uploads/gone.png", Datetime: &ts}}
	x := NewExporter(time.UTC, mapResolver{"/uploads/gone.png": filepath.Join(t.TempDir(), "gone.png")})

	f, err := x.History(events)
	require.NoError(t, err)
	r := reopen(t, f)

	v, err := r.GetCellValue(HistorySheet, "G2")
	require.NoError(t, err)
	assert.Equal(t, "No image", v)
}

func TestHistory_Empty(t *testing.T) {
	f, err := NewExporter(nil, nil).History(nil)
	require.NoError(t, err)
	r := reopen(t, f)

	rows, err := r.GetRows(HistorySheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestDowntimeDetail(t *testing.T) {
	from := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	intervals := []downtime.Interval{
		{Code: "A", Operation: "Paint", State: "Run", FromTime: from, ToTime: from.Add(30 * time.Minute), DurationMinutes: 30},
		{Code: "A", Operation: "Paint", State: "Down", FromTime: from.Add(30 * time.Minute), ToTime: from.Add(45*time.Minute + 30*time.Second), DurationMinutes: 15.5},
	}

	f, err := NewExporter(time.UTC, nil).DowntimeDetail(intervals)
	require.NoError(t, err)
	r := reopen(t, f)

	assert.Equal(t, []string{DowntimeDetailSheet}, r.GetSheetList())
	rows, err := r.GetRows(DowntimeDetailSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Code", "Operation", "State", "From", "To", "Duration (minutes)"}, rows[0])
	assert.Equal(t, []string{"A", "Paint", "Run", "2024-01-15 08:00:00", "2024-01-15 08:30:00", "30"}, rows[1])
	assert.Equal(t, "15.5", rows[2][5])

	height, err := r.GetRowHeight(DowntimeDetailSheet, 2)
	require.NoError(t, err)
	assert.Equal(t, 25.0, height)
}

func TestDowntimeSummary(t *testing.T) {
	summaries := []downtime.Summary{
		{Code: "A", Operation: "Paint", State: "Run", TotalMinutes: 45},
		{Code: "A", Operation: "Paint", State: "Down", TotalMinutes: 55.25},
	}

	f, err := NewExporter(time.UTC, nil).DowntimeSummary(summaries)
	require.NoError(t, err)
	r := reopen(t, f)

	rows, err := r.GetRows(DowntimeSummarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Code", "Operation", "State", "Total Minutes"}, rows[0])
	assert.Equal(t, []string{"A", "Paint", "Down", "55.25"}, rows[2])
}
