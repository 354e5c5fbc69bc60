// Package export renders status history and downtime reports as xlsx workbooks.
package export

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/minhchien137/MachineStatusUpdate/internal/downtime"
	"github.com/minhchien137/MachineStatusUpdate/internal/model"
)

const (
	// ContentType is the MIME type of the produced workbooks.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	HistoryFileName         = "StatusHistory.xlsx"
	DowntimeDetailFileName  = "DowntimeDetailReport.xlsx"
	DowntimeSummaryFileName = "DowntimeSummaryReport.xlsx"

	HistorySheet         = "StatusHistory"
	DowntimeDetailSheet  = "DowntimeDetail"
	DowntimeSummarySheet = "DowntimeSummary"

	timeLayout = "2006-01-02 15:04:05"
	fontFamily = "Times New Roman"

	imageWidth  = 100
	imageHeight = 70
)

// ImageResolver maps a stored image reference to a readable file path.
type ImageResolver interface {
	Resolve(ref string) string
}

// Exporter builds workbooks. Timestamps are written in its location.
type Exporter struct {
	loc    *time.Location
	images ImageResolver
}

// NewExporter creates an Exporter. A nil resolver disables image embedding.
func NewExporter(loc *time.Location, images ImageResolver) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{loc: loc, images: images}
}

type styles struct {
	header int
	center int
	muted  int
	failed int
}

// newWorkbook creates a file with a single sheet named sheet and the shared styles.
func newWorkbook(sheet string) (*excelize.File, *styles, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, nil, err
	}
	if err := f.SetDefaultFont(fontFamily); err != nil {
		return nil, nil, err
	}

	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	var st styles
	var err error
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Family: fontFamily, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"8EA9DB"}},
		Alignment: center,
	}); err != nil {
		return nil, nil, err
	}
	if st.center, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: fontFamily, Size: 11},
		Alignment: center,
	}); err != nil {
		return nil, nil, err
	}
	if st.muted, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: fontFamily, Size: 11, Color: "808080"},
		Alignment: center,
	}); err != nil {
		return nil, nil, err
	}
	if st.failed, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: fontFamily, Size: 11, Color: "FF0000"},
		Alignment: center,
	}); err != nil {
		return nil, nil, err
	}
	return f, &st, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func setWidths(f *excelize.File, sheet string, widths []float64) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// History renders the raw status history with embedded photos.
func (x *Exporter) History(events []model.StatusEvent) (*excelize.File, error) {
	f, st, err := newWorkbook(HistorySheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create workbook: %w", err)
	}
	sheet := HistorySheet

	for _, cols := range []string{"A:E", "G:G"} {
		if err := f.SetColStyle(sheet, cols, st.center); err != nil {
			return nil, err
		}
	}
	headers := []string{"Id", "Code", "Name", "State", "Operation", "Description", "Image", "Datetime"}
	if err := writeHeader(f, sheet, headers, st.header); err != nil {
		return nil, err
	}

	for i, e := range events {
		row := i + 2
		if err := f.SetRowHeight(sheet, row, 70); err != nil {
			return nil, err
		}
		var ts string
		if e.Datetime != nil {
			ts = e.Datetime.In(x.loc).Format(timeLayout)
		}
		if err := setRow(f, sheet, row, e.ID, e.Code, e.Name, e.State, e.Operation, e.Description, nil, ts); err != nil {
			return nil, err
		}
		if err := x.writeImage(f, st, sheet, row, e.Image); err != nil {
			return nil, err
		}
	}

	if err := setWidths(f, sheet, []float64{8, 15, 15, 15, 15, 15, 15, 18}); err != nil {
		return nil, err
	}
	return f, nil
}

// writeImage embeds the photo of an event in column G, or writes a note when
// the photo is missing or cannot be embedded.
func (x *Exporter) writeImage(f *excelize.File, st *styles, sheet string, row int, ref string) error {
	cell, err := excelize.CoordinatesToCellName(7, row)
	if err != nil {
		return err
	}

	path := ""
	if ref != "" && x.images != nil {
		path = x.images.Resolve(ref)
	}
	if path == "" {
		return note(f, sheet, cell, "No image", st.muted)
	}
	if _, err := os.Stat(path); err != nil {
		return note(f, sheet, cell, "No image", st.muted)
	}

	opts := &excelize.GraphicOptions{OffsetX: 8, OffsetY: 5}
	if w, h, ok := imageSize(path); ok {
		opts.ScaleX = float64(imageWidth) / float64(w)
		opts.ScaleY = float64(imageHeight) / float64(h)
	} else {
		opts.AutoFit = true
	}
	if err := f.AddPicture(sheet, cell, path, opts); err != nil {
		log.Printf("Warning: could not embed image %s: %v", path, err)
		return note(f, sheet, cell, "Error: "+err.Error(), st.failed)
	}
	return nil
}

func note(f *excelize.File, sheet, cell, text string, style int) error {
	if err := f.SetCellValue(sheet, cell, text); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, style)
}

func imageSize(path string) (int, int, bool) {
	r, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer r.Close()
	cfg, _, err := image.DecodeConfig(r)
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// DowntimeDetail renders one row per interval.
func (x *Exporter) DowntimeDetail(intervals []downtime.Interval) (*excelize.File, error) {
	f, st, err := newWorkbook(DowntimeDetailSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create workbook: %w", err)
	}
	sheet := DowntimeDetailSheet

	if err := f.SetColStyle(sheet, "A:F", st.center); err != nil {
		return nil, err
	}
	headers := []string{"Code", "Operation", "State", "From", "To", "Duration (minutes)"}
	if err := writeHeader(f, sheet, headers, st.header); err != nil {
		return nil, err
	}
	for i, iv := range intervals {
		row := i + 2
		if err := f.SetRowHeight(sheet, row, 25); err != nil {
			return nil, err
		}
		if err := setRow(f, sheet, row, iv.Code, iv.Operation, iv.State,
			iv.FromTime.In(x.loc).Format(timeLayout), iv.ToTime.In(x.loc).Format(timeLayout), iv.DurationMinutes); err != nil {
			return nil, err
		}
	}
	if err := setWidths(f, sheet, []float64{15, 15, 15, 20, 20, 18}); err != nil {
		return nil, err
	}
	return f, nil
}

// DowntimeSummary renders one row per (code, operation, state) total.
func (x *Exporter) DowntimeSummary(summaries []downtime.Summary) (*excelize.File, error) {
	f, st, err := newWorkbook(DowntimeSummarySheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create workbook: %w", err)
	}
	sheet := DowntimeSummarySheet

	if err := f.SetColStyle(sheet, "A:D", st.center); err != nil {
		return nil, err
	}
	headers := []string{"Code", "Operation", "State", "Total Minutes"}
	if err := writeHeader(f, sheet, headers, st.header); err != nil {
		return nil, err
	}
	for i, s := range summaries {
		row := i + 2
		if err := f.SetRowHeight(sheet, row, 25); err != nil {
			return nil, err
		}
		if err := setRow(f, sheet, row, s.Code, s.Operation, s.State, s.TotalMinutes); err != nil {
			return nil, err
		}
	}
	if err := setWidths(f, sheet, []float64{15, 15, 15, 18}); err != nil {
		return nil, err
	}
	return f, nil
}

// Write serialises the workbook to w and closes it.
func Write(w io.Writer, f *excelize.File) error {
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
