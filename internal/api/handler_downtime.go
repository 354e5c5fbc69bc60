package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minhchien137/MachineStatusUpdate/internal/downtime"
	"github.com/minhchien137/MachineStatusUpdate/internal/export"
	"github.com/minhchien137/MachineStatusUpdate/internal/mw"
	"github.com/minhchien137/MachineStatusUpdate/internal/store"
)

type reportResponse struct {
	Items         any     `json:"items"`
	Filters       filters `json:"filters"`
	GroupedByCode bool    `json:"groupedByCode"`
	Error         string  `json:"error,omitempty"`
}

// intervals derives the downtime intervals for req in timestamp mode.
func (h *Handler) intervals(c *gin.Context, req filterRequest) ([]downtime.Interval, error) {
	f := h.filter(req, downtime.DateModeTimestamp)
	since, until := f.Bounds()
	events, err := h.store.FetchEvents(c.Request.Context(), store.EventQuery{Since: since, Until: until})
	if err != nil {
		return nil, err
	}
	out := downtime.Derive(f.Apply(events), downtime.Options{GroupByCode: h.groupByCode(req)})
	mw.RecordIntervals(len(out))
	return out, nil
}

func (h *Handler) reportError(c *gin.Context, req filterRequest, report string, empty any, err error) {
	log.Printf("Error building %s: %v", report, err)
	c.JSON(http.StatusInternalServerError, reportResponse{
		Items:         empty,
		Filters:       req.echo(),
		GroupedByCode: h.groupByCode(req),
		Error:         "Failed to build " + report + ": " + err.Error(),
	})
}

// DowntimeDetail handles GET /api/downtime/detail.
func (h *Handler) DowntimeDetail(c *gin.Context) {
	req, ok := bindFilter(c)
	if !ok {
		return
	}
	intervals, err := h.intervals(c, req)
	if err != nil {
		h.reportError(c, req, "downtime detail report", []downtime.Interval{}, err)
		return
	}
	c.JSON(http.StatusOK, reportResponse{Items: intervals, Filters: req.echo(), GroupedByCode: h.groupByCode(req)})
}

// DowntimeSummary handles GET /api/downtime/summary.
func (h *Handler) DowntimeSummary(c *gin.Context) {
	req, ok := bindFilter(c)
	if !ok {
		return
	}
	intervals, err := h.intervals(c, req)
	if err != nil {
		h.reportError(c, req, "downtime summary report", []downtime.Summary{}, err)
		return
	}
	c.JSON(http.StatusOK, reportResponse{Items: downtime.Summarize(intervals), Filters: req.echo(), GroupedByCode: h.groupByCode(req)})
}

// ExportDowntimeDetail handles GET /api/downtime/detail/export.
func (h *Handler) ExportDowntimeDetail(c *gin.Context) {
	req, ok := bindFilter(c)
	if !ok {
		return
	}
	intervals, err := h.intervals(c, req)
	if err != nil {
		log.Printf("Error exporting downtime detail: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load downtime detail"})
		return
	}
	f, err := h.exporter.DowntimeDetail(downtime.RoundIntervals(intervals))
	sendWorkbook(c, export.DowntimeDetailFileName, f, err)
}

// ExportDowntimeSummary handles GET /api/downtime/summary/export.
func (h *Handler) ExportDowntimeSummary(c *gin.Context) {
	req, ok := bindFilter(c)
	if !ok {
		return
	}
	intervals, err := h.intervals(c, req)
	if err != nil {
		log.Printf("Error exporting downtime summary: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load downtime summary"})
		return
	}
	f, err := h.exporter.DowntimeSummary(downtime.RoundSummaries(downtime.Summarize(intervals)))
	sendWorkbook(c, export.DowntimeSummaryFileName, f, err)
}
