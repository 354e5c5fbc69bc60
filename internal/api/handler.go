package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/minhchien137/MachineStatusUpdate/config"
	"github.com/minhchien137/MachineStatusUpdate/internal/downtime"
	"github.com/minhchien137/MachineStatusUpdate/internal/export"
	"github.com/minhchien137/MachineStatusUpdate/internal/store"
	"github.com/minhchien137/MachineStatusUpdate/internal/upload"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	images   *upload.ImageStore
	exporter *export.Exporter
	reports  config.ReportsConfig
	now      func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, images *upload.ImageStore, reports config.ReportsConfig) *Handler {
	if reports.Location == nil {
		reports.Location = time.Local
	}
	return &Handler{
		store:    s,
		images:   images,
		exporter: export.NewExporter(reports.Location, images),
		reports:  reports,
		now:      time.Now,
	}
}

// filterRequest is the query string shared by listing and report endpoints.
type filterRequest struct {
	Code            string `form:"code"`
	State           string `form:"state"`
	Operation       string `form:"operation"`
	FromInsDateTime string `form:"fromInsDateTime"`
	ToInsDateTime   string `form:"toInsDateTime"`
	Page            int    `form:"page" binding:"omitempty,min=1"`
	PageSize        int    `form:"pageSize" binding:"omitempty,min=1"`
	GroupByCode     *bool  `form:"groupByCode"`
}

// filters echoes the request criteria back to the client.
type filters struct {
	Code            string `json:"code"`
	State           string `json:"state"`
	Operation       string `json:"operation"`
	FromInsDateTime string `json:"fromInsDateTime"`
	ToInsDateTime   string `json:"toInsDateTime"`
}

func (r filterRequest) echo() filters {
	return filters{
		Code:            r.Code,
		State:           r.State,
		Operation:       r.Operation,
		FromInsDateTime: r.FromInsDateTime,
		ToInsDateTime:   r.ToInsDateTime,
	}
}

func (h *Handler) filter(r filterRequest, mode downtime.DateMode) downtime.Filter {
	return downtime.NewFilter(r.Code, r.State, r.Operation, r.FromInsDateTime, r.ToInsDateTime, mode, h.reports.Location)
}

func (h *Handler) groupByCode(r filterRequest) bool {
	if r.GroupByCode != nil {
		return *r.GroupByCode
	}
	return h.reports.GroupByCode
}

// bindFilter binds the query string, writing a 400 response on failure.
func bindFilter(c *gin.Context) (filterRequest, bool) {
	var req filterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}
	return req, true
}

// sendWorkbook streams f as an xlsx attachment, or a 500 response when it
// could not be built.
func sendWorkbook(c *gin.Context, name string, f *excelize.File, err error) {
	if err != nil {
		log.Printf("Error building %s: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build workbook"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", export.ContentType)
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, f); err != nil {
		log.Printf("Error sending %s: %v", name, err)
	}
}
