package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/minhchien137/MachineStatusUpdate/internal/downtime"
	"github.com/minhchien137/MachineStatusUpdate/internal/export"
	"github.com/minhchien137/MachineStatusUpdate/internal/model"
	"github.com/minhchien137/MachineStatusUpdate/internal/mw"
	"github.com/minhchien137/MachineStatusUpdate/internal/parse"
	"github.com/minhchien137/MachineStatusUpdate/internal/store"
	"github.com/minhchien137/MachineStatusUpdate/internal/upload"
)

type submitStatusRequest struct {
	Code        string `form:"code"`
	State       string `form:"state"`
	Description string `form:"description"`
}

func reject(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// SubmitStatus handles POST /api/status with a multipart form.
func (h *Handler) SubmitStatus(c *gin.Context) {
	var req submitStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		mw.RecordSubmission(mw.SubmissionRejected)
		reject(c, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.State) == "" {
		mw.RecordSubmission(mw.SubmissionRejected)
		reject(c, http.StatusBadRequest, "Please fill in all required fields.")
		return
	}

	ctx := c.Request.Context()
	machine, err := h.store.FindMachine(ctx, req.Code)
	if err != nil {
		log.Printf("Error looking up machine %q: %v", req.Code, err)
		mw.RecordSubmission(mw.SubmissionFailed)
		reject(c, http.StatusInternalServerError, "An error occurred: "+err.Error())
		return
	}
	if machine == nil {
		mw.RecordSubmission(mw.SubmissionRejected)
		reject(c, http.StatusBadRequest, "This machine code does not exist in the system.")
		return
	}

	var imageRef string
	fh, err := c.FormFile("imageFile")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		mw.RecordSubmission(mw.SubmissionRejected)
		reject(c, http.StatusBadRequest, err.Error())
		return
	case fh.Size > 0:
		imageRef, err = h.images.Save(fh)
		if err != nil {
			h.rejectImage(c, err)
			return
		}
	}

	now := h.now().UTC()
	event := model.StatusEvent{
		Code:        req.Code,
		Name:        parse.DisplayName(req.Code),
		State:       req.State,
		Operation:   machine.Project,
		Description: req.Description,
		Image:       imageRef,
		Datetime:    &now,
	}
	if err := h.store.InsertEvent(ctx, &event); err != nil {
		log.Printf("Error saving status for %s: %v", event.Code, err)
		if imageRef != "" {
			if rmErr := h.images.Remove(imageRef); rmErr != nil {
				log.Printf("Warning: could not remove image %s: %v", imageRef, rmErr)
			}
		}
		mw.RecordSubmission(mw.SubmissionFailed)
		reject(c, http.StatusInternalServerError, "An error occurred: "+err.Error())
		return
	}

	mw.RecordSubmission(mw.SubmissionAccepted)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Status saved successfully!", "data": event})
}

func (h *Handler) rejectImage(c *gin.Context, err error) {
	switch {
	case errors.Is(err, upload.ErrUnsupportedExtension):
		mw.RecordSubmission(mw.SubmissionRejected)
		exts := strings.ReplaceAll(strings.Join(h.images.AllowedExtensions(), ", "), ".", "")
		reject(c, http.StatusBadRequest, "Only images of these types can be uploaded: "+exts)
	case errors.Is(err, upload.ErrTooLarge):
		mw.RecordSubmission(mw.SubmissionRejected)
		reject(c, http.StatusBadRequest, fmt.Sprintf("Image size must not exceed %dMB", h.images.MaxBytes()/(1024*1024)))
	default:
		log.Printf("Error storing image: %v", err)
		mw.RecordSubmission(mw.SubmissionFailed)
		reject(c, http.StatusInternalServerError, "An error occurred: "+err.Error())
	}
}

type validateCodeRequest struct {
	Code string `json:"code"`
}

// ValidateCode reports whether a machine code exists. Lookup failures and
// malformed bodies report false.
func (h *Handler) ValidateCode(c *gin.Context) {
	var req validateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		c.JSON(http.StatusOK, gin.H{"exists": false})
		return
	}

	machine, err := h.store.FindMachine(c.Request.Context(), req.Code)
	if err != nil {
		log.Printf("Error validating code %q: %v", req.Code, err)
		c.JSON(http.StatusOK, gin.H{"exists": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": machine != nil})
}

type pageResponse struct {
	Items           []model.StatusEvent `json:"items"`
	Page            int                 `json:"page"`
	PageSize        int                 `json:"pageSize"`
	TotalPages      int                 `json:"totalPages"`
	TotalRecords    int                 `json:"totalRecords"`
	HasPreviousPage bool                `json:"hasPreviousPage"`
	HasNextPage     bool                `json:"hasNextPage"`
	Filters         filters             `json:"filters"`
	Error           string              `json:"error,omitempty"`
}

// fetchHistory loads the events matching req in calendar-date mode.
func (h *Handler) fetchHistory(c *gin.Context, req filterRequest, descending bool) ([]model.StatusEvent, error) {
	f := h.filter(req, downtime.DateModeCalendar)
	since, until := f.Bounds()
	events, err := h.store.FetchEvents(c.Request.Context(), store.EventQuery{Since: since, Until: until, Descending: descending})
	if err != nil {
		return nil, err
	}
	return f.Apply(events), nil
}

// ListStatus handles GET /api/status.
func (h *Handler) ListStatus(c *gin.Context) {
	req, ok := bindFilter(c)
	if !ok {
		return
	}
	page, pageSize := h.paging(req)

	events, err := h.fetchHistory(c, req, true)
	if err != nil {
		log.Printf("Error listing status history: %v", err)
		c.JSON(http.StatusInternalServerError, pageResponse{
			Items:    []model.StatusEvent{},
			Page:     1,
			PageSize: pageSize,
			Filters:  req.echo(),
			Error:    "Failed to load status history: " + err.Error(),
		})
		return
	}

	total := len(events)
	totalPages := (total + pageSize - 1) / pageSize
	start := total
	if page <= totalPages {
		start = (page - 1) * pageSize
	}
	end := min(start+pageSize, total)

	c.JSON(http.StatusOK, pageResponse{
		Items:           events[start:end],
		Page:            page,
		PageSize:        pageSize,
		TotalPages:      totalPages,
		TotalRecords:    total,
		HasPreviousPage: page > 1,
		HasNextPage:     page < totalPages,
		Filters:         req.echo(),
	})
}

func (h *Handler) paging(req filterRequest) (int, int) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = h.reports.DefaultPageSize
	}
	if pageSize < 1 {
		pageSize = 25
	}
	maxSize := h.reports.MaxPageSize
	if maxSize < 1 {
		maxSize = 500
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}

// ExportStatus handles GET /api/status/export.
func (h *Handler) ExportStatus(c *gin.Context) {
	req, ok := bindFilter(c)
	if !ok {
		return
	}
	events, err := h.fetchHistory(c, req, false)
	if err != nil {
		log.Printf("Error exporting status history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load status history"})
		return
	}
	f, err := h.exporter.History(events)
	sendWorkbook(c, export.HistoryFileName, f, err)
}
