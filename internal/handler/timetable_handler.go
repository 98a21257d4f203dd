package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/shule-ratiba-api/internal/dto"
	"github.com/noah-isme/shule-ratiba-api/pkg/errors"
	"github.com/noah-isme/shule-ratiba-api/pkg/jobs"
	"github.com/noah-isme/shule-ratiba-api/pkg/response"
)

// JobTypeGenerate identifies queued generation runs.
const JobTypeGenerate = "timetable_generate"

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableReport, error)
	ClassTimetable(ctx context.Context, classGroupID string) (*dto.ClassTimetableView, error)
	LatestReport(ctx context.Context) (*dto.TimetableReport, error)
}

// TimetableHandler exposes the timetable endpoints.
type TimetableHandler struct {
	service timetableService
	queue   *jobs.Queue
}

// NewTimetableHandler constructs the handler. A nil queue disables
// asynchronous generation.
func NewTimetableHandler(svc timetableService, queue *jobs.Queue) *TimetableHandler {
	return &TimetableHandler{service: svc, queue: queue}
}

// Register mounts the timetable routes on the given group.
func (h *TimetableHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/timetable/generate", h.Generate)
	rg.GET("/timetable/report", h.Report)
	rg.GET("/timetable/classes/:id", h.ClassTimetable)
}

// Generate runs or enqueues a timetable generation.
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.Wrap(err, errors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}

	if req.Async {
		if h.queue == nil {
			response.Error(c, errors.Clone(errors.ErrDisabled, "asynchronous generation is disabled"))
			return
		}
		runID := uuid.NewString()
		if err := h.queue.Enqueue(jobs.Job{ID: runID, Type: JobTypeGenerate, Payload: req}); err != nil {
			response.Error(c, errors.Wrap(err, errors.ErrInternal.Code, errors.ErrInternal.Status, "failed to enqueue generation run"))
			return
		}
		response.Accepted(c, dto.EnqueuedRun{RunID: runID})
		return
	}

	report, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Report returns the latest stored generation report.
func (h *TimetableHandler) Report(c *gin.Context) {
	report, err := h.service.LatestReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ClassTimetable returns one class's weekly timetable grouped by day.
func (h *TimetableHandler) ClassTimetable(c *gin.Context) {
	view, err := h.service.ClassTimetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
