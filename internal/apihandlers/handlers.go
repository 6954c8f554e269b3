package apihandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"vidsum/internal/app"
	"vidsum/internal/models"
)

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(a *app.App) *APIHandler {
	return &APIHandler{App: a}
}

// SubmitJobResponse is returned by POST /jobs on successful handoff.
type SubmitJobResponse struct {
	JobID string `json:"job_id"`
}

// SubmitJobHandler accepts a multipart upload ("file" field) and starts a
// job for it. The pipeline itself runs detached; only configuration and
// input problems surface here.
func (h *APIHandler) SubmitJobHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file upload: "+err.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, "unreadable file upload: "+err.Error())
		return
	}
	defer file.Close()

	id, err := h.App.Jobs.Submit(c.Request.Context(), file, fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEmptyUpload), errors.Is(err, models.ErrValidation):
			BadRequest(c, err.Error())
		case errors.Is(err, models.ErrConfig):
			Internal(c, err.Error())
		default:
			log.Errorf("submit job: %v", err)
			Internal(c, "failed to start job: "+err.Error())
		}
		return
	}

	c.JSON(http.StatusAccepted, SubmitJobResponse{JobID: id})
}

// JobStatusHandler returns a point-in-time snapshot of one job.
func (h *APIHandler) JobStatusHandler(c *gin.Context) {
	job, err := h.App.Jobs.Status(c.Param("id"))
	if err != nil {
		NotFound(c, "unknown job id")
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobsHandler returns snapshots of every known job, newest first.
func (h *APIHandler) ListJobsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.App.Jobs.List()})
}

// CancelJobHandler flags a job for best-effort cancellation.
func (h *APIHandler) CancelJobHandler(c *gin.Context) {
	id := c.Param("id")
	if err := h.App.Jobs.Cancel(id); err != nil {
		NotFound(c, "unknown job id")
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": id, "cancelled": true})
}

// JobEventsHandler streams the job's event log as server-sent events, one
// JSON record per line, until the final done event has been delivered. The
// underlying feed polls the log at a fixed interval, so a quiet stretch just
// idles the connection.
func (h *APIHandler) JobEventsHandler(c *gin.Context) {
	events, err := h.App.Jobs.Events(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "unknown job id")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		data, err := json.Marshal(ev)
		if err != nil {
			log.Errorf("marshal event: %v", err)
			return false
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		return true
	})
}
