package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mkraft/subsync/internal/domain"
	"github.com/mkraft/subsync/internal/logger"
	"github.com/mkraft/subsync/internal/service"
)

// JobHandler exposes the migration job endpoints.
type JobHandler struct {
	svc       *service.MigrationService
	fetcher   *service.FileFetcher
	maxUpload int64
}

// NewJobHandler creates a new job handler. fetcher may be nil to disable
// file_url submissions.
func NewJobHandler(svc *service.MigrationService, fetcher *service.FileFetcher, maxUpload int64) *JobHandler {
	return &JobHandler{
		svc:       svc,
		fetcher:   fetcher,
		maxUpload: maxUpload,
	}
}

// CreateJob handles POST /api/v1/jobs. The source file arrives either as a
// multipart "file" part or as a "file_url" form value.
func (h *JobHandler) CreateJob(c *gin.Context) {
	ctx := c.Request.Context()

	startedBy := c.PostForm("started_by")
	if startedBy == "" {
		startedBy = c.GetHeader("X-Started-By")
	}
	if startedBy == "" {
		startedBy = "unknown"
	}

	simulate, _ := strconv.ParseBool(c.DefaultPostForm("simulate", "false"))

	data, err := h.readSource(c)
	if err != nil {
		logger.CtxWarn(ctx, "Rejected job submission: client_ip=%s, error=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.svc.StartJob(ctx, data, startedBy, &service.StartOptions{Simulate: simulate})
	if err != nil {
		if errors.Is(err, service.ErrEmptyFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": id})
}

func (h *JobHandler) readSource(c *gin.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("file")
	if err == nil {
		if h.maxUpload > 0 && fileHeader.Size > h.maxUpload {
			return nil, errors.New("file exceeds the upload size limit")
		}
		f, err := fileHeader.Open()
		if err != nil {
			return nil, errors.New("failed to open uploaded file")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, errors.New("failed to read uploaded file")
		}
		return data, nil
	}

	if url := c.PostForm("file_url"); url != "" && h.fetcher != nil {
		return h.fetcher.Fetch(c.Request.Context(), url)
	}

	return nil, errors.New("file is required")
}

// GetJob handles GET /api/v1/jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	view := h.svc.GetStatus(c.Param("id"))
	if view.Status == domain.JobStatusNotFound {
		c.JSON(http.StatusNotFound, view)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListJobs handles GET /api/v1/jobs.
func (h *JobHandler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.svc.List()})
}

// CancelJob handles POST /api/v1/jobs/:id/cancel. Cancellation is always
// acknowledged, including for terminal or unknown jobs; the runner honors
// the flag at its next between-rows check.
func (h *JobHandler) CancelJob(c *gin.Context) {
	h.svc.Cancel(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}

// PauseJob handles POST /api/v1/jobs/:id/pause. The flag only changes the
// reported status; processing continues.
func (h *JobHandler) PauseJob(c *gin.Context) {
	h.svc.SetPaused(c.Param("id"), true)
	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}

// ResumeJob handles POST /api/v1/jobs/:id/resume.
func (h *JobHandler) ResumeJob(c *gin.Context) {
	h.svc.SetPaused(c.Param("id"), false)
	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}

// GetReport handles GET /api/v1/jobs/:id/report, streaming the persisted
// run report. Reports exist only once a job has completed or been cancelled.
func (h *JobHandler) GetReport(c *gin.Context) {
	id := c.Param("id")
	rc, err := h.svc.Report(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not available"})
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read report"})
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+id+".csv")
	c.Data(http.StatusOK, "text/csv", data)
}
