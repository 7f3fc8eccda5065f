package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/models"
	"github.com/your-org/vsconsole/pkg/dto"
)

// maxImageSize bounds an image search upload held in memory.
const maxImageSize = 20 << 20

type JobHandler struct {
	query   *backend.QueryService
	storage *backend.StorageService
	cameras *backend.CameraService
	audit   Auditor
}

func NewJobHandler(client *backend.Client, audit Auditor) *JobHandler {
	return &JobHandler{query: client.Query, storage: client.Storage, cameras: client.Cameras, audit: audit}
}

func (h *JobHandler) List(c *gin.Context) {
	page, ok := queryInt(c, "page", 0)
	if !ok {
		return
	}
	size, ok := queryInt(c, "size", 10)
	if !ok {
		return
	}

	result, err := h.query.ListJobs(c.Request.Context(), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get returns the job and the camera list in one round trip. A failed
// camera fetch only costs the map, so it is logged and left empty.
func (h *JobHandler) Get(c *gin.Context) {
	jobID := c.Param("id")

	var (
		job     models.Job
		cameras []models.Camera
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		job, err = h.query.GetJob(ctx, jobID)
		return err
	})
	g.Go(func() error {
		var err error
		cameras, err = h.cameras.ListCameras(ctx, nil)
		if err != nil && ctx.Err() == nil {
			slog.Warn("load cameras for job detail", "job_id", jobID, "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		respondError(c, err)
		return
	}

	if cameras == nil {
		cameras = []models.Camera{}
	}
	c.JSON(http.StatusOK, dto.JobDetailResponse{Job: job, Cameras: cameras})
}

func (h *JobHandler) SearchText(c *gin.Context) {
	var req dto.SearchTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	search := backend.SearchRequest{Text: req.Text, DurationSeconds: req.DurationSeconds}
	if req.Timestamp != nil {
		search.Timestamp = *req.Timestamp
	}
	res, err := h.query.SearchText(c.Request.Context(), search)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

// SearchImage expects a multipart form with an "image" file and optional
// "timestamp" (RFC 3339) and "duration_seconds" fields.
func (h *JobHandler) SearchImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image file is required")
		return
	}
	if fh.Size > maxImageSize {
		badRequest(c, "image file is too large")
		return
	}
	search, ok := searchWindow(c)
	if !ok {
		return
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, "read image: "+err.Error())
		return
	}
	defer f.Close()

	res, err := h.query.SearchImage(c.Request.Context(), backend.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        f,
	}, search)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

// Upload streams a video to the storage service. Form fields: "file",
// "camera_id", and optional "video_id", "timestamp_start", "media_name".
func (h *JobHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "video file is required")
		return
	}
	cameraID := strings.TrimSpace(c.PostForm("camera_id"))

	meta := backend.VideoMetadata{
		VideoID:   strings.TrimSpace(c.PostForm("video_id")),
		CameraID:  cameraID,
		MediaName: c.PostForm("media_name"),
	}
	if meta.VideoID == "" && cameraID != "" {
		meta.VideoID = backend.DefaultVideoID(cameraID, time.Now())
	}
	if raw := c.PostForm("timestamp_start"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "invalid timestamp_start")
			return
		}
		meta.TimestampStart = ts
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, "read video: "+err.Error())
		return
	}
	defer f.Close()

	res, err := h.storage.UploadVideo(c.Request.Context(), backend.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        f,
	}, meta)
	record(c, h.audit, "video.upload", meta.VideoID, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

func searchWindow(c *gin.Context) (backend.SearchRequest, bool) {
	var req backend.SearchRequest
	if raw := c.PostForm("timestamp"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "invalid timestamp")
			return req, false
		}
		req.Timestamp = ts
	}
	if raw := c.PostForm("duration_seconds"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			badRequest(c, "invalid duration_seconds")
			return req, false
		}
		req.DurationSeconds = d
	}
	return req, true
}
