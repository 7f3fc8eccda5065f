package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/models"
	"github.com/your-org/vsconsole/internal/streams"
	"github.com/your-org/vsconsole/pkg/dto"
)

type CameraHandler struct {
	cameras  *backend.CameraService
	registry *streams.Registry
	audit    Auditor
}

func NewCameraHandler(cameras *backend.CameraService, registry *streams.Registry, audit Auditor) *CameraHandler {
	return &CameraHandler{cameras: cameras, registry: registry, audit: audit}
}

func (h *CameraHandler) List(c *gin.Context) {
	active, ok := queryBool(c, "active")
	if !ok {
		return
	}
	cams, err := h.cameras.ListCameras(c.Request.Context(), active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cameras": cams, "total": len(cams)})
}

func (h *CameraHandler) Get(c *gin.Context) {
	cam, err := h.cameras.GetCamera(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cam)
}

func (h *CameraHandler) Create(c *gin.Context) {
	var req dto.CameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	cam, err := h.cameras.CreateCamera(c.Request.Context(), cameraInput(req))
	record(c, h.audit, "camera.create", req.CameraID, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cam)
}

func (h *CameraHandler) Update(c *gin.Context) {
	var req dto.CameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	id := c.Param("id")
	cam, err := h.cameras.UpdateCamera(c.Request.Context(), id, cameraInput(req))
	record(c, h.audit, "camera.update", id, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cam)
}

func (h *CameraHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	err := h.cameras.DeleteCamera(c.Request.Context(), id)
	record(c, h.audit, "camera.delete", id, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CameraHandler) Streams(c *gin.Context) {
	snap := h.registry.Snapshot()
	c.JSON(http.StatusOK, dto.StreamsResponse{Streams: snap, Total: len(snap)})
}

func (h *CameraHandler) RefreshStreams(c *gin.Context) {
	if err := h.registry.Refresh(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	h.Streams(c)
}

func (h *CameraHandler) StartStream(c *gin.Context) {
	id := c.Param("id")
	cam, err := h.cameras.GetCamera(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if cam.CameraID == "" {
		cam.CameraID = id
	}

	jobID, err := h.registry.Start(c.Request.Context(), cam)
	record(c, h.audit, "stream.start", id, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.StartStreamResponse{CameraID: id, JobID: jobID})
}

func (h *CameraHandler) StopStream(c *gin.Context) {
	id := c.Param("id")
	err := h.registry.Stop(c.Request.Context(), id)
	record(c, h.audit, "stream.stop", id, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CameraHandler) StreamStatus(c *gin.Context) {
	status, err := h.cameras.StreamStatus(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func cameraInput(req dto.CameraRequest) backend.CameraInput {
	return backend.CameraInput{
		CameraID:    req.CameraID,
		Name:        req.Name,
		SourceType:  models.SourceType(req.SourceType),
		StreamURL:   req.StreamURL,
		VideoPath:   req.VideoPath,
		Location:    req.Location,
		Description: req.Description,
		Lat:         req.Lat,
		Lon:         req.Lon,
		IsActive:    req.IsActive,
		ConfigText:  req.ConfigText,
		Config:      req.Config,
	}
}
