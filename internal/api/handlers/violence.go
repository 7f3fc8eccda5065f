package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/incidents"
	"github.com/your-org/vsconsole/internal/models"
	"github.com/your-org/vsconsole/pkg/dto"
)

// EvidenceSource returns evidence bytes and their content type.
type EvidenceSource interface {
	Get(ctx context.Context, path string) ([]byte, string, error)
}

type ViolenceHandler struct {
	violence  *backend.ViolenceService
	incidents *incidents.Service
	evidence  EvidenceSource
	audit     Auditor
}

func NewViolenceHandler(violence *backend.ViolenceService, inc *incidents.Service, evidence EvidenceSource, audit Auditor) *ViolenceHandler {
	return &ViolenceHandler{violence: violence, incidents: inc, evidence: evidence, audit: audit}
}

// --- Detection cameras ---

func (h *ViolenceHandler) ListCameras(c *gin.Context) {
	cams, err := h.violence.ListCameras(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cameras": cams, "total": len(cams)})
}

func (h *ViolenceHandler) GetCamera(c *gin.Context) {
	cam, err := h.violence.GetCamera(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cam)
}

func (h *ViolenceHandler) RegisterCamera(c *gin.Context) {
	var req dto.RegisterViolenceCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	cam, err := h.violence.RegisterCamera(c.Request.Context(), backend.RegisterViolenceCamera{
		CameraID:    req.CameraID,
		URL:         req.URL,
		IsDetection: req.IsDetection,
	})
	record(c, h.audit, "violence_camera.register", req.CameraID, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cam)
}

func (h *ViolenceHandler) UpdateCamera(c *gin.Context) {
	var req dto.UpdateViolenceCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	id := c.Param("id")
	cam, err := h.violence.UpdateCamera(c.Request.Context(), id, backend.UpdateViolenceCamera{
		CameraID: id,
		URL:      req.URL,
		IsActive: req.IsActive,
	})
	record(c, h.audit, "violence_camera.update", id, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cam)
}

func (h *ViolenceHandler) DeleteCamera(c *gin.Context) {
	id := c.Param("id")
	err := h.violence.DeleteCamera(c.Request.Context(), id)
	record(c, h.audit, "violence_camera.delete", id, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ViolenceHandler) StartDetection(c *gin.Context) {
	h.toggle(c, "start", h.violence.StartDetection)
}

func (h *ViolenceHandler) StopDetection(c *gin.Context) {
	h.toggle(c, "stop", h.violence.StopDetection)
}

func (h *ViolenceHandler) toggle(c *gin.Context, action string, fn func(context.Context, string) (models.ViolenceCamera, error)) {
	id := c.Param("id")
	cam, err := fn(c.Request.Context(), id)
	record(c, h.audit, "violence_camera."+action, id, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cam)
}

// --- Incidents ---

func (h *ViolenceHandler) ListIncidents(c *gin.Context) {
	limit, ok := queryInt(c, "limit", backend.DefaultIncidentLimit)
	if !ok {
		return
	}
	items, err := h.incidents.List(c.Request.Context(), c.Query("camera_id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incidentList(items))
}

func (h *ViolenceHandler) GetIncident(c *gin.Context) {
	id, ok := incidentID(c)
	if !ok {
		return
	}
	inc, err := h.incidents.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incident": incidentResponse(inc)})
}

func (h *ViolenceHandler) ReviewIncident(c *gin.Context) {
	id, ok := incidentID(c)
	if !ok {
		return
	}
	err := h.incidents.Review(c.Request.Context(), id)
	record(c, h.audit, "incident.review", strconv.FormatInt(id, 10), err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ViolenceHandler) DeleteIncident(c *gin.Context) {
	id, ok := incidentID(c)
	if !ok {
		return
	}
	err := h.incidents.Delete(c.Request.Context(), id)
	record(c, h.audit, "incident.delete", strconv.FormatInt(id, 10), err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteIncidentRange removes a camera's incidents between start_time and
// end_time (RFC 3339) and returns that camera's remaining incidents, up to
// limit.
func (h *ViolenceHandler) DeleteIncidentRange(c *gin.Context) {
	cameraID := c.Query("camera_id")
	limit, ok := queryInt(c, "limit", backend.DefaultIncidentLimit)
	if !ok {
		return
	}
	start, err := time.Parse(time.RFC3339, c.Query("start_time"))
	if err != nil {
		badRequest(c, "invalid start_time")
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end_time"))
	if err != nil {
		badRequest(c, "invalid end_time")
		return
	}

	items, err := h.incidents.DeleteRange(c.Request.Context(), cameraID, start, end, limit)
	record(c, h.audit, "incident.delete_range", cameraID, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incidentList(items))
}

func (h *ViolenceHandler) SearchFromClip(c *gin.Context) {
	var req dto.SearchClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.incidents.SearchFromClip(c.Request.Context(), req.ClipPath)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

// Evidence serves an evidence image or clip through the cache.
func (h *ViolenceHandler) Evidence(c *gin.Context) {
	data, contentType, err := h.evidence.Get(c.Request.Context(), c.Query("path"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=86400")
	c.Data(http.StatusOK, contentType, data)
}

func incidentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid incident id")
		return 0, false
	}
	return id, true
}

// evidenceLink points the browser at the console's evidence proxy.
func evidenceLink(path string) string {
	if path == "" {
		return ""
	}
	return "/v1/evidence?" + url.Values{"path": {path}}.Encode()
}

func incidentResponse(inc models.Incident) dto.IncidentResponse {
	resp := dto.IncidentResponse{
		ID:          inc.ID,
		CameraID:    inc.CameraID,
		Timestamp:   inc.Timestamp,
		Evidence:    inc.Evidence,
		EvidenceURL: evidenceLink(inc.Evidence),
		IsReviewed:  inc.IsReviewed,
	}
	for _, clip := range inc.PersonClips {
		resp.PersonClips = append(resp.PersonClips, dto.ClipResponse{
			ID:       clip.ID,
			ClipPath: clip.ClipPath,
			URL:      evidenceLink(clip.ClipPath),
		})
	}
	return resp
}

func incidentList(items []models.Incident) dto.IncidentListResponse {
	out := make([]dto.IncidentResponse, 0, len(items))
	for _, inc := range items {
		out = append(out, incidentResponse(inc))
	}
	return dto.IncidentListResponse{Incidents: out, Total: len(out)}
}
