package backend

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/vsconsole/internal/models"
)

// ISOLayout is the canonical timestamp rendering: UTC, millisecond precision.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// maxEpochMillis is the largest instant a browser Date can represent.
const maxEpochMillis = 8.64e15

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ToISO renders a backend timestamp as ISO-8601. Numbers and numeric strings
// are epoch seconds; other strings are parsed as dates. Anything that cannot
// be understood yields "".
func ToISO(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case json.Number:
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return ""
		}
		return epochToISO(f)
	case float64:
		return epochToISO(x)
	case int:
		return epochToISO(float64(x))
	case int64:
		return epochToISO(float64(x))
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(ISOLayout)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return ""
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToISO(f)
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Format(ISOLayout)
			}
		}
		return ""
	default:
		return ""
	}
}

func epochToISO(seconds float64) string {
	ms := math.Floor(seconds * 1000)
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxEpochMillis {
		return ""
	}
	return time.UnixMilli(int64(ms)).UTC().Format(ISOLayout)
}

// NormalizeJob maps a raw job object from the query service onto models.Job.
// Frames are only kept once the job has reached a terminal status.
func NormalizeJob(raw any) models.Job {
	m, ok := raw.(map[string]any)
	if !ok {
		return models.Job{}
	}

	job := models.Job{
		JobID:        asString(first(m, "job_id", "jobId", "id")),
		Type:         models.JobType(strings.ToUpper(asString(m["type"]))),
		Status:       models.JobStatus(strings.ToUpper(asString(m["status"]))),
		ImageURL:     asString(first(m, "image_url", "imageUrl")),
		TextValue:    asString(first(m, "text_value", "textValue")),
		CreatedAt:    ToISO(first(m, "created_at", "createdAt")),
		UpdatedAt:    ToISO(first(m, "updated_at", "updatedAt")),
		ErrorMessage: asString(first(m, "error_message", "errorMessage")),
	}

	if frames, ok := m["frames"].([]any); ok && job.Status.Terminal() {
		job.Frames = make([]models.Frame, 0, len(frames))
		for _, f := range frames {
			job.Frames = append(job.Frames, NormalizeFrame(f))
		}
	}
	return job
}

func NormalizeFrame(raw any) models.Frame {
	m, ok := raw.(map[string]any)
	if !ok {
		return models.Frame{}
	}
	return models.Frame{
		ID:        asString(first(m, "id", "frame_id", "frameId")),
		CameraID:  asString(first(m, "camera_id", "cameraId")),
		ImageURL:  asString(first(m, "image_url", "imageUrl")),
		FrameTime: ToISO(first(m, "frame_time", "frameTime")),
	}
}

// NormalizeJobPage maps a paginated job listing. Listed jobs never carry frames.
func NormalizeJobPage(raw any, requestedSize int) models.JobPage {
	m, _ := unwrapData(raw).(map[string]any)

	page := models.JobPage{
		Content:       []models.Job{},
		TotalElements: asInt(first(m, "total_elements", "totalElements")),
		TotalPages:    asInt(first(m, "total_pages", "totalPages")),
		Number:        asInt(m["number"]),
		Size:          asInt(m["size"]),
	}
	if page.TotalPages == 0 {
		page.TotalPages = 1
	}
	if page.Size == 0 {
		page.Size = requestedSize
	}

	if items, ok := m["content"].([]any); ok {
		for _, item := range items {
			job := NormalizeJob(item)
			job.Frames = nil
			page.Content = append(page.Content, job)
		}
	}
	return page
}

// NormalizeSubmit extracts the job created by a search or upload submission.
func NormalizeSubmit(raw any) models.SubmitResult {
	var res models.SubmitResult
	for _, v := range []any{raw, unwrapData(raw)} {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if res.JobID == "" {
			res.JobID = asString(first(m, "jobId", "job_id", "id"))
		}
		if res.Status == "" {
			res.Status = models.JobStatus(strings.ToUpper(asString(m["status"])))
		}
		if res.Message == "" {
			res.Message = asString(m["message"])
		}
	}
	return res
}

// NormalizeCamera maps a camera record. Only the locator selected by the
// source type survives; the other one is cleared.
func NormalizeCamera(raw any) models.Camera {
	m, ok := raw.(map[string]any)
	if !ok {
		return models.Camera{}
	}

	cam := models.Camera{
		CameraID:    asString(first(m, "camera_id", "cameraId", "id")),
		Name:        asString(m["name"]),
		SourceType:  models.SourceType(strings.ToLower(asString(first(m, "source_type", "sourceType")))),
		StreamURL:   asString(first(m, "stream_url", "streamUrl")),
		VideoPath:   asString(first(m, "video_path", "videoPath")),
		Location:    asString(m["location"]),
		Description: asString(m["description"]),
		Lat:         asFloatPtr(first(m, "lat", "latitude")),
		Lon:         asFloatPtr(first(m, "lon", "lng", "longitude")),
		IsActive:    asBool(first(m, "is_active", "isActive")),
		Config:      asRawObject(m["config"]),
		CreatedAt:   ToISO(first(m, "created_at", "createdAt")),
		UpdatedAt:   ToISO(first(m, "updated_at", "updatedAt")),
	}

	if cam.SourceType == "" {
		if cam.StreamURL == "" && cam.VideoPath != "" {
			cam.SourceType = models.SourceTypeVideo
		} else {
			cam.SourceType = models.SourceTypeStream
		}
	}
	switch cam.SourceType {
	case models.SourceTypeVideo:
		cam.StreamURL = ""
	case models.SourceTypeStream:
		cam.VideoPath = ""
	}
	return cam
}

func NormalizeStreamSession(raw any) models.StreamSession {
	m, ok := raw.(map[string]any)
	if !ok {
		return models.StreamSession{}
	}
	return models.StreamSession{
		JobID:           asString(first(m, "job_id", "jobId", "id")),
		CameraID:        asString(first(m, "camera_id", "cameraId")),
		SourceType:      models.SourceType(strings.ToLower(asString(first(m, "source_type", "sourceType")))),
		StreamURL:       asString(first(m, "stream_url", "streamUrl")),
		VideoPath:       asString(first(m, "video_path", "videoPath")),
		Status:          asString(m["status"]),
		Config:          asRawObject(m["config"]),
		FramesProcessed: asInt(first(m, "frames_processed", "framesProcessed")),
		PersonsDetected: asInt(first(m, "persons_detected", "personsDetected")),
		StartedAt:       ToISO(first(m, "started_at", "startedAt")),
		EndedAt:         ToISO(first(m, "ended_at", "endedAt")),
		DurationSeconds: asFloat(first(m, "duration_seconds", "durationSeconds")),
		ErrorMessage:    asString(first(m, "error_message", "errorMessage")),
	}
}

func NormalizeViolenceCamera(raw any) models.ViolenceCamera {
	m, ok := raw.(map[string]any)
	if !ok {
		return models.ViolenceCamera{}
	}
	return models.ViolenceCamera{
		ID:          asInt64(m["id"]),
		CameraID:    asString(first(m, "camera_id", "cameraId")),
		URL:         asString(first(m, "url", "stream_url")),
		IsActive:    asBool(first(m, "is_active", "isActive")),
		IsDetection: asBool(first(m, "is_detection", "isDetection")),
		LastRun:     ToISO(first(m, "last_run", "lastRun")),
	}
}

// NormalizeIncident maps an incident record. Evidence prefers the frame
// image and falls back to the video path.
func NormalizeIncident(raw any) models.Incident {
	m, ok := raw.(map[string]any)
	if !ok {
		return models.Incident{}
	}

	inc := models.Incident{
		ID:         asInt64(first(m, "id", "frame_id", "frameId")),
		CameraID:   asString(first(m, "camera_id", "cameraId")),
		Timestamp:  ToISO(first(m, "timestamp", "detected_at", "detectedAt", "created_at")),
		Evidence:   asString(first(m, "image_path", "imagePath", "video_path", "videoPath")),
		VideoPath:  asString(first(m, "video_path", "videoPath")),
		IsReviewed: asBool(first(m, "is_reviewed", "isReviewed")),
	}

	if clips, ok := first(m, "person_clips", "personClips", "clips").([]any); ok {
		inc.PersonClips = make([]models.PersonClip, 0, len(clips))
		for _, c := range clips {
			inc.PersonClips = append(inc.PersonClips, NormalizePersonClip(c))
		}
	}
	return inc
}

func NormalizePersonClip(raw any) models.PersonClip {
	m, ok := raw.(map[string]any)
	if !ok {
		return models.PersonClip{}
	}
	return models.PersonClip{
		ID:       asInt64(first(m, "id", "clip_id", "clipId")),
		ClipPath: asString(first(m, "clip_path", "clipPath", "path")),
	}
}

// listOf returns the array carried by a response: the body itself, its
// "data" envelope, or the first of keys holding an array.
func listOf(raw any, keys ...string) []any {
	v := unwrapData(raw)
	if items, ok := v.([]any); ok {
		return items
	}
	if m, ok := v.(map[string]any); ok {
		for _, k := range keys {
			if items, ok := m[k].([]any); ok {
				return items
			}
		}
	}
	return nil
}

// first returns the value of the first key that is present and not empty.
func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v
	}
	return nil
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case json.Number:
		f, _ := x.Float64()
		return f
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f
	default:
		return 0
	}
}

func asFloatPtr(v any) *float64 {
	if v == nil {
		return nil
	}
	f := asFloat(v)
	if s, ok := v.(string); ok {
		if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return nil
		}
	}
	return &f
}

func asInt(v any) int {
	return int(asInt64(v))
}

func asInt64(v any) int64 {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	return int64(asFloat(v))
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	case nil:
		return false
	default:
		return asFloat(v) != 0
	}
}

// asRawObject re-encodes a decoded config blob. Strings holding JSON objects
// are accepted as is; anything else is dropped.
func asRawObject(v any) json.RawMessage {
	switch x := v.(type) {
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		return b
	case string:
		var obj map[string]any
		if json.Unmarshal([]byte(x), &obj) == nil {
			return json.RawMessage(x)
		}
	}
	return nil
}
