package models

type JobType string

const (
	JobTypeSearch JobType = "SEARCH"
	JobTypeUpload JobType = "UPLOAD"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether the backend will never move the job again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is the canonical job record. Timestamps are ISO-8601 strings, empty
// when the backend sent something unparseable.
type Job struct {
	JobID        string    `json:"jobId"`
	Type         JobType   `json:"type"`
	Status       JobStatus `json:"status"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	TextValue    string    `json:"textValue,omitempty"`
	CreatedAt    string    `json:"createdAt"`
	UpdatedAt    string    `json:"updatedAt,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	Frames       []Frame   `json:"frames,omitempty"`
}

// Frame is one matched frame of a job. CameraID ties it to a camera record
// for placing it on the map.
type Frame struct {
	ID        string `json:"id"`
	CameraID  string `json:"cameraId,omitempty"`
	ImageURL  string `json:"imageUrl"`
	FrameTime string `json:"frameTime"`
}

// JobPage is one page of the job listing.
type JobPage struct {
	Content       []Job `json:"content"`
	TotalElements int   `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

// SubmitResult is what the backend answers when a search or upload creates a job.
type SubmitResult struct {
	JobID   string    `json:"jobId,omitempty"`
	Status  JobStatus `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
}
