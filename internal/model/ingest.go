package model

import "time"

// PanoptoIngestRequest starts a batch directly against a Panopto tenant
type PanoptoIngestRequest struct {
	Tenant    string `json:"tenant" validate:"required,hostname_rfc1123"`
	AuthToken string `json:"authToken" validate:"required"`
	FolderID  string `json:"folderId" validate:"omitempty,max=128"`
}

// CanvasIngestRequest starts a batch through a Canvas tenant. A tenant named
// "panopto" would render content keys identical to course video keys.
type CanvasIngestRequest struct {
	Tenant    string `json:"tenant" validate:"required,hostname_rfc1123,ne=panopto"`
	AuthToken string `json:"authToken" validate:"required"`
	CourseID  string `json:"courseId" validate:"omitempty,numeric"`
	// IncludeContent defaults to true; course content is still only
	// ingested when the service has it enabled.
	IncludeContent *bool `json:"includeContent"`
}

// IngestStartResponse acknowledges a queued batch
type IngestStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// IngestStatusResponse represents the state of a batch
type IngestStatusResponse struct {
	JobID          string     `json:"jobId"`
	Type           string     `json:"type"`
	Status         JobStatus  `json:"status"`
	CurrentStep    string     `json:"currentStep,omitempty"`
	Error          *string    `json:"error"`
	Processed      []string   `json:"processed"`
	Skipped        []string   `json:"skipped"`
	ProcessedCount int        `json:"processedCount"`
	SkippedCount   int        `json:"skippedCount"`
	CreatedAt      time.Time  `json:"createdAt"`
	StartedAt      *time.Time `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt"`
}

// QueueStatusResponse reports transcription queue occupancy
type QueueStatusResponse struct {
	Pending     int `json:"pending"`
	Active      int `json:"active"`
	Concurrency int `json:"concurrency"`
}
