package model

import "time"

// Job represents a background ingest batch
type Job struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"` // "panopto" or "canvas"
	Tenant         string     `json:"tenant"`
	Status         JobStatus  `json:"status"`
	CurrentStep    string     `json:"currentStep,omitempty"`
	Error          *string    `json:"error,omitempty"`
	Processed      []string   `json:"processed"`
	Skipped        []string   `json:"skipped"`
	ProcessedCount int        `json:"processedCount"`
	SkippedCount   int        `json:"skippedCount"`
	CreatedAt      time.Time  `json:"createdAt"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// Job types
const (
	JobTypePanopto = "panopto"
	JobTypeCanvas  = "canvas"
)

// PanoptoJobPayload contains the data for a direct Panopto batch
type PanoptoJobPayload struct {
	Tenant    string `json:"tenant"`
	AuthToken string `json:"authToken"`
	FolderID  string `json:"folderId,omitempty"`
	ServerURL string `json:"serverUrl,omitempty"`
}

// CanvasJobPayload contains the data for a Canvas-mediated batch
type CanvasJobPayload struct {
	Tenant         string `json:"tenant"`
	AuthToken      string `json:"authToken"`
	CourseID       string `json:"courseId,omitempty"`
	IncludeContent bool   `json:"includeContent"`
	ServerURL      string `json:"serverUrl,omitempty"`
}

// ItemResult is the outcome of one video or course item within a batch
type ItemResult struct {
	Identifier string  `json:"identifier"`
	Title      string  `json:"title"`
	Outcome    Outcome `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
}

// BatchSummary is the outcome of a whole batch in listing order
type BatchSummary struct {
	Processed []string `json:"processed"`
	Skipped   []string `json:"skipped"`
}
