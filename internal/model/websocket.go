package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeItem     = "item"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a progress update
type WSProgressMessage struct {
	Type           string    `json:"type"`
	JobID          string    `json:"jobId"`
	Status         JobStatus `json:"status"`
	CurrentStep    string    `json:"currentStep,omitempty"`
	ProcessedCount int       `json:"processedCount"`
	SkippedCount   int       `json:"skippedCount"`
}

// WSItemMessage reports the outcome of one video or course item
type WSItemMessage struct {
	Type   string     `json:"type"`
	JobID  string     `json:"jobId"`
	Result ItemResult `json:"result"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type   string      `json:"type"`
	JobID  string      `json:"jobId"`
	Result interface{} `json:"result"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
