package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/The-Clarity-Projekt/chat-client/internal/config"
	"github.com/The-Clarity-Projekt/chat-client/internal/model"
	"golang.org/x/time/rate"
)

// GroqClient handles communication with the Groq Whisper API
type GroqClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	limiter    *rate.Limiter
}

// TranscriptionResponse is the JSON body returned by /audio/transcriptions
type TranscriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// NewGroqClient creates a new Groq API client
func NewGroqClient(cfg *config.GroqConfig) *GroqClient {
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return &GroqClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		limiter: limiter,
	}
}

// Transcribe uploads an audio payload and returns the transcript text
func (c *GroqClient) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if !c.IsConfigured() {
		return "", model.Errorf(model.KindConfigurationMissing, "transcribe", "GROQ_API_KEY is not set")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", model.NewError(model.KindTranscriptionFailure, "transcribe", err)
		}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := w.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("failed to write format field: %w", err)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("failed to copy audio: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", model.NewError(model.KindTranscriptionFailure, "transcribe", fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", model.NewError(model.KindTranscriptionFailure, "transcribe", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", model.Errorf(model.KindTranscriptionFailure, "transcribe",
			"groq API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 512))
	}

	var result TranscriptionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", model.NewError(model.KindTranscriptionFailure, "transcribe", fmt.Errorf("failed to unmarshal response: %w", err))
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", model.Errorf(model.KindTranscriptionFailure, "transcribe", "empty transcript")
	}
	return text, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *GroqClient) IsConfigured() bool {
	return c.apiKey != ""
}
