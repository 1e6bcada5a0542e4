package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/The-Clarity-Projekt/chat-client/internal/config"
	"github.com/The-Clarity-Projekt/chat-client/internal/model"
)

// AudioClient extracts audio through the audio microservice
type AudioClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewAudioClient creates a new audio extraction client
func NewAudioClient(cfg *config.AudioConfig) *AudioClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &AudioClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(cfg.ServiceURL, "/"),
	}
}

// ExtractAudio posts raw video bytes to /extract and returns the audio
// track as 16kHz mono
func (c *AudioClient) ExtractAudio(ctx context.Context, video []byte) ([]byte, error) {
	if len(video) == 0 {
		return nil, model.Errorf(model.KindSourceUnavailable, "extract audio", "empty video payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(video))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewError(model.KindSourceUnavailable, "extract audio", fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewError(model.KindSourceUnavailable, "extract audio", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, model.Errorf(model.KindSourceUnavailable, "extract audio",
			"audio service error (status %d): %s", resp.StatusCode, truncate(string(audio), 512))
	}
	if len(audio) == 0 {
		return nil, model.Errorf(model.KindSourceUnavailable, "extract audio", "audio service returned no data")
	}

	return audio, nil
}

// HealthCheck checks if the audio service is available
func (c *AudioClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("audio service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *AudioClient) IsConfigured() bool {
	return c.baseURL != ""
}
