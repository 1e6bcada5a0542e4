package service

import (
	"net/http"

	"github.com/The-Clarity-Projekt/chat-client/internal/client"
	"github.com/The-Clarity-Projekt/chat-client/internal/config"
	"github.com/The-Clarity-Projekt/chat-client/internal/model"
	"github.com/The-Clarity-Projekt/chat-client/internal/source"
)

// SourceFactory builds per-batch source clients from job payloads. Both the
// trigger (for its pre-flight probe) and the worker use it so they talk to
// the same servers.
type SourceFactory struct {
	panoptoHostFormat string
	canvasHostFormat  string
	extractor         source.AudioExtractor
	httpClient        *http.Client
}

func NewSourceFactory(cfg *config.IngestConfig, extractor source.AudioExtractor) *SourceFactory {
	return &SourceFactory{
		panoptoHostFormat: cfg.PanoptoHostFormat,
		canvasHostFormat:  cfg.CanvasHostFormat,
		extractor:         extractor,
	}
}

// WithHTTPClient overrides the transport used by every built client
func (f *SourceFactory) WithHTTPClient(c *http.Client) *SourceFactory {
	f.httpClient = c
	return f
}

// PanoptoURL is the direct server URL for a tenant
func (f *SourceFactory) PanoptoURL(tenant string) string {
	return client.PanoptoServerURL(f.panoptoHostFormat, tenant)
}

// CanvasURL is the API root for a tenant
func (f *SourceFactory) CanvasURL(tenant string) string {
	return client.CanvasServerURL(f.canvasHostFormat, tenant)
}

// Panopto builds the direct source for a payload
func (f *SourceFactory) Panopto(p model.PanoptoJobPayload) source.Source {
	serverURL := p.ServerURL
	if serverURL == "" {
		serverURL = f.PanoptoURL(p.Tenant)
	}
	return client.NewPanoptoClient(client.PanoptoOptions{
		Tenant:     p.Tenant,
		AuthToken:  p.AuthToken,
		ServerURL:  serverURL,
		FolderID:   p.FolderID,
		HTTPClient: f.httpClient,
		Extractor:  f.extractor,
	})
}

// Canvas builds the course-mediated source for a payload
func (f *SourceFactory) Canvas(p model.CanvasJobPayload) source.Source {
	serverURL := p.ServerURL
	if serverURL == "" {
		serverURL = f.CanvasURL(p.Tenant)
	}
	return client.NewCanvasClient(client.CanvasOptions{
		Tenant:         p.Tenant,
		AuthToken:      p.AuthToken,
		ServerURL:      serverURL,
		CourseID:       p.CourseID,
		IncludeContent: p.IncludeContent,
		HTTPClient:     f.httpClient,
		Extractor:      f.extractor,
	})
}
