package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/The-Clarity-Projekt/chat-client/internal/identifier"
	"github.com/The-Clarity-Projekt/chat-client/internal/model"
	"github.com/The-Clarity-Projekt/chat-client/internal/source"
)

// maxPanoptoPages guards against a server that never returns an empty page
const maxPanoptoPages = 500

// PanoptoOptions configures a PanoptoClient
type PanoptoOptions struct {
	Tenant     string
	AuthToken  string
	ServerURL  string
	FolderID   string
	HTTPClient *http.Client
	Extractor  source.AudioExtractor
}

// PanoptoClient talks to a Panopto server's REST API with a bearer token.
// It is the direct video source.
type PanoptoClient struct {
	httpClient *http.Client
	tenant     string
	serverURL  string
	authToken  string
	folderID   string
	extractor  source.AudioExtractor
}

// panoptoSession mirrors the session object of the Panopto REST API
type panoptoSession struct {
	ID        string  `json:"Id"`
	Name      string  `json:"Name"`
	Duration  float64 `json:"Duration"`
	StartTime string  `json:"StartTime"`
	CreatedBy struct {
		Username string `json:"Username"`
	} `json:"CreatedBy"`
	FolderDetails struct {
		ID string `json:"Id"`
	} `json:"FolderDetails"`
}

type panoptoSessionPage struct {
	Results []panoptoSession `json:"Results"`
}

// PanoptoServerURL renders the per-tenant server URL from a host format
// such as "https://%s.hosted.panopto.com".
func PanoptoServerURL(hostFormat, tenant string) string {
	return fmt.Sprintf(hostFormat, tenant)
}

// NewPanoptoClient creates a new Panopto API client
func NewPanoptoClient(opts PanoptoOptions) *PanoptoClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Minute,
		}
	}
	serverURL := opts.ServerURL
	if serverURL == "" {
		serverURL = PanoptoServerURL("https://%s.hosted.panopto.com", opts.Tenant)
	}

	return &PanoptoClient{
		httpClient: httpClient,
		tenant:     opts.Tenant,
		serverURL:  strings.TrimRight(serverURL, "/"),
		authToken:  opts.AuthToken,
		folderID:   opts.FolderID,
		extractor:  opts.Extractor,
	}
}

// Kind implements source.Source
func (c *PanoptoClient) Kind() identifier.Kind { return identifier.KindPanopto }

// Namespace implements source.Source
func (c *PanoptoClient) Namespace() string { return string(model.SourcePanopto) }

// Tenant implements source.Source
func (c *PanoptoClient) Tenant() string { return c.tenant }

// ServerURL implements source.Source
func (c *PanoptoClient) ServerURL() string { return c.serverURL }

// Probe fetches the first page of the configured listing
func (c *PanoptoClient) Probe(ctx context.Context) error {
	if _, err := c.listPage(ctx, c.folderID, 0); err != nil {
		return err
	}
	return nil
}

// Collections returns the single folder (or whole-server) collection
func (c *PanoptoClient) Collections(ctx context.Context) ([]source.Collection, error) {
	return []source.Collection{&panoptoCollection{client: c, folderID: c.folderID}}, nil
}

// ListVideos lists every session in folderID, or every session visible to
// the token when folderID is empty, in server order.
func (c *PanoptoClient) ListVideos(ctx context.Context, folderID string) ([]model.VideoRef, error) {
	var videos []model.VideoRef
	for page := 0; page < maxPanoptoPages; page++ {
		sessions, err := c.listPage(ctx, folderID, page)
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			break
		}
		for _, s := range sessions {
			videos = append(videos, c.toVideoRef(s))
		}
	}
	return videos, nil
}

// DownloadVideo fetches the podcast rendition of a session
func (c *PanoptoClient) DownloadVideo(ctx context.Context, videoID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/Panopto/Podcast/Download/%s.mp4?mediaTargetType=videoPodcast",
		c.serverURL, url.PathEscape(videoID))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, model.NewError(model.KindSourceUnavailable,
			fmt.Sprintf("download video %s", videoID), err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, model.NewError(model.KindSourceUnavailable,
			fmt.Sprintf("download video %s", videoID), fmt.Errorf("failed to read body: %w", err))
	}
	if len(data) == 0 {
		return nil, model.Errorf(model.KindSourceUnavailable,
			fmt.Sprintf("download video %s", videoID), "empty response body")
	}
	return data, nil
}

// ExtractAudio delegates to the configured extractor
func (c *PanoptoClient) ExtractAudio(ctx context.Context, video []byte) ([]byte, error) {
	if c.extractor == nil {
		return nil, model.Errorf(model.KindConfigurationMissing, "extract audio", "no audio extractor configured")
	}
	return c.extractor.ExtractAudio(ctx, video)
}

func (c *PanoptoClient) listPage(ctx context.Context, folderID string, page int) ([]panoptoSession, error) {
	q := url.Values{}
	q.Set("pageNumber", fmt.Sprintf("%d", page))

	var endpoint string
	if folderID != "" {
		q.Set("sortField", "CreatedDate")
		q.Set("sortOrder", "Asc")
		endpoint = fmt.Sprintf("%s/Panopto/api/v1/folders/%s/sessions?%s",
			c.serverURL, url.PathEscape(folderID), q.Encode())
	} else {
		q.Set("searchQuery", "*")
		endpoint = fmt.Sprintf("%s/Panopto/api/v1/sessions/search?%s", c.serverURL, q.Encode())
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, model.NewError(model.KindSourceUnavailable, "list panopto sessions", err)
	}
	defer body.Close()

	var result panoptoSessionPage
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, model.NewError(model.KindSourceUnavailable, "list panopto sessions",
			fmt.Errorf("failed to unmarshal response: %w", err))
	}
	return result.Results, nil
}

func (c *PanoptoClient) get(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("panopto API error (status %d): %s", resp.StatusCode, string(snippet))
	}

	return resp.Body, nil
}

func (c *PanoptoClient) toVideoRef(s panoptoSession) model.VideoRef {
	var created time.Time
	if s.StartTime != "" {
		if t, err := time.Parse(time.RFC3339, s.StartTime); err == nil {
			created = t
		}
	}
	return model.VideoRef{
		ID:              s.ID,
		Title:           s.Name,
		DurationSeconds: s.Duration,
		Creator:         s.CreatedBy.Username,
		CreatedAt:       created,
		FolderID:        s.FolderDetails.ID,
		Tenant:          c.tenant,
	}
}

// panoptoCollection adapts a PanoptoClient folder to source.Collection
type panoptoCollection struct {
	client   *PanoptoClient
	folderID string
}

func (p *panoptoCollection) Scope() []string { return nil }

func (p *panoptoCollection) Label() string {
	if p.folderID == "" {
		return "all sessions"
	}
	return "folder " + p.folderID
}

func (p *panoptoCollection) Course() *model.Course { return nil }

func (p *panoptoCollection) ListVideos(ctx context.Context) ([]model.VideoRef, error) {
	return p.client.ListVideos(ctx, p.folderID)
}

func (p *panoptoCollection) DownloadVideo(ctx context.Context, videoID string) ([]byte, error) {
	return p.client.DownloadVideo(ctx, videoID)
}

func (p *panoptoCollection) ExtractAudio(ctx context.Context, video []byte) ([]byte, error) {
	return p.client.ExtractAudio(ctx, video)
}
