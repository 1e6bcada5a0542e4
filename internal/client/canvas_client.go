package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/The-Clarity-Projekt/chat-client/internal/identifier"
	"github.com/The-Clarity-Projekt/chat-client/internal/model"
	"github.com/The-Clarity-Projekt/chat-client/internal/source"
	"github.com/tomnomnom/linkheader"
)

const (
	canvasPageSize = 100
	maxCanvasPages = 200
)

// CanvasOptions configures a CanvasClient
type CanvasOptions struct {
	Tenant    string
	AuthToken string
	// ServerURL is the API root, e.g. https://uni.instructure.com/api/v1
	ServerURL string
	// CourseID limits Collections to a single course when set
	CourseID       string
	IncludeContent bool
	HTTPClient     *http.Client
	Extractor      source.AudioExtractor
	// PanoptoURL maps the Panopto tool's domain to a server URL. Defaults
	// to https://{domain}.
	PanoptoURL func(domain string) string
}

// CanvasClient reaches Panopto recordings through the Panopto external
// tool installed in each Canvas course. It is the indirect video source.
type CanvasClient struct {
	httpClient     *http.Client
	tenant         string
	serverURL      string
	authToken      string
	courseID       string
	includeContent bool
	extractor      source.AudioExtractor
	panoptoURL     func(domain string) string
}

// PanoptoLaunch holds the Panopto parameters resolved from a course's
// external tool
type PanoptoLaunch struct {
	ServerURL string
	AuthToken string
	FolderID  string
}

type canvasCourse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CourseCode   string `json:"course_code"`
	SyllabusBody string `json:"syllabus_body"`
}

type canvasPage struct {
	PageID    int64  `json:"page_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	UpdatedAt string `json:"updated_at"`
	HTMLURL   string `json:"html_url"`
}

type canvasExternalTool struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// CanvasServerURL renders the per-tenant API root from a host format such
// as "https://%s.instructure.com".
func CanvasServerURL(hostFormat, tenant string) string {
	return fmt.Sprintf(hostFormat, tenant) + "/api/v1"
}

// NewCanvasClient creates a new Canvas API client
func NewCanvasClient(opts CanvasOptions) *CanvasClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 60 * time.Second,
		}
	}
	serverURL := opts.ServerURL
	if serverURL == "" {
		serverURL = CanvasServerURL("https://%s.instructure.com", opts.Tenant)
	}
	panoptoURL := opts.PanoptoURL
	if panoptoURL == nil {
		panoptoURL = func(domain string) string { return "https://" + domain }
	}

	return &CanvasClient{
		httpClient:     httpClient,
		tenant:         opts.Tenant,
		serverURL:      strings.TrimRight(serverURL, "/"),
		authToken:      opts.AuthToken,
		courseID:       opts.CourseID,
		includeContent: opts.IncludeContent,
		extractor:      opts.Extractor,
		panoptoURL:     panoptoURL,
	}
}

// Kind implements source.Source
func (c *CanvasClient) Kind() identifier.Kind { return identifier.KindCanvasPanopto }

// Namespace implements source.Source
func (c *CanvasClient) Namespace() string { return string(model.SourceCanvas) }

// Tenant implements source.Source
func (c *CanvasClient) Tenant() string { return c.tenant }

// ServerURL implements source.Source
func (c *CanvasClient) ServerURL() string { return c.serverURL }

// Probe checks the token against the current user endpoint
func (c *CanvasClient) Probe(ctx context.Context) error {
	var self struct {
		ID int64 `json:"id"`
	}
	if _, err := c.getJSON(ctx, c.serverURL+"/users/self", &self); err != nil {
		return model.NewError(model.KindSourceUnavailable, "probe canvas", err)
	}
	return nil
}

// Collections returns one collection per course, or only the configured
// course
func (c *CanvasClient) Collections(ctx context.Context) ([]source.Collection, error) {
	var courses []model.Course
	if c.courseID != "" {
		course, err := c.GetCourse(ctx, c.courseID)
		if err != nil {
			return nil, err
		}
		courses = []model.Course{*course}
	} else {
		list, err := c.ListCourses(ctx)
		if err != nil {
			return nil, err
		}
		courses = list
	}

	collections := make([]source.Collection, 0, len(courses))
	for i := range courses {
		collections = append(collections, &courseCollection{client: c, course: courses[i]})
	}
	return collections, nil
}

// ListCourses lists every course visible to the token with its syllabus
func (c *CanvasClient) ListCourses(ctx context.Context) ([]model.Course, error) {
	raw, err := getAllPages[canvasCourse](ctx, c, c.serverURL+"/courses?include[]=syllabus_body")
	if err != nil {
		return nil, model.NewError(model.KindSourceUnavailable, "list canvas courses", err)
	}
	courses := make([]model.Course, 0, len(raw))
	for _, rc := range raw {
		courses = append(courses, rc.toCourse())
	}
	return courses, nil
}

// GetCourse fetches a single course with its syllabus
func (c *CanvasClient) GetCourse(ctx context.Context, courseID string) (*model.Course, error) {
	var rc canvasCourse
	endpoint := fmt.Sprintf("%s/courses/%s?include[]=syllabus_body", c.serverURL, url.PathEscape(courseID))
	if _, err := c.getJSON(ctx, endpoint, &rc); err != nil {
		return nil, model.NewError(model.KindSourceUnavailable, fmt.Sprintf("get canvas course %s", courseID), err)
	}
	course := rc.toCourse()
	return &course, nil
}

// ListPages lists a course's wiki pages without bodies
func (c *CanvasClient) ListPages(ctx context.Context, courseID string) ([]model.ContentItem, error) {
	endpoint := fmt.Sprintf("%s/courses/%s/pages", c.serverURL, url.PathEscape(courseID))
	raw, err := getAllPages[canvasPage](ctx, c, endpoint)
	if err != nil {
		return nil, model.NewError(model.KindSourceUnavailable, fmt.Sprintf("list pages for course %s", courseID), err)
	}
	items := make([]model.ContentItem, 0, len(raw))
	for _, p := range raw {
		items = append(items, model.ContentItem{
			Type:      model.ItemTypePage,
			ID:        p.URL,
			Title:     p.Title,
			URL:       p.HTMLURL,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return items, nil
}

// GetPageBody fetches the HTML body of one page by its url slug
func (c *CanvasClient) GetPageBody(ctx context.Context, courseID, pageURL string) (string, error) {
	var page canvasPage
	endpoint := fmt.Sprintf("%s/courses/%s/pages/%s", c.serverURL, url.PathEscape(courseID), url.PathEscape(pageURL))
	if _, err := c.getJSON(ctx, endpoint, &page); err != nil {
		return "", model.NewError(model.KindSourceUnavailable, fmt.Sprintf("get page %s", pageURL), err)
	}
	return page.Body, nil
}

// ResolvePanopto finds the course's Panopto external tool and reads its
// launch parameters
func (c *CanvasClient) ResolvePanopto(ctx context.Context, courseID string) (*PanoptoLaunch, error) {
	op := fmt.Sprintf("resolve panopto for course %s", courseID)

	endpoint := fmt.Sprintf("%s/courses/%s/external_tools", c.serverURL, url.PathEscape(courseID))
	tools, err := getAllPages[canvasExternalTool](ctx, c, endpoint)
	if err != nil {
		return nil, model.NewError(model.KindSourceUnavailable, op, err)
	}

	var tool *canvasExternalTool
	for i := range tools {
		if strings.Contains(strings.ToLower(tools[i].Name), "panopto") ||
			strings.Contains(strings.ToLower(tools[i].Domain), "panopto") {
			tool = &tools[i]
			break
		}
	}
	if tool == nil {
		return nil, model.Errorf(model.KindConfigurationMissing, op, "no Panopto integration found")
	}
	if tool.Domain == "" {
		return nil, model.Errorf(model.KindConfigurationMissing, op, "Panopto tool has no domain")
	}

	var launch map[string]interface{}
	retrieve := fmt.Sprintf("%s/courses/%s/external_tools/%d/retrieve", c.serverURL, url.PathEscape(courseID), tool.ID)
	if _, err := c.getJSON(ctx, retrieve, &launch); err != nil {
		return nil, model.NewError(model.KindSourceUnavailable, op, err)
	}

	token := launchString(launch, "custom_panopto_auth_token")
	if token == "" {
		token = launchString(launch, "custom_panopto_token")
	}
	if token == "" {
		return nil, model.Errorf(model.KindConfigurationMissing, op, "no Panopto auth token in launch parameters")
	}

	return &PanoptoLaunch{
		ServerURL: c.panoptoURL(tool.Domain),
		AuthToken: token,
		FolderID:  launchString(launch, "custom_panopto_folder_id"),
	}, nil
}

// ListVideosForCourse resolves the course's Panopto folder and lists it
func (c *CanvasClient) ListVideosForCourse(ctx context.Context, courseID string) ([]model.VideoRef, error) {
	pc, err := c.panoptoFor(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return pc.ListVideos(ctx, pc.folderID)
}

func (c *CanvasClient) panoptoFor(ctx context.Context, courseID string) (*PanoptoClient, error) {
	launch, err := c.ResolvePanopto(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return NewPanoptoClient(PanoptoOptions{
		Tenant:     c.tenant,
		AuthToken:  launch.AuthToken,
		ServerURL:  launch.ServerURL,
		FolderID:   launch.FolderID,
		HTTPClient: c.httpClient,
		Extractor:  c.extractor,
	}), nil
}

// getAllPages follows the Link rel="next" header until exhausted
func getAllPages[T any](ctx context.Context, c *CanvasClient, endpoint string) ([]T, error) {
	next := withPerPage(endpoint)
	var all []T
	for page := 0; next != "" && page < maxCanvasPages; page++ {
		var batch []T
		header, err := c.getJSON(ctx, next, &batch)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)

		next = ""
		for _, link := range linkheader.Parse(header.Get("Link")).FilterByRel("next") {
			next = link.URL
			break
		}
	}
	return all, nil
}

func withPerPage(endpoint string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "per_page=" + strconv.Itoa(canvasPageSize)
}

func (c *CanvasClient) getJSON(ctx context.Context, endpoint string, result interface{}) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("canvas API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 512))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return resp.Header, nil
}

func (rc canvasCourse) toCourse() model.Course {
	return model.Course{
		ID:       strconv.FormatInt(rc.ID, 10),
		Name:     rc.Name,
		Code:     rc.CourseCode,
		Syllabus: rc.SyllabusBody,
	}
}

func launchString(params map[string]interface{}, key string) string {
	if v, ok := params[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// courseCollection is one Canvas course. Its Panopto client is resolved on
// first use and reused for the rest of the course.
type courseCollection struct {
	client *CanvasClient
	course model.Course

	once    sync.Once
	panopto *PanoptoClient
	err     error
}

func (cc *courseCollection) resolve(ctx context.Context) (*PanoptoClient, error) {
	cc.once.Do(func() {
		cc.panopto, cc.err = cc.client.panoptoFor(ctx, cc.course.ID)
	})
	return cc.panopto, cc.err
}

func (cc *courseCollection) Scope() []string { return []string{cc.course.ID} }

func (cc *courseCollection) Label() string {
	if cc.course.Name == "" {
		return "course " + cc.course.ID
	}
	return cc.course.Name
}

func (cc *courseCollection) Course() *model.Course {
	course := cc.course
	return &course
}

func (cc *courseCollection) ListVideos(ctx context.Context) ([]model.VideoRef, error) {
	pc, err := cc.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return pc.ListVideos(ctx, pc.folderID)
}

func (cc *courseCollection) DownloadVideo(ctx context.Context, videoID string) ([]byte, error) {
	pc, err := cc.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return pc.DownloadVideo(ctx, videoID)
}

func (cc *courseCollection) ExtractAudio(ctx context.Context, video []byte) ([]byte, error) {
	pc, err := cc.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return pc.ExtractAudio(ctx, video)
}

// ContentItems returns the syllabus (when present) and the course pages.
// Content is only offered when the client was built with IncludeContent.
func (cc *courseCollection) ContentItems(ctx context.Context) ([]model.ContentItem, error) {
	if !cc.client.includeContent {
		return nil, nil
	}
	var items []model.ContentItem
	if strings.TrimSpace(cc.course.Syllabus) != "" {
		items = append(items, model.ContentItem{
			Type:  model.ItemTypeSyllabus,
			ID:    "main",
			Title: "Syllabus",
			HTML:  cc.course.Syllabus,
		})
	}
	pages, err := cc.client.ListPages(ctx, cc.course.ID)
	if err != nil {
		return items, err
	}
	return append(items, pages...), nil
}

// ContentBody returns the item's HTML, fetching page bodies on demand
func (cc *courseCollection) ContentBody(ctx context.Context, item model.ContentItem) (string, error) {
	if item.HTML != "" || item.Type != model.ItemTypePage {
		return item.HTML, nil
	}
	return cc.client.GetPageBody(ctx, cc.course.ID, item.ID)
}
