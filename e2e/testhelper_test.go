package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/The-Clarity-Projekt/chat-client/internal/config"
	"github.com/The-Clarity-Projekt/chat-client/internal/handler"
	"github.com/The-Clarity-Projekt/chat-client/internal/middleware"
	"github.com/The-Clarity-Projekt/chat-client/internal/queue"
	"github.com/The-Clarity-Projekt/chat-client/internal/service"
	"github.com/The-Clarity-Projekt/chat-client/internal/store"
)

const (
	testJWTSecret = "test-secret-for-e2e"
	goodToken     = "remote-token"
)

// memoryRedis stands in for the Redis commands used by the job store and
// the rate limiter
type memoryRedis struct {
	mu     sync.Mutex
	values map[string]string
	counts map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

func (m *memoryRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (m *memoryRedis) TTL(ctx context.Context, key string) *redis.DurationCmd {
	return redis.NewDurationResult(time.Hour, nil)
}

type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: task.Type(), Queue: service.IngestQueue}, nil
}

type capability bool

func (c capability) IsConfigured() bool { return bool(c) }

// testApp holds all components needed for testing
type testApp struct {
	app      *fiber.App
	enqueuer *recordingEnqueuer
	remote   *httptest.Server
}

type appOptions struct {
	transcriberConfigured bool
	ingestPerHour         int
}

// newRemote answers the probe endpoints of both source kinds under
// /<tenant>/...
func newRemote(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+goodToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/Panopto/api/v1/sessions/search"):
			_, _ = w.Write([]byte(`{"Results":[]}`))
		case strings.HasSuffix(r.URL.Path, "/api/v1/users/self"):
			_, _ = w.Write([]byte(`{"id":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupApp creates a Fiber app routed like main.go, backed by in-memory
// Redis and a fake remote tenant.
func setupApp(t *testing.T) *testApp {
	return setupAppWith(t, appOptions{transcriberConfigured: true, ingestPerHour: 10000})
}

func setupAppWith(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	remote := newRemote(t)
	kv := newMemoryRedis()
	enqueuer := &recordingEnqueuer{}
	validate := validator.New()

	q := queue.New(queue.Options{Concurrency: 1})
	t.Cleanup(q.Close)

	sources := service.NewSourceFactory(&config.IngestConfig{
		PanoptoHostFormat: remote.URL + "/%s",
		CanvasHostFormat:  remote.URL + "/%s",
	}, nil)
	ingestService := service.NewIngestService(store.NewJobStore(kv), enqueuer, sources, q, capability(opts.transcriberConfigured))
	ingestHandler := handler.NewIngestHandler(ingestService, validate)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(kv)

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"groq":  opts.transcriberConfigured,
				"mongo": false,
				"r2":    false,
				"audio": false,
			},
		})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	ingest := api.Group("/ingest")
	ingest.Post("/panopto", rateLimiter.IngestLimit(opts.ingestPerHour), ingestHandler.Panopto)
	ingest.Post("/canvas", rateLimiter.IngestLimit(opts.ingestPerHour), ingestHandler.Canvas)
	ingest.Get("/status/:jobId", ingestHandler.Status)
	ingest.Get("/queue", ingestHandler.Queue)

	return &testApp{app: app, enqueuer: enqueuer, remote: remote}
}

// generateToken creates an HMAC JWT for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	signed, err := middleware.NewAuthMiddleware(testJWTSecret).GenerateToken("test-user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// errorCode extracts error.code from an error response.
func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := parseJSON(t, resp)
	e, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'error' object in response, got %v", body)
	}
	code, _ := e["code"].(string)
	return code
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body := readBody(t, resp)
		t.Fatalf("expected status %d, got %d\nbody: %s", expected, resp.StatusCode, body)
	}
}
