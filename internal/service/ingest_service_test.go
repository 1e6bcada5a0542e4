package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Clarity-Projekt/chat-client/internal/config"
	"github.com/The-Clarity-Projekt/chat-client/internal/model"
	"github.com/The-Clarity-Projekt/chat-client/internal/store"
)

type memoryJobs struct {
	jobs map[string]*model.Job
}

func (m *memoryJobs) Save(ctx context.Context, job *model.Job) error {
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memoryJobs) Get(ctx context.Context, jobID string) (*model.Job, error) {
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: IngestQueue}, nil
}

type capability bool

func (c capability) IsConfigured() bool { return bool(c) }

type queueStats struct{}

func (queueStats) PendingCount() int { return 3 }
func (queueStats) ActiveCount() int  { return 1 }
func (queueStats) Concurrency() int  { return 1 }

// newRemote serves a Panopto search endpoint and a Canvas users/self
// endpoint under /<tenant>/...
func newRemote(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
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
}

func newTestService(t *testing.T, srv *httptest.Server, configured bool) (*IngestService, *memoryJobs, *recordingEnqueuer) {
	t.Helper()
	jobs := &memoryJobs{jobs: map[string]*model.Job{}}
	enq := &recordingEnqueuer{}
	factory := NewSourceFactory(&config.IngestConfig{
		PanoptoHostFormat: srv.URL + "/%s",
		CanvasHostFormat:  srv.URL + "/%s",
	}, nil)
	return NewIngestService(jobs, enq, factory, queueStats{}, capability(configured)), jobs, enq
}

func TestStartPanopto(t *testing.T) {
	srv := newRemote(t)
	defer srv.Close()
	svc, jobs, enq := newTestService(t, srv, true)

	resp, err := svc.StartPanopto(context.Background(), &model.PanoptoIngestRequest{Tenant: "example", AuthToken: "good"})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, resp.Status)

	job, ok := jobs.jobs[resp.JobID]
	require.True(t, ok)
	assert.Equal(t, model.JobTypePanopto, job.Type)
	assert.Equal(t, "example", job.Tenant)

	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskTypeIngestPanopto, enq.tasks[0].Type())

	var envelope TaskPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &envelope))
	assert.Equal(t, resp.JobID, envelope.JobID)
	var payload model.PanoptoJobPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, srv.URL+"/example", payload.ServerURL)
	assert.Equal(t, "good", payload.AuthToken)
}

func TestStartCanvasDefaultsToIncludingContent(t *testing.T) {
	srv := newRemote(t)
	defer srv.Close()
	svc, _, enq := newTestService(t, srv, true)

	_, err := svc.StartCanvas(context.Background(), &model.CanvasIngestRequest{Tenant: "example", AuthToken: "good", CourseID: "101"})
	require.NoError(t, err)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskTypeIngestCanvas, enq.tasks[0].Type())

	var envelope TaskPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &envelope))
	var payload model.CanvasJobPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.True(t, payload.IncludeContent)
	assert.Equal(t, "101", payload.CourseID)
	assert.Equal(t, srv.URL+"/example/api/v1", payload.ServerURL)

	off := false
	_, err = svc.StartCanvas(context.Background(), &model.CanvasIngestRequest{Tenant: "example", AuthToken: "good", IncludeContent: &off})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(enq.tasks[1].Payload(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.False(t, payload.IncludeContent)
}

func TestStartFailsPreflight(t *testing.T) {
	srv := newRemote(t)
	defer srv.Close()

	unconfigured, jobs, enq := newTestService(t, srv, false)
	_, err := unconfigured.StartPanopto(context.Background(), &model.PanoptoIngestRequest{Tenant: "example", AuthToken: "good"})
	assert.ErrorIs(t, err, model.ErrConfigurationMissing)
	assert.Empty(t, jobs.jobs)
	assert.Empty(t, enq.tasks)

	svc, jobs, enq := newTestService(t, srv, true)
	_, err = svc.StartCanvas(context.Background(), &model.CanvasIngestRequest{Tenant: "example", AuthToken: "bad"})
	assert.ErrorIs(t, err, model.ErrSourceUnavailable)
	_, err = svc.StartPanopto(context.Background(), &model.PanoptoIngestRequest{Tenant: "example", AuthToken: "bad"})
	assert.ErrorIs(t, err, model.ErrSourceUnavailable)
	assert.Empty(t, jobs.jobs)
	assert.Empty(t, enq.tasks)
}

func TestStartEnqueueFailure(t *testing.T) {
	srv := newRemote(t)
	defer srv.Close()
	svc, _, enq := newTestService(t, srv, true)
	enq.err = errors.New("redis down")

	_, err := svc.StartPanopto(context.Background(), &model.PanoptoIngestRequest{Tenant: "example", AuthToken: "good"})
	assert.Error(t, err)
}

func TestGetStatusAndQueue(t *testing.T) {
	srv := newRemote(t)
	defer srv.Close()
	svc, jobs, _ := newTestService(t, srv, true)

	jobs.jobs["j1"] = &model.Job{ID: "j1", Type: model.JobTypeCanvas, Status: model.JobStatusRunning, ProcessedCount: 2}
	status, err := svc.GetStatus(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, status.Status)
	assert.Equal(t, 2, status.ProcessedCount)
	assert.NotNil(t, status.Processed)

	_, err = svc.GetStatus(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrJobNotFound)

	q := svc.QueueStatus()
	assert.Equal(t, 3, q.Pending)
	assert.Equal(t, 1, q.Active)
}
