package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/The-Clarity-Projekt/chat-client/internal/model"
	"github.com/The-Clarity-Projekt/chat-client/internal/source"
)

const (
	TaskTypeIngestPanopto = "ingest:panopto"
	TaskTypeIngestCanvas  = "ingest:canvas"

	// IngestQueue is the asynq queue batches run on
	IngestQueue = "ingest"

	probeTimeout = 15 * time.Second
)

// Enqueuer is the part of *asynq.Client used to hand batches to workers
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// JobRepository stores batch job records
type JobRepository interface {
	Save(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, jobID string) (*model.Job, error)
}

// QueueStats exposes transcription queue occupancy
type QueueStats interface {
	PendingCount() int
	ActiveCount() int
	Concurrency() int
}

// CapabilityChecker reports whether the transcription key is present
type CapabilityChecker interface {
	IsConfigured() bool
}

// TaskPayload is the asynq envelope for every ingest task
type TaskPayload struct {
	JobID   string          `json:"jobId"`
	Payload json.RawMessage `json:"payload"`
}

// IngestService validates and queues ingest batches
type IngestService struct {
	jobs        JobRepository
	enqueuer    Enqueuer
	sources     *SourceFactory
	queue       QueueStats
	transcriber CapabilityChecker
}

func NewIngestService(jobs JobRepository, enqueuer Enqueuer, sources *SourceFactory, queue QueueStats, transcriber CapabilityChecker) *IngestService {
	return &IngestService{
		jobs:        jobs,
		enqueuer:    enqueuer,
		sources:     sources,
		queue:       queue,
		transcriber: transcriber,
	}
}

// StartPanopto runs pre-flight checks and queues a direct Panopto batch
func (s *IngestService) StartPanopto(ctx context.Context, req *model.PanoptoIngestRequest) (*model.IngestStartResponse, error) {
	if err := s.checkCapability("start panopto batch"); err != nil {
		return nil, err
	}

	payload := model.PanoptoJobPayload{
		Tenant:    req.Tenant,
		AuthToken: req.AuthToken,
		FolderID:  req.FolderID,
		ServerURL: s.sources.PanoptoURL(req.Tenant),
	}
	if err := s.probe(ctx, s.sources.Panopto(payload)); err != nil {
		return nil, err
	}

	return s.start(ctx, model.JobTypePanopto, req.Tenant, TaskTypeIngestPanopto, payload)
}

// StartCanvas runs pre-flight checks and queues a Canvas-mediated batch
func (s *IngestService) StartCanvas(ctx context.Context, req *model.CanvasIngestRequest) (*model.IngestStartResponse, error) {
	if err := s.checkCapability("start canvas batch"); err != nil {
		return nil, err
	}

	includeContent := true
	if req.IncludeContent != nil {
		includeContent = *req.IncludeContent
	}
	payload := model.CanvasJobPayload{
		Tenant:         req.Tenant,
		AuthToken:      req.AuthToken,
		CourseID:       req.CourseID,
		IncludeContent: includeContent,
		ServerURL:      s.sources.CanvasURL(req.Tenant),
	}
	if err := s.probe(ctx, s.sources.Canvas(payload)); err != nil {
		return nil, err
	}

	return s.start(ctx, model.JobTypeCanvas, req.Tenant, TaskTypeIngestCanvas, payload)
}

// GetStatus returns the current state of a batch
func (s *IngestService) GetStatus(ctx context.Context, jobID string) (*model.IngestStatusResponse, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.IngestStatusResponse{
		JobID:          job.ID,
		Type:           job.Type,
		Status:         job.Status,
		CurrentStep:    job.CurrentStep,
		Error:          job.Error,
		Processed:      nonNil(job.Processed),
		Skipped:        nonNil(job.Skipped),
		ProcessedCount: job.ProcessedCount,
		SkippedCount:   job.SkippedCount,
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	}, nil
}

// QueueStatus reports transcription queue occupancy
func (s *IngestService) QueueStatus() *model.QueueStatusResponse {
	return &model.QueueStatusResponse{
		Pending:     s.queue.PendingCount(),
		Active:      s.queue.ActiveCount(),
		Concurrency: s.queue.Concurrency(),
	}
}

func (s *IngestService) checkCapability(op string) error {
	if s.transcriber == nil || !s.transcriber.IsConfigured() {
		return model.Errorf(model.KindConfigurationMissing, op, "transcription API key is not configured")
	}
	return nil
}

func (s *IngestService) probe(ctx context.Context, src source.Source) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := src.Probe(ctx); err != nil {
		log.Printf("Pre-flight probe failed for %s tenant %s: %v", src.Kind(), src.Tenant(), err)
		var kerr *model.Error
		if errors.As(err, &kerr) {
			return err
		}
		return model.NewError(model.KindSourceUnavailable, "probe", err)
	}
	return nil
}

func (s *IngestService) start(ctx context.Context, jobType, tenant, taskType string, payload interface{}) (*model.IngestStartResponse, error) {
	jobID := uuid.New().String()
	now := time.Now()

	job := &model.Job{
		ID:          jobID,
		Type:        jobType,
		Tenant:      tenant,
		Status:      model.JobStatusQueued,
		CurrentStep: string(model.StageIdle),
		Processed:   []string{},
		Skipped:     []string{},
		CreatedAt:   now,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	taskBytes, err := json.Marshal(TaskPayload{JobID: jobID, Payload: payloadBytes})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	// Batches run once. A rerun skips videos that already finished.
	_, err = s.enqueuer.Enqueue(asynq.NewTask(taskType, taskBytes),
		asynq.Queue(IngestQueue),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Printf("Queued %s ingest job %s for tenant %s", jobType, jobID, tenant)
	return &model.IngestStartResponse{
		JobID:     jobID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
