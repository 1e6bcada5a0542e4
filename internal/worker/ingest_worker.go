package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/The-Clarity-Projekt/chat-client/internal/model"
	"github.com/The-Clarity-Projekt/chat-client/internal/pipeline"
	"github.com/The-Clarity-Projekt/chat-client/internal/service"
	"github.com/The-Clarity-Projekt/chat-client/internal/source"
	"github.com/The-Clarity-Projekt/chat-client/pkg/response"
)

// Runner executes one batch
type Runner interface {
	Run(ctx context.Context, src source.Source, obs pipeline.Observer) (*model.BatchSummary, error)
}

// JobUpdater mutates stored job records
type JobUpdater interface {
	Update(ctx context.Context, jobID string, fn func(job *model.Job)) (*model.Job, error)
}

// Broadcaster pushes job events to websocket subscribers
type Broadcaster interface {
	BroadcastProgress(job *model.Job)
	BroadcastItem(jobID string, result model.ItemResult)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID string, code, message string)
}

// IngestWorker runs queued ingest batches
type IngestWorker struct {
	runner  Runner
	jobs    JobUpdater
	sources *service.SourceFactory
	hub     Broadcaster
}

// NewIngestWorker creates a new ingest worker
func NewIngestWorker(runner Runner, jobs JobUpdater, sources *service.SourceFactory, hub Broadcaster) *IngestWorker {
	return &IngestWorker{
		runner:  runner,
		jobs:    jobs,
		sources: sources,
		hub:     hub,
	}
}

// ProcessTask handles both ingest task types
func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var envelope service.TaskPayload
	if err := json.Unmarshal(t.Payload(), &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	jobID := envelope.JobID
	log.Printf("Starting ingest job: %s (%s)", jobID, t.Type())

	src, err := w.buildSource(t.Type(), envelope.Payload)
	if err != nil {
		w.failJob(ctx, jobID, response.CodeValidationError, "Invalid payload")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	now := time.Now()
	w.update(ctx, jobID, func(job *model.Job) {
		job.Status = model.JobStatusRunning
		job.StartedAt = &now
		job.CurrentStep = string(model.StageFetchingSources)
	})

	obs := &jobObserver{ctx: ctx, jobID: jobID, worker: w}
	summary, err := w.runner.Run(ctx, src, obs)
	if err != nil {
		code := string(model.KindOf(err))
		if code == "" {
			code = response.CodeJobFailed
		}
		w.failJob(ctx, jobID, code, err.Error())
		return fmt.Errorf("ingest job %s failed: %v: %w", jobID, err, asynq.SkipRetry)
	}

	completed := time.Now()
	w.update(ctx, jobID, func(job *model.Job) {
		job.Status = model.JobStatusSucceeded
		job.CurrentStep = string(model.StageCompleted)
		job.Processed = summary.Processed
		job.Skipped = summary.Skipped
		job.ProcessedCount = len(summary.Processed)
		job.SkippedCount = len(summary.Skipped)
		job.CompletedAt = &completed
	})

	w.hub.BroadcastComplete(jobID, summary)
	log.Printf("Ingest job %s completed: %d processed, %d skipped", jobID, len(summary.Processed), len(summary.Skipped))
	return nil
}

func (w *IngestWorker) buildSource(taskType string, raw json.RawMessage) (source.Source, error) {
	switch taskType {
	case service.TaskTypeIngestPanopto:
		var p model.PanoptoJobPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal panopto payload: %w", err)
		}
		return w.sources.Panopto(p), nil
	case service.TaskTypeIngestCanvas:
		var p model.CanvasJobPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal canvas payload: %w", err)
		}
		return w.sources.Canvas(p), nil
	default:
		return nil, errors.New("unknown task type " + taskType)
	}
}

// update logs rather than fails: a lost status write must not abort a batch
func (w *IngestWorker) update(ctx context.Context, jobID string, fn func(job *model.Job)) *model.Job {
	job, err := w.jobs.Update(ctx, jobID, fn)
	if err != nil {
		log.Printf("Failed to update job %s: %v", jobID, err)
		return nil
	}
	w.hub.BroadcastProgress(job)
	return job
}

func (w *IngestWorker) failJob(ctx context.Context, jobID, code, errMsg string) {
	completed := time.Now()
	w.update(ctx, jobID, func(job *model.Job) {
		job.Status = model.JobStatusFailed
		job.Error = &errMsg
		job.CompletedAt = &completed
	})
	w.hub.BroadcastError(jobID, code, errMsg)
}

// jobObserver mirrors pipeline progress into the job record
type jobObserver struct {
	ctx    context.Context
	jobID  string
	worker *IngestWorker
}

func (o *jobObserver) OnStage(stage model.Stage, detail string) {
	step := string(stage)
	if detail != "" {
		step = fmt.Sprintf("%s: %s", stage, detail)
	}
	o.worker.update(o.ctx, o.jobID, func(job *model.Job) {
		job.CurrentStep = step
	})
}

func (o *jobObserver) OnItem(result model.ItemResult) {
	o.worker.update(o.ctx, o.jobID, func(job *model.Job) {
		if result.Outcome == model.OutcomeProcessed {
			job.Processed = append(job.Processed, result.Title)
			job.ProcessedCount++
		} else {
			job.Skipped = append(job.Skipped, result.Title)
			job.SkippedCount++
		}
	})
	o.worker.hub.BroadcastItem(o.jobID, result)
}
