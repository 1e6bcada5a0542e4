// Package pipeline drives one ingest batch: it walks a source's videos in
// listing order, skips what is already stored, transcribes the rest through
// the shared queue and writes one document per video.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/The-Clarity-Projekt/chat-client/internal/identifier"
	"github.com/The-Clarity-Projekt/chat-client/internal/model"
	"github.com/The-Clarity-Projekt/chat-client/internal/queue"
	"github.com/The-Clarity-Projekt/chat-client/internal/source"
)

const reasonAlreadyProcessed = "already processed"

// CompletionStore answers whether an identifier already has a document
type CompletionStore interface {
	IsProcessed(ctx context.Context, identifier string) (bool, error)
}

// Sink persists a document at a deterministic path
type Sink interface {
	Write(ctx context.Context, namespace string, doc *model.Document, path string) error
}

// Transcriber turns an audio stream into text
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Observer receives progress for one batch. Calls come from the goroutine
// running the batch.
type Observer interface {
	OnStage(stage model.Stage, detail string)
	OnItem(result model.ItemResult)
}

type nopObserver struct{}

func (nopObserver) OnStage(model.Stage, string) {}
func (nopObserver) OnItem(model.ItemResult)     {}

// Options tunes an Orchestrator
type Options struct {
	// ScratchDir holds one audio file per in-flight video
	ScratchDir string
	// Fs backs scratch storage. Defaults to the OS filesystem.
	Fs afero.Fs
	// VideoTimeout bounds download and audio extraction of one video
	VideoTimeout time.Duration
	// IncludeCourseContent also ingests syllabus and pages of course
	// collections
	IncludeCourseContent bool
}

// Orchestrator runs batches against a shared transcription queue
type Orchestrator struct {
	store       CompletionStore
	sink        Sink
	transcriber Transcriber
	queue       *queue.Queue
	opts        Options
}

// New creates an orchestrator
func New(store CompletionStore, sink Sink, transcriber Transcriber, q *queue.Queue, opts Options) *Orchestrator {
	pipelineMetrics.init()

	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = os.TempDir()
	}

	return &Orchestrator{
		store:       store,
		sink:        sink,
		transcriber: transcriber,
		queue:       q,
		opts:        opts,
	}
}

// Run ingests every video of src. It fails only when the source cannot be
// enumerated at all; per-video and per-course failures become skips.
func (o *Orchestrator) Run(ctx context.Context, src source.Source, obs Observer) (*model.BatchSummary, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	summary := &model.BatchSummary{Processed: []string{}, Skipped: []string{}}

	log.Printf("Starting %s batch for tenant %s", src.Kind(), src.Tenant())
	obs.OnStage(model.StageFetchingSources, "")

	collections, err := src.Collections(ctx)
	if err != nil {
		pipelineMetrics.batches.WithLabelValues(string(src.Kind()), "failed").Inc()
		if model.KindOf(err) == "" {
			err = model.NewError(model.KindSourceUnavailable, "list collections", err)
		}
		log.Printf("Failed to enumerate %s sources for tenant %s: %v", src.Kind(), src.Tenant(), err)
		return summary, err
	}

	for _, coll := range collections {
		if err := ctx.Err(); err != nil {
			log.Printf("Batch for tenant %s stopped: %v", src.Tenant(), err)
			pipelineMetrics.batches.WithLabelValues(string(src.Kind()), "canceled").Inc()
			return summary, err
		}
		o.runCollection(ctx, src, coll, obs, summary)
	}

	obs.OnStage(model.StageCompleted, "")
	pipelineMetrics.batches.WithLabelValues(string(src.Kind()), "completed").Inc()

	noun := "videos"
	if o.opts.IncludeCourseContent && src.Kind() != identifier.KindPanopto {
		noun = "items"
	}
	log.Printf("Processing complete. Processed %d %s, skipped %d %s.", len(summary.Processed), noun, len(summary.Skipped), noun)
	if len(summary.Skipped) > 0 {
		log.Printf("Skipped: %s", strings.Join(summary.Skipped, ", "))
	}
	return summary, nil
}

func (o *Orchestrator) runCollection(ctx context.Context, src source.Source, coll source.Collection, obs Observer, summary *model.BatchSummary) {
	if o.opts.IncludeCourseContent {
		if cc, ok := coll.(source.ContentCollection); ok && coll.Course() != nil {
			o.runContent(ctx, src, coll, cc, obs, summary)
		}
	}

	log.Printf("Listing videos for %s", coll.Label())
	videos, err := coll.ListVideos(ctx)
	if err != nil {
		log.Printf("Skipping videos of %s: %v", coll.Label(), err)
		pipelineMetrics.items.WithLabelValues(string(model.OutcomeSkipped), "collection_unavailable").Inc()
		return
	}
	log.Printf("Found %d videos in %s", len(videos), coll.Label())

	for _, video := range videos {
		result := o.processVideo(ctx, src, coll, video, obs)
		record(summary, result)
		obs.OnItem(result)
	}
}

// processVideo never returns an error: every failure becomes a skip
func (o *Orchestrator) processVideo(ctx context.Context, src source.Source, coll source.Collection, video model.VideoRef, obs Observer) model.ItemResult {
	segments := append(append([]string{}, coll.Scope()...), video.ID)
	id := identifier.For(src.Kind(), src.Tenant(), segments...)
	result := model.ItemResult{Identifier: id, Title: video.Title}

	skip := func(metricReason string, err error) model.ItemResult {
		result.Outcome = model.OutcomeSkipped
		result.Reason = err.Error()
		pipelineMetrics.items.WithLabelValues(string(model.OutcomeSkipped), metricReason).Inc()
		return result
	}

	obs.OnStage(model.StageCheckDuplicate, video.Title)
	if o.isProcessed(ctx, id) {
		log.Printf("Video %s (%s) already processed. Skipping.", video.Title, id)
		return skip("already_processed", errors.New(reasonAlreadyProcessed))
	}

	audio, err := o.fetchAudio(ctx, coll, video, obs)
	if err != nil {
		log.Printf("Failed to fetch video %s (%s): %v", video.Title, id, err)
		return skip("source_unavailable", err)
	}

	obs.OnStage(model.StageTranscribing, video.Title)
	transcript, err := o.transcribe(ctx, id, audio)
	if err != nil {
		log.Printf("Failed to transcribe video %s (%s): %v", video.Title, id, err)
		return skip("transcription_failed", err)
	}

	obs.OnStage(model.StageAssembling, video.Title)
	doc := o.videoDocument(src, coll, video, id, transcript)

	obs.OnStage(model.StagePersisting, video.Title)
	if err := o.sink.Write(ctx, src.Namespace(), doc, identifier.Path(src.Namespace(), id)); err != nil {
		log.Printf("PERSISTENCE FAILURE for video %s (%s): transcript was produced but not saved: %v", video.Title, id, err)
		return skip("persistence_failed", err)
	}

	log.Printf("Successfully processed video: %s (%s)", video.Title, id)
	result.Outcome = model.OutcomeProcessed
	pipelineMetrics.items.WithLabelValues(string(model.OutcomeProcessed), "").Inc()
	return result
}

// isProcessed treats an unreachable store as "not processed"
func (o *Orchestrator) isProcessed(ctx context.Context, id string) bool {
	done, err := o.store.IsProcessed(ctx, id)
	if err != nil {
		log.Printf("LOOKUP FAILURE checking %s, processing anyway: %v", id, err)
		pipelineMetrics.lookupFailures.Inc()
		return false
	}
	return done
}

func (o *Orchestrator) fetchAudio(ctx context.Context, coll source.Collection, video model.VideoRef, obs Observer) ([]byte, error) {
	if o.opts.VideoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.VideoTimeout)
		defer cancel()
	}

	obs.OnStage(model.StageDownloading, video.Title)
	data, err := coll.DownloadVideo(ctx, video.ID)
	if err != nil {
		return nil, err
	}

	obs.OnStage(model.StageExtractingAudio, video.Title)
	audio, err := coll.ExtractAudio(ctx, data)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, model.Errorf(model.KindSourceUnavailable, "extract audio", "no audio produced")
	}
	return audio, nil
}

// transcribe stages audio in scratch storage, submits it to the queue and
// waits. The scratch file is removed once the queued task has finished.
func (o *Orchestrator) transcribe(ctx context.Context, id string, audio []byte) (string, error) {
	path := o.scratchPath(id)
	if err := o.opts.Fs.MkdirAll(o.opts.ScratchDir, 0o755); err != nil {
		return "", model.NewError(model.KindTranscriptionFailure, "stage audio", err)
	}
	if err := afero.WriteFile(o.opts.Fs, path, audio, 0o600); err != nil {
		_ = o.opts.Fs.Remove(path)
		return "", model.NewError(model.KindTranscriptionFailure, "stage audio", err)
	}

	handle, err := o.queue.Submit(path, o.transcribeFile)
	if err != nil {
		o.removeScratch(path)
		return "", model.NewError(model.KindTranscriptionFailure, "submit transcription", err)
	}

	select {
	case <-handle.Done():
		o.removeScratch(path)
	case <-ctx.Done():
		go func() {
			<-handle.Done()
			o.removeScratch(path)
		}()
		return "", model.NewError(model.KindTranscriptionFailure, "await transcription", ctx.Err())
	}

	text, err := handle.Result()
	if err != nil {
		if model.KindOf(err) == "" {
			err = model.NewError(model.KindTranscriptionFailure, "transcribe", err)
		}
		return "", err
	}
	return text, nil
}

// transcribeFile is the queued unit of work
func (o *Orchestrator) transcribeFile(ctx context.Context, path string) (string, error) {
	f, err := o.opts.Fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open scratch audio: %w", err)
	}
	defer f.Close()
	return o.transcriber.Transcribe(ctx, f, filepath.Base(path))
}

// scratchPath is unique per attempt so concurrent batches over the same
// tenant never share a file
func (o *Orchestrator) scratchPath(id string) string {
	return filepath.Join(o.opts.ScratchDir, id+"."+uuid.NewString()+".audio")
}

func (o *Orchestrator) removeScratch(path string) {
	if err := o.opts.Fs.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove scratch audio %s: %v", path, err)
	}
}

func (o *Orchestrator) videoDocument(src source.Source, coll source.Collection, video model.VideoRef, id, transcript string) *model.Document {
	doc := &model.Document{
		ID:      id,
		Title:   video.Title,
		Content: transcript,
		Metadata: model.DocumentMetadata{
			Source:     model.SourceType(src.Kind()),
			Type:       model.ItemTypeVideo,
			Identifier: id,
			VideoID:    video.ID,
			Folder:     video.FolderID,
			Duration:   video.DurationSeconds,
			Creator:    video.Creator,
			University: src.Tenant(),
			ServerURL:  src.ServerURL(),
		},
	}
	if !video.CreatedAt.IsZero() {
		created := video.CreatedAt
		doc.Metadata.Created = &created
	}
	if course := coll.Course(); course != nil {
		doc.Title = fmt.Sprintf("%s - %s", course.Name, video.Title)
		doc.Metadata.CourseID = course.ID
		doc.Metadata.CourseName = course.Name
		doc.Metadata.CourseCode = course.Code
	}
	return doc
}

func record(summary *model.BatchSummary, result model.ItemResult) {
	switch result.Outcome {
	case model.OutcomeProcessed:
		summary.Processed = append(summary.Processed, result.Title)
	default:
		summary.Skipped = append(summary.Skipped, result.Title)
	}
}
