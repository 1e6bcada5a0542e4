package pipeline

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/The-Clarity-Projekt/chat-client/internal/identifier"
	"github.com/The-Clarity-Projekt/chat-client/internal/model"
	"github.com/The-Clarity-Projekt/chat-client/internal/source"
)

// runContent ingests a course's syllabus and pages ahead of its videos.
// Content shares the completion store with videos but never touches the
// transcription queue.
func (o *Orchestrator) runContent(ctx context.Context, src source.Source, coll source.Collection, cc source.ContentCollection, obs Observer, summary *model.BatchSummary) {
	course := coll.Course()
	items, err := cc.ContentItems(ctx)
	if err != nil {
		log.Printf("Failed to list content for %s: %v", coll.Label(), err)
	}

	for _, item := range items {
		result := o.processContent(ctx, src, course, cc, item, obs)
		record(summary, result)
		obs.OnItem(result)
	}
}

func (o *Orchestrator) processContent(ctx context.Context, src source.Source, course *model.Course, cc source.ContentCollection, item model.ContentItem, obs Observer) model.ItemResult {
	id := identifier.CourseItem(src.Tenant(), course.ID, string(item.Type), item.ID)
	result := model.ItemResult{Identifier: id, Title: contentLabel(item, course)}

	skip := func(metricReason string, err error) model.ItemResult {
		result.Outcome = model.OutcomeSkipped
		result.Reason = err.Error()
		pipelineMetrics.items.WithLabelValues(string(model.OutcomeSkipped), metricReason).Inc()
		return result
	}

	obs.OnStage(model.StageCheckDuplicate, result.Title)
	if o.isProcessed(ctx, id) {
		log.Printf("Content %s already processed. Skipping.", id)
		return skip("already_processed", errors.New(reasonAlreadyProcessed))
	}

	html, err := cc.ContentBody(ctx, item)
	if err != nil {
		log.Printf("Failed to fetch content %s (%s): %v", result.Title, id, err)
		return skip("source_unavailable", err)
	}
	text, err := htmlToText(html)
	if err != nil {
		log.Printf("Failed to convert content %s (%s): %v", result.Title, id, err)
		return skip("malformed_content", err)
	}
	if text == "" {
		return skip("empty_content", errors.New("no text content"))
	}

	obs.OnStage(model.StageAssembling, result.Title)
	doc := &model.Document{
		ID:      id,
		Title:   contentTitle(item, course),
		Content: text,
		Metadata: model.DocumentMetadata{
			Source:      model.SourceCanvas,
			Type:        item.Type,
			Identifier:  id,
			CourseID:    course.ID,
			CourseName:  course.Name,
			CourseCode:  course.Code,
			LastUpdated: item.UpdatedAt,
			University:  src.Tenant(),
			ServerURL:   src.ServerURL(),
		},
	}
	if item.Type == model.ItemTypePage {
		doc.Metadata.PageURL = item.ID
	}

	obs.OnStage(model.StagePersisting, result.Title)
	ns := string(model.SourceCanvas)
	if err := o.sink.Write(ctx, ns, doc, identifier.Path(ns, id)); err != nil {
		log.Printf("PERSISTENCE FAILURE for content %s (%s): %v", result.Title, id, err)
		return skip("persistence_failed", err)
	}

	log.Printf("Successfully processed content: %s (%s)", result.Title, id)
	result.Outcome = model.OutcomeProcessed
	pipelineMetrics.items.WithLabelValues(string(model.OutcomeProcessed), "").Inc()
	return result
}

func contentTitle(item model.ContentItem, course *model.Course) string {
	if item.Type == model.ItemTypeSyllabus {
		return strings.TrimSpace(course.Name + " Syllabus")
	}
	return item.Title
}

func contentLabel(item model.ContentItem, course *model.Course) string {
	if item.Type == model.ItemTypeSyllabus {
		return "Syllabus: " + course.Name
	}
	return "Page: " + item.Title
}
