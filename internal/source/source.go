// Package source defines the capability the ingest pipeline needs from a
// video platform, independent of whether it is reached directly or through
// a course-management integration.
package source

import (
	"context"

	"github.com/The-Clarity-Projekt/chat-client/internal/identifier"
	"github.com/The-Clarity-Projekt/chat-client/internal/model"
)

// Source enumerates the collections of videos available for one tenant.
type Source interface {
	// Kind is the identifier prefix for videos from this source.
	Kind() identifier.Kind
	// Namespace is the storage namespace documents are written under.
	Namespace() string
	Tenant() string
	ServerURL() string
	// Probe checks that the remote platform is reachable with the
	// configured credentials.
	Probe(ctx context.Context) error
	Collections(ctx context.Context) ([]Collection, error)
}

// Collection is a group of videos that share one download client, such as a
// Panopto folder or the Panopto folder embedded in one course.
type Collection interface {
	// Scope holds the identifier segments between tenant and video id.
	Scope() []string
	Label() string
	// Course is nil for collections that are not attached to a course.
	Course() *model.Course
	ListVideos(ctx context.Context) ([]model.VideoRef, error)
	DownloadVideo(ctx context.Context, videoID string) ([]byte, error)
	ExtractAudio(ctx context.Context, video []byte) ([]byte, error)
}

// ContentCollection is implemented by collections that also expose
// non-video course content. ContentItems may leave HTML empty; ContentBody
// fetches it on demand so already-ingested items cost no extra request.
type ContentCollection interface {
	ContentItems(ctx context.Context) ([]model.ContentItem, error)
	ContentBody(ctx context.Context, item model.ContentItem) (string, error)
}

// AudioExtractor turns raw video bytes into an audio payload.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, video []byte) ([]byte, error)
}
