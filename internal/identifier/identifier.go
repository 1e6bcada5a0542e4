// Package identifier builds the deterministic keys used to deduplicate
// ingested items across runs. The same inputs always yield the same key.
package identifier

import "strings"

// Kind is the fixed prefix naming where an item came from.
type Kind string

const (
	KindPanopto       Kind = "panopto"
	KindCanvasPanopto Kind = "canvas-panopto"
	KindCanvas        Kind = "canvas"
)

// Delimiter separates the kind, tenant, and path segments.
const Delimiter = "-"

var segmentEscaper = strings.NewReplacer(
	"%", "%25",
	"-", "%2D",
	"/", "%2F",
)

var tailEscaper = strings.NewReplacer(
	"%", "%25",
	"/", "%2F",
)

// For returns kind-tenant-seg1-...-segN. The tenant and every segment but
// the last are escaped so they never contain the delimiter; the last
// segment keeps its '-' so GUIDs and slugs render verbatim. Keys are
// unambiguous only among calls with the same kind and segment count, which
// the helpers below fix. No value ever contains a path separator.
func For(kind Kind, tenant string, segments ...string) string {
	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteString(Delimiter)
	if len(segments) == 0 {
		b.WriteString(escapeTail(tenant))
		return b.String()
	}
	b.WriteString(escape(tenant))
	for i, s := range segments {
		b.WriteString(Delimiter)
		if i == len(segments)-1 {
			b.WriteString(escapeTail(s))
		} else {
			b.WriteString(escape(s))
		}
	}
	return b.String()
}

// Video is the key of a recording reached directly on the video platform.
func Video(tenant, videoID string) string {
	return For(KindPanopto, tenant, videoID)
}

// CourseVideo is the key of a recording reached through a course.
func CourseVideo(tenant, courseID, videoID string) string {
	return For(KindCanvasPanopto, tenant, courseID, videoID)
}

// CourseItem is the key of non-video course content.
func CourseItem(tenant, courseID, itemType, itemID string) string {
	return For(KindCanvas, tenant, courseID, itemType, itemID)
}

// Path is the storage path for a document: <namespace>/<id>.json
func Path(namespace, id string) string {
	return namespace + "/" + id + ".json"
}

func escape(s string) string {
	if !strings.ContainsAny(s, "%-/") {
		return s
	}
	return segmentEscaper.Replace(s)
}

func escapeTail(s string) string {
	if !strings.ContainsAny(s, "%/") {
		return s
	}
	return tailEscaper.Replace(s)
}
