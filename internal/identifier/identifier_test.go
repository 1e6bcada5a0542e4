package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormats(t *testing.T) {
	assert.Equal(t, "panopto-example-1", Video("example", "1"))
	assert.Equal(t, "canvas-panopto-example-42-abc", CourseVideo("example", "42", "abc"))
	assert.Equal(t, "canvas-example-42-page-welcome", CourseItem("example", "42", "page", "welcome"))
	assert.Equal(t, "canvas-example-42-syllabus-main", CourseItem("example", "42", "syllabus", "main"))
}

func TestFormatsKeepHyphenatedIDs(t *testing.T) {
	guid := "bf3f0e1d-8a2c-4c1e-9f1a-b0c4a1d2e3f4"
	assert.Equal(t, "panopto-example-"+guid, Video("example", guid))
	assert.Equal(t, "canvas-panopto-example-42-"+guid, CourseVideo("example", "42", guid))
	assert.Equal(t, "canvas-uni-123-page-week-1-notes", CourseItem("uni", "123", "page", "week-1-notes"))
}

func TestDeterministic(t *testing.T) {
	cases := []struct{ tenant, id string }{
		{"example", "1"},
		{"uni", "8f1c2d3e-aaaa-bbbb-cccc-0123456789ab"},
		{"", ""},
		{"a%b", "c/d"},
	}
	for _, tc := range cases {
		first := Video(tc.tenant, tc.id)
		second := Video(tc.tenant, tc.id)
		assert.Equal(t, first, second, "tenant=%q id=%q", tc.tenant, tc.id)
	}
}

func TestEscapingKeepsKeysDistinct(t *testing.T) {
	// Without escaping these two tuples would both render as panopto-a-b-c.
	a := For(KindPanopto, "a-b", "c")
	b := For(KindPanopto, "a", "b-c")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "panopto-a%2Db-c", a)
	assert.Equal(t, "panopto-a-b-c", b)

	// Same for a hyphenated course id in front of a hyphenated video id.
	assert.NotEqual(t, CourseVideo("uni", "1-2", "3"), CourseVideo("uni", "1", "2-3"))

	// A literal escape sequence must not collide with an escaped delimiter.
	assert.NotEqual(t, For(KindPanopto, "t", "x%2Dy"), For(KindPanopto, "t", "x-y"))
	assert.NotEqual(t, CourseVideo("uni", "x%2Dy", "z"), CourseVideo("uni", "x-y", "z"))
}

func TestSegmentsNeverContainSlash(t *testing.T) {
	id := CourseVideo("uni", "12/34", "5-6/7")
	assert.Equal(t, "canvas-panopto-uni-12%2F34-5-6%2F7", id)
	assert.NotContains(t, Path("canvas", id)[len("canvas/"):], "/")
}

func TestPrefixIdentifiersDiffer(t *testing.T) {
	assert.NotEqual(t, Video("uni", "1"), Video("uni", "10"))
}

func TestPath(t *testing.T) {
	assert.Equal(t, "panopto/panopto-example-1.json", Path("panopto", Video("example", "1")))
}
