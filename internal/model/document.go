package model

import "time"

// Document is the persisted unit of transcribed or extracted content
type Document struct {
	ID       string           `json:"id" bson:"id"`
	Title    string           `json:"title" bson:"title"`
	Content  string           `json:"content" bson:"content"`
	Metadata DocumentMetadata `json:"metadata" bson:"metadata"`
}

// DocumentMetadata carries the dedup identifier and provenance of a document.
// Identifier must equal the identifier used in the document's storage path.
type DocumentMetadata struct {
	Source      SourceType `json:"source" bson:"source"`
	Type        ItemType   `json:"type,omitempty" bson:"type,omitempty"`
	Identifier  string     `json:"identifier" bson:"identifier"`
	VideoID     string     `json:"videoId,omitempty" bson:"videoId,omitempty"`
	CourseID    string     `json:"courseId,omitempty" bson:"courseId,omitempty"`
	CourseName  string     `json:"courseName,omitempty" bson:"courseName,omitempty"`
	CourseCode  string     `json:"courseCode,omitempty" bson:"courseCode,omitempty"`
	Folder      string     `json:"folder,omitempty" bson:"folder,omitempty"`
	Duration    float64    `json:"duration,omitempty" bson:"duration,omitempty"`
	Creator     string     `json:"creator,omitempty" bson:"creator,omitempty"`
	Created     *time.Time `json:"created,omitempty" bson:"created,omitempty"`
	PageURL     string     `json:"pageUrl,omitempty" bson:"pageUrl,omitempty"`
	LastUpdated string     `json:"lastUpdated,omitempty" bson:"lastUpdated,omitempty"`
	University  string     `json:"university" bson:"university"`
	ServerURL   string     `json:"serverUrl,omitempty" bson:"serverUrl,omitempty"`
}
