package model

import "time"

// VideoRef describes one recording as listed by the video platform
type VideoRef struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	DurationSeconds float64   `json:"durationSeconds"`
	Creator         string    `json:"creator"`
	CreatedAt       time.Time `json:"createdAt"`
	FolderID        string    `json:"folderId,omitempty"`
	Tenant          string    `json:"tenant"`
}

// Course is a course on the course-management platform
type Course struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Syllabus string `json:"-"`
}

// ContentItem is a non-video course item (syllabus or page) in HTML form
type ContentItem struct {
	Type      ItemType `json:"type"`
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	HTML      string   `json:"-"`
	URL       string   `json:"url,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}
