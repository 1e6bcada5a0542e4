package model

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Source types recorded in document metadata
type SourceType string

const (
	SourcePanopto       SourceType = "panopto"
	SourceCanvas        SourceType = "canvas"
	SourceCanvasPanopto SourceType = "canvas-panopto"
)

// Item types
type ItemType string

const (
	ItemTypeVideo    ItemType = "video"
	ItemTypePage     ItemType = "page"
	ItemTypeSyllabus ItemType = "syllabus"
)

// Video outcomes
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
)

// Pipeline stages
type Stage string

const (
	StageIdle            Stage = "idle"
	StageFetchingSources Stage = "fetching_sources"
	StageCheckDuplicate  Stage = "check_duplicate"
	StageDownloading     Stage = "downloading"
	StageExtractingAudio Stage = "extracting_audio"
	StageTranscribing    Stage = "transcribing"
	StageAssembling      Stage = "assembling"
	StagePersisting      Stage = "persisting"
	StageCompleted       Stage = "completed"
)
