package scraper

import "examscraper/pkg/models"

// Event is a progress notification emitted during a scrape run. Events
// arrive on a single channel in the order they occurred; exactly one
// terminal event (Completed or Failed) is emitted per run, after which the
// channel is closed. Consumers never block the scraper's workers: only the
// orchestrator goroutine writes events.
type Event interface {
	isEvent()
}

// Started is emitted once when a job begins
type Started struct {
	CourseCodes []string
}

// PageFetched is emitted after each listing page is retrieved
type PageFetched struct {
	CourseCode string
	Page       int
}

// RecordsFound is emitted after a listing page is parsed. Records are the
// new records discovered on that page, after year filtering and
// deduplication.
type RecordsFound struct {
	CourseCode string
	Page       int
	Records    []models.PaperRecord
	Warnings   []string
}

// DownloadProgress is emitted when a record's download reaches a terminal
// state. Records cancelled before their download began produce no event;
// they appear only in the summary.
type DownloadProgress struct {
	Record models.PaperRecord

	// Completed and Total track overall job progress
	Completed int
	Total     int

	// Skipped is true when the document was already on disk
	Skipped bool

	// Failed is true when the download failed; Reason says why
	Failed bool
	Reason string
}

// Completed is the terminal event for a run that finished, including runs
// where some downloads failed. Per-item failures live in the summary.
type Completed struct {
	Summary models.Summary
}

// Failed is the terminal event for a run that could not finish: login
// rejected, session expired mid-run, or the context cancelled.
type Failed struct {
	Err error

	// Partial holds whatever completed before the failure
	Partial models.Summary
}

func (Started) isEvent()          {}
func (PageFetched) isEvent()      {}
func (RecordsFound) isEvent()     {}
func (DownloadProgress) isEvent() {}
func (Completed) isEvent()        {}
func (Failed) isEvent()           {}
