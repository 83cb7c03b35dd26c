package models

import (
	"fmt"
	"strings"
)

// PaperRecord is structured metadata for one discoverable past exam paper.
// Records are passed by value and treated as immutable snapshots once they
// cross a channel.
type PaperRecord struct {
	CourseCode  string `json:"course_code"`
	Year        int    `json:"year"`
	Title       string `json:"title"`
	DownloadURL string `json:"download_url"`

	// LocalPath is set only after a successful download
	LocalPath string `json:"local_path,omitempty"`
}

// Key returns the uniqueness key of a record: (course_code, year, title).
// Two records with the same key refer to the same paper.
func (r PaperRecord) Key() string {
	return fmt.Sprintf("%s|%d|%s", strings.ToUpper(r.CourseCode), r.Year, r.Title)
}

// ScrapeJob is a single request to scrape one or more courses. It lives for
// the duration of one orchestrated run.
type ScrapeJob struct {
	// CourseCodes to enumerate. Must not be empty.
	CourseCodes []string

	// DestinationDir is where downloaded documents are written
	DestinationDir string

	// Concurrency overrides the configured download concurrency when > 0
	Concurrency int

	// SelectedKeys limits downloads to the given record keys. Empty means
	// every discovered record is selected.
	SelectedKeys []string
}

// Selects reports whether the job's selection includes the given record
func (j ScrapeJob) Selects(r PaperRecord) bool {
	if len(j.SelectedKeys) == 0 {
		return true
	}
	key := r.Key()
	for _, k := range j.SelectedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// FailedItem pairs a record with the reason its download failed
type FailedItem struct {
	Record PaperRecord `json:"record"`
	Reason string      `json:"reason"`
}

// Summary enumerates the terminal status of every selected record in a job.
// Partial success is reported here, not as a job failure.
type Summary struct {
	Downloaded []PaperRecord `json:"downloaded"`
	Failed     []FailedItem  `json:"failed"`

	// PagesFetched counts listing pages fetched during enumeration
	PagesFetched int `json:"pages_fetched"`

	// ParseWarnings counts entries skipped by the listing parser
	ParseWarnings int `json:"parse_warnings"`
}

// Total returns the number of records that reached a terminal state
func (s Summary) Total() int {
	return len(s.Downloaded) + len(s.Failed)
}
