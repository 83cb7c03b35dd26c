// Package manifest records downloaded papers in a papers.json file next to
// the documents, so later processing steps can find them without re-scanning
// the portal.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"examscraper/pkg/models"
)

// FileName is the manifest file written into the output directory
const FileName = "papers.json"

// Entry describes one downloaded paper
type Entry struct {
	CourseCode   string    `json:"course_code"`
	Year         int       `json:"year"`
	Title        string    `json:"title"`
	DownloadURL  string    `json:"download_url"`
	LocalPath    string    `json:"local_path"`
	SizeBytes    int64     `json:"size_bytes"`
	DownloadedAt time.Time `json:"downloaded_at"`

	// ExtractedText is filled by later text-extraction tooling, never here
	ExtractedText string `json:"extracted_text,omitempty"`
}

// Manifest is the on-disk document
type Manifest struct {
	GeneratedAt time.Time `json:"generated_at"`
	Papers      []Entry   `json:"papers"`
}

// Writer accumulates entries during a run and persists them atomically.
// Existing entries from earlier runs are preserved; a re-downloaded paper
// replaces its old entry.
type Writer struct {
	path string

	mu      sync.Mutex
	entries map[string]Entry // record key -> entry
}

// NewWriter creates a manifest writer for the given output directory,
// loading any manifest left by an earlier run.
func NewWriter(dir string) (*Writer, error) {
	w := &Writer{
		path:    filepath.Join(dir, FileName),
		entries: make(map[string]Entry),
	}

	existing, err := Load(dir)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		for _, e := range existing.Papers {
			w.entries[entryKey(e)] = e
		}
	}

	return w, nil
}

// Add records a downloaded paper. The record must have LocalPath set.
func (w *Writer) Add(rec models.PaperRecord, sizeBytes int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries[rec.Key()] = Entry{
		CourseCode:   rec.CourseCode,
		Year:         rec.Year,
		Title:        rec.Title,
		DownloadURL:  rec.DownloadURL,
		LocalPath:    rec.LocalPath,
		SizeBytes:    sizeBytes,
		DownloadedAt: time.Now().UTC(),
	}
}

// Len returns the number of entries currently held
func (w *Writer) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Write persists the manifest, replacing the file atomically. Entries are
// sorted by course, year descending, title for stable diffs.
func (w *Writer) Write() error {
	w.mu.Lock()
	papers := make([]Entry, 0, len(w.entries))
	for _, e := range w.entries {
		papers = append(papers, e)
	}
	w.mu.Unlock()

	sort.Slice(papers, func(i, j int) bool {
		if papers[i].CourseCode != papers[j].CourseCode {
			return papers[i].CourseCode < papers[j].CourseCode
		}
		if papers[i].Year != papers[j].Year {
			return papers[i].Year > papers[j].Year
		}
		return papers[i].Title < papers[j].Title
	})

	doc := Manifest{
		GeneratedAt: time.Now().UTC(),
		Papers:      papers,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.path), ".manifest-*")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close manifest: %w", err)
	}

	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move manifest into place: %w", err)
	}

	return nil
}

// Load reads the manifest from an output directory. A missing manifest
// returns nil, not an error.
func Load(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var doc Manifest
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &doc, nil
}

func entryKey(e Entry) string {
	return models.PaperRecord{CourseCode: e.CourseCode, Year: e.Year, Title: e.Title}.Key()
}
