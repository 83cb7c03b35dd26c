package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"examscraper/pkg/errors"
	"examscraper/pkg/logger"
	"examscraper/pkg/models"
)

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// Manager owns the destination directory tree for downloaded papers. File
// names are deterministic functions of the record, so re-running a job skips
// papers that are already on disk.
type Manager struct {
	baseDir             string
	createCourseFolders bool
	logger              logger.Logger

	mu         sync.Mutex
	downloaded map[string]string // record key -> local path
}

// NewManager creates a storage manager rooted at baseDir, creating the
// directory if needed and indexing papers already present from earlier runs.
func NewManager(baseDir string, createCourseFolders bool, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	m := &Manager{
		baseDir:             baseDir,
		createCourseFolders: createCourseFolders,
		logger:              log,
		downloaded:          make(map[string]string),
	}

	return m, nil
}

// BaseDir returns the root of the destination tree
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// FileName returns the deterministic file name for a record:
// <course>-<year>-<title-slug>.pdf, lower-cased with unsafe characters
// replaced so the name is valid on every common filesystem.
func FileName(r models.PaperRecord) string {
	return fmt.Sprintf("%s-%d-%s.pdf", slug(r.CourseCode), r.Year, slug(r.Title))
}

// PathFor returns the absolute destination path for a record
func (m *Manager) PathFor(r models.PaperRecord) string {
	if m.createCourseFolders {
		return filepath.Join(m.baseDir, strings.ToUpper(r.CourseCode), FileName(r))
	}
	return filepath.Join(m.baseDir, FileName(r))
}

// Exists reports whether the record's paper is already on disk, either from
// this run or a previous one. Zero-byte leftovers do not count.
func (m *Manager) Exists(r models.PaperRecord) (string, bool) {
	m.mu.Lock()
	if path, ok := m.downloaded[r.Key()]; ok {
		m.mu.Unlock()
		return path, true
	}
	m.mu.Unlock()

	path := m.PathFor(r)
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return "", false
	}

	m.mu.Lock()
	m.downloaded[r.Key()] = path
	m.mu.Unlock()

	return path, true
}

// Save streams a document body to the record's destination path. The body is
// written to a temp file first and renamed into place only after size
// verification, so a partial download never lands at the final path.
// expectedSize below zero skips the length check.
func (m *Manager) Save(r models.PaperRecord, body io.Reader, expectedSize int64) (string, int64, error) {
	finalPath := m.PathFor(r)

	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create course directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(finalPath), ".download-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, body)
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tmpPath)
		return "", 0, errors.NewDownloadError("failed to write document: %v", err)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", 0, errors.NewDownloadError("failed to close temp file: %v", closeErr)
	}

	if written == 0 {
		os.Remove(tmpPath)
		return "", 0, errors.NewDownloadError("downloaded document is empty")
	}
	if expectedSize >= 0 && written != expectedSize {
		os.Remove(tmpPath)
		return "", 0, errors.NewDownloadError("size mismatch: got %d bytes, expected %d", written, expectedSize)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("failed to move document into place: %w", err)
	}

	m.mu.Lock()
	m.downloaded[r.Key()] = finalPath
	m.mu.Unlock()

	m.logger.DebugWithFields("document saved", map[string]interface{}{
		"path": finalPath,
		"size": written,
	})

	return finalPath, written, nil
}

// DownloadedCount returns how many papers this manager has seen on disk
func (m *Manager) DownloadedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.downloaded)
}

// slug lower-cases a string and replaces runs of unsafe characters with a
// single hyphen
func slug(s string) string {
	out := unsafeChars.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(out, "-")
}
