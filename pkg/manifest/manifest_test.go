package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examscraper/pkg/models"
)

func manifestRecord(year int, path string) models.PaperRecord {
	return models.PaperRecord{
		CourseCode:  "CS101",
		Year:        year,
		Title:       "Semester 1",
		DownloadURL: "/files/paper.pdf",
		LocalPath:   path,
	}
}

func TestWriteAndLoad(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir)
	require.NoError(t, err)

	w.Add(manifestRecord(2023, "/papers/CS101/a.pdf"), 1024)
	w.Add(manifestRecord(2022, "/papers/CS101/b.pdf"), 2048)
	require.NoError(t, w.Write())

	doc, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Len(t, doc.Papers, 2)

	// Sorted newest year first within a course
	assert.Equal(t, 2023, doc.Papers[0].Year)
	assert.Equal(t, int64(1024), doc.Papers[0].SizeBytes)
	assert.False(t, doc.Papers[0].DownloadedAt.IsZero())
	assert.Empty(t, doc.Papers[0].ExtractedText)
}

func TestLoadMissingManifest(t *testing.T) {
	doc, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestWriterPreservesEarlierRuns(t *testing.T) {
	dir := t.TempDir()

	first, err := NewWriter(dir)
	require.NoError(t, err)
	first.Add(manifestRecord(2022, "/papers/CS101/b.pdf"), 100)
	require.NoError(t, first.Write())

	second, err := NewWriter(dir)
	require.NoError(t, err)
	second.Add(manifestRecord(2023, "/papers/CS101/a.pdf"), 200)
	require.NoError(t, second.Write())

	doc, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, doc.Papers, 2)
}

func TestWriterReplacesReDownloadedEntry(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir)
	require.NoError(t, err)

	w.Add(manifestRecord(2023, "/old/path.pdf"), 100)
	w.Add(manifestRecord(2023, "/new/path.pdf"), 200)
	require.NoError(t, w.Write())

	doc, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, doc.Papers, 1)
	assert.Equal(t, "/new/path.pdf", doc.Papers[0].LocalPath)
	assert.Equal(t, int64(200), doc.Papers[0].SizeBytes)
}
