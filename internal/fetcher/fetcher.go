// Package fetcher downloads paper documents through a bounded worker pool.
package fetcher

import (
	"context"
	"net/http"
	"time"

	"examscraper/pkg/errors"
	"examscraper/pkg/logger"
	"examscraper/pkg/models"
	"examscraper/pkg/storage"
)

// DocumentClient fetches a document and returns the open response for
// streaming. Satisfied by the portal client.
type DocumentClient interface {
	FetchDocument(ctx context.Context, rawURL string) (*http.Response, error)
}

// Fetcher downloads one document at a time to the destination tree. Fetching
// the same record twice is a no-op once the file is on disk.
type Fetcher struct {
	client  DocumentClient
	store   *storage.Manager
	timeout time.Duration
	logger  logger.Logger
}

// NewFetcher creates a fetcher. A timeout of zero disables the per-download
// deadline.
func NewFetcher(client DocumentClient, store *storage.Manager, timeout time.Duration, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{
		client:  client,
		store:   store,
		timeout: timeout,
		logger:  log,
	}
}

// Fetch downloads a record's document and returns the record with LocalPath
// set. When the document is already on disk the existing path is returned
// and skipped is true.
func (f *Fetcher) Fetch(ctx context.Context, rec models.PaperRecord) (result models.PaperRecord, skipped bool, err error) {
	if path, ok := f.store.Exists(rec); ok {
		f.logger.DebugWithFields("document already downloaded", map[string]interface{}{
			"course": rec.CourseCode,
			"year":   rec.Year,
			"path":   path,
		})
		rec.LocalPath = path
		return rec, true, nil
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	resp, err := f.client.FetchDocument(ctx, rec.DownloadURL)
	if err != nil {
		return rec, false, err
	}
	defer resp.Body.Close()

	expectedSize := resp.ContentLength
	if expectedSize < 0 {
		expectedSize = -1
	}

	path, size, err := f.store.Save(rec, resp.Body, expectedSize)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return rec, false, ctxErr
		}
		return rec, false, err
	}

	f.logger.InfoWithFields("document downloaded", map[string]interface{}{
		"course": rec.CourseCode,
		"year":   rec.Year,
		"title":  rec.Title,
		"size":   size,
	})

	rec.LocalPath = path
	return rec, false, nil
}

// reasonFor condenses a download error into a short human-readable reason
func reasonFor(err error) string {
	if typed, ok := err.(*errors.Error); ok {
		return typed.Message
	}
	return err.Error()
}
