package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examscraper/pkg/errors"
	"examscraper/pkg/logger"
	"examscraper/pkg/models"
)

func poolBodies(years ...int) map[string]string {
	bodies := make(map[string]string)
	for _, y := range years {
		bodies[record(y).DownloadURL] = fmt.Sprintf("%%PDF-1.4 paper %d", y)
	}
	return bodies
}

func TestWorkerPoolDownloadsAllJobs(t *testing.T) {
	years := []int{2019, 2020, 2021, 2022, 2023}
	client := &fakeClient{bodies: poolBodies(years...)}
	store := testStore(t)
	f := NewFetcher(client, store, 0, logger.NewTestLogger())

	pool := NewWorkerPool(3, f, nil, logger.NewTestLogger())
	ctx := context.Background()
	pool.Start(ctx)

	go func() {
		for _, y := range years {
			pool.Submit(ctx, Job{Record: record(y)})
		}
		pool.Stop()
	}()

	var results []Result
	for r := range pool.Results() {
		results = append(results, r)
	}

	require.Len(t, results, len(years), "exactly one result per job")
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.NotEmpty(t, r.Record.LocalPath)
	}
}

func TestWorkerPoolReportsFailuresPerItem(t *testing.T) {
	// 2021 is missing from the server, the rest succeed
	client := &fakeClient{bodies: poolBodies(2022, 2023)}
	store := testStore(t)
	f := NewFetcher(client, store, 0, logger.NewTestLogger())

	pool := NewWorkerPool(2, f, nil, logger.NewTestLogger())
	ctx := context.Background()
	pool.Start(ctx)

	go func() {
		for _, y := range []int{2021, 2022, 2023} {
			pool.Submit(ctx, Job{Record: record(y)})
		}
		pool.Stop()
	}()

	var ok, failed int
	for r := range pool.Results() {
		if r.Err != nil {
			failed++
			assert.NotEmpty(t, r.Reason)

			var typed *errors.Error
			require.ErrorAs(t, r.Err, &typed)
			assert.Equal(t, errors.ErrorTypeNotFound, typed.Type)
		} else {
			ok++
		}
	}

	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed, "one failed item does not affect the others")
}

func TestWorkerPoolSkipsExistingDocuments(t *testing.T) {
	client := &fakeClient{bodies: poolBodies(2023)}
	store := testStore(t)
	f := NewFetcher(client, store, 0, logger.NewTestLogger())

	_, _, err := f.Fetch(context.Background(), record(2023))
	require.NoError(t, err)

	pool := NewWorkerPool(1, f, nil, logger.NewTestLogger())
	ctx := context.Background()
	pool.Start(ctx)

	go func() {
		pool.Submit(ctx, Job{Record: record(2023)})
		pool.Stop()
	}()

	var results []Result
	for r := range pool.Results() {
		results = append(results, r)
	}

	require.Len(t, results, 1)
	assert.True(t, results[0].Skipped)
	assert.NoError(t, results[0].Err)
}

func TestWorkerPoolStopsOnCancellation(t *testing.T) {
	client := &fakeClient{bodies: poolBodies(2020, 2021, 2022, 2023)}
	store := testStore(t)
	f := NewFetcher(client, store, 0, logger.NewTestLogger())

	pool := NewWorkerPool(1, f, nil, logger.NewTestLogger())
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, y := range []int{2020, 2021, 2022, 2023} {
			pool.Submit(ctx, Job{Record: record(y)})
		}
		pool.Stop()
		for range pool.Results() {
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not shut down after cancellation")
	}
}

// stallingClient signals which download began, then blocks it until the
// context is cancelled
type stallingClient struct {
	started chan string
}

func (c *stallingClient) FetchDocument(ctx context.Context, rawURL string) (*http.Response, error) {
	c.started <- rawURL
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWorkerPoolMarksQueuedJobsNotStartedOnCancellation(t *testing.T) {
	client := &stallingClient{started: make(chan string, 1)}
	store := testStore(t)
	f := NewFetcher(client, store, 0, logger.NewTestLogger())

	pool := NewWorkerPool(1, f, nil, logger.NewTestLogger())
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	go func() {
		pool.Submit(ctx, Job{Record: record(2020)})
		pool.Submit(ctx, Job{Record: record(2021)})
		pool.Stop()
	}()

	var inFlight string
	select {
	case inFlight = <-client.started:
	case <-time.After(5 * time.Second):
		t.Fatal("no download started")
	}
	cancel()

	var results []Result
	for r := range pool.Results() {
		results = append(results, r)
	}

	require.Len(t, results, 2, "exactly one result per job")
	for _, r := range results {
		require.Error(t, r.Err)
		if r.Record.DownloadURL == inFlight {
			assert.False(t, r.NotStarted, "the in-flight download had started")
		} else {
			assert.True(t, r.NotStarted, "queued jobs never started")
		}
	}
}

func TestWorkerPoolSubmitAfterCancel(t *testing.T) {
	pool := NewWorkerPool(1, nil, nil, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Fill the buffered queue so Submit has to block, then hit the ctx path
	for i := 0; i < cap(pool.jobs); i++ {
		pool.jobs <- Job{Record: models.PaperRecord{Year: i}}
	}

	assert.False(t, pool.Submit(ctx, Job{Record: models.PaperRecord{Year: 99}}))
}
