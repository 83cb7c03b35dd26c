// Package scraper orchestrates a scrape job: login, listing enumeration,
// parsing, and concurrent downloads, reported over a single event channel.
package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"sync"

	"examscraper/internal/fetcher"
	"examscraper/pkg/auth"
	"examscraper/pkg/config"
	"examscraper/pkg/errors"
	"examscraper/pkg/listing"
	"examscraper/pkg/logger"
	"examscraper/pkg/manifest"
	"examscraper/pkg/models"
	"examscraper/pkg/portal"
	"examscraper/pkg/ratelimit"
	"examscraper/pkg/storage"
)

// maxListingPages caps pager traversal per course so a broken pager cannot
// loop forever
const maxListingPages = 50

// State is the orchestrator's current phase
type State string

const (
	StateIdle        State = "idle"
	StateLoggingIn   State = "logging_in"
	StateEnumerating State = "enumerating"
	StateParsing     State = "parsing"
	StateDownloading State = "downloading"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// Scraper coordinates one scrape job at a time. All portal traffic goes
// through the shared session client; all progress is reported as events.
type Scraper struct {
	client      PortalClient
	parser      ListingParser
	store       *storage.Manager
	cfg         *config.Config
	credentials *auth.Credentials
	manifestW   *manifest.Writer
	limiter     ratelimit.Limiter
	logger      logger.Logger

	mu    sync.Mutex
	state State
}

// Option configures a Scraper
type Option func(*Scraper)

// WithCredentials sets the portal account to log in with. Without
// credentials the scraper assumes the session is already usable.
func WithCredentials(creds *auth.Credentials) Option {
	return func(s *Scraper) { s.credentials = creds }
}

// WithManifest enables manifest writing after a run
func WithManifest(w *manifest.Writer) Option {
	return func(s *Scraper) { s.manifestW = w }
}

// WithRateLimiter sets the download rate limiter
func WithRateLimiter(l ratelimit.Limiter) Option {
	return func(s *Scraper) { s.limiter = l }
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(s *Scraper) { s.logger = log }
}

// WithParser overrides the listing parser
func WithParser(p ListingParser) Option {
	return func(s *Scraper) { s.parser = p }
}

// New creates a scraper for the given portal session and destination store
func New(client PortalClient, store *storage.Manager, cfg *config.Config, opts ...Option) *Scraper {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Scraper{
		client: client,
		parser: listing.NewParser(),
		store:  store,
		cfg:    cfg,
		state:  StateIdle,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.GetLogger()
	}

	return s
}

// State returns the orchestrator's current phase
func (s *Scraper) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scraper) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Start runs the job on its own goroutine and returns the event channel.
// The channel delivers events in order, ends with exactly one Completed or
// Failed event, and is then closed. Cancelling the context stops the run
// within one download step; already-downloaded files are kept.
func (s *Scraper) Start(ctx context.Context, job models.ScrapeJob) <-chan Event {
	events := make(chan Event, 32)
	go s.run(ctx, job, events)
	return events
}

func (s *Scraper) run(ctx context.Context, job models.ScrapeJob, events chan<- Event) {
	defer close(events)

	fail := func(err error, partial models.Summary) {
		s.setState(StateFailed)
		s.logger.WithError(err).Error("scrape job failed")
		s.emit(ctx, events, Failed{Err: err, Partial: partial})
	}

	var summary models.Summary

	codes := sanitizeCourseCodes(job.CourseCodes)
	if len(codes) == 0 {
		fail(errors.New(errors.ErrorTypeParse, 0, "no valid course codes in job"), summary)
		return
	}

	store := s.store
	if job.DestinationDir != "" && job.DestinationDir != store.BaseDir() {
		override, err := storage.NewManager(job.DestinationDir, s.cfg.Output.CreateCourseFolders, s.logger)
		if err != nil {
			fail(err, summary)
			return
		}
		store = override
	}

	s.emit(ctx, events, Started{CourseCodes: codes})

	if s.credentials != nil {
		s.setState(StateLoggingIn)
		if err := s.client.Login(ctx, s.credentials.Username, s.credentials.Password); err != nil {
			fail(err, summary)
			return
		}
	}

	s.setState(StateEnumerating)
	records, err := s.enumerate(ctx, codes, job, &summary, events)
	if err != nil {
		fail(err, summary)
		return
	}

	if len(records) == 0 {
		s.setState(StateCompleted)
		s.logger.Info("no papers to download")
		s.emit(ctx, events, Completed{Summary: summary})
		return
	}

	s.setState(StateDownloading)
	authErr := s.download(ctx, store, records, job, &summary, events)

	if authErr != nil {
		fail(authErr, summary)
		return
	}
	if ctx.Err() != nil {
		fail(ctx.Err(), summary)
		return
	}

	if s.manifestW != nil {
		if err := s.manifestW.Write(); err != nil {
			s.logger.WithError(err).Warn("failed to write manifest")
		}
	}

	s.setState(StateCompleted)
	s.logger.InfoWithFields("scrape job completed", map[string]interface{}{
		"downloaded": len(summary.Downloaded),
		"failed":     len(summary.Failed),
		"pages":      summary.PagesFetched,
	})
	s.emit(ctx, events, Completed{Summary: summary})
}

// enumerate walks every listing page of every course, collecting the
// selected records exactly once. Auth and context errors abort the job;
// any other failure skips the affected course and is reported in the
// summary.
func (s *Scraper) enumerate(ctx context.Context, codes []string, job models.ScrapeJob, summary *models.Summary, events chan<- Event) ([]models.PaperRecord, error) {
	var records []models.PaperRecord
	seen := make(map[string]struct{})

	listingPath := s.cfg.Portal.ExamPapersPath
	if listingPath == "" {
		listingPath = portal.ExamPapersPath
	}

	for _, code := range codes {
		for page := 0; page < maxListingPages; page++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			body, err := s.client.GetHTML(ctx, listingPath, portal.ListingParams(code, page))
			if err != nil {
				if isJobFatal(err) {
					return nil, err
				}
				s.logger.WithError(err).WarnWithFields("course enumeration failed", map[string]interface{}{
					"course": code,
					"page":   page,
				})
				summary.Failed = append(summary.Failed, models.FailedItem{
					Record: models.PaperRecord{CourseCode: code},
					Reason: fmt.Sprintf("listing page %d: %v", page, err),
				})
				break
			}

			summary.PagesFetched++
			s.emit(ctx, events, PageFetched{CourseCode: code, Page: page})

			s.setState(StateParsing)
			result, err := s.parser.Parse(body, code)
			s.setState(StateEnumerating)
			if err != nil {
				summary.Failed = append(summary.Failed, models.FailedItem{
					Record: models.PaperRecord{CourseCode: code},
					Reason: fmt.Sprintf("listing page %d: %v", page, err),
				})
				break
			}

			summary.ParseWarnings += len(result.Warnings)
			for _, w := range result.Warnings {
				s.logger.WarnWithFields("listing entry skipped", map[string]interface{}{
					"course": code,
					"page":   page,
					"detail": w,
				})
			}

			var fresh []models.PaperRecord
			for _, rec := range result.Records {
				if !s.inYearWindow(rec.Year) {
					continue
				}
				if !job.Selects(rec) {
					continue
				}
				if _, dup := seen[rec.Key()]; dup {
					continue
				}
				seen[rec.Key()] = struct{}{}
				fresh = append(fresh, rec)
			}
			records = append(records, fresh...)

			s.emit(ctx, events, RecordsFound{
				CourseCode: code,
				Page:       page,
				Records:    fresh,
				Warnings:   result.Warnings,
			})

			if !result.HasNextPage {
				break
			}
		}
	}

	return records, nil
}

// download runs the selected records through the worker pool and folds the
// results into the summary. Returns the auth error that aborted the run,
// if any.
func (s *Scraper) download(ctx context.Context, store *storage.Manager, records []models.PaperRecord, job models.ScrapeJob, summary *models.Summary, events chan<- Event) error {
	concurrency := job.Concurrency
	if concurrency <= 0 {
		concurrency = s.cfg.Download.ConcurrentDownloads
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	f := fetcher.NewFetcher(s.client, store, s.cfg.Download.DownloadTimeout, s.logger)
	pool := fetcher.NewWorkerPool(concurrency, f, s.limiter, s.logger)
	pool.Start(runCtx)

	go func() {
		for _, rec := range records {
			if !pool.Submit(runCtx, fetcher.Job{Record: rec}) {
				break
			}
		}
		pool.Stop()
	}()

	var authErr error
	total := len(records)
	completed := 0
	resolved := make(map[string]struct{}, total)

	for result := range pool.Results() {
		resolved[result.Record.Key()] = struct{}{}

		// Jobs cancelled before their download began reach the summary but
		// produce no progress event
		if result.NotStarted {
			summary.Failed = append(summary.Failed, models.FailedItem{
				Record: result.Record,
				Reason: result.Reason,
			})
			continue
		}

		completed++

		if result.Err != nil {
			if isJobFatal(result.Err) && authErr == nil {
				authErr = result.Err
				cancel()
			}
			summary.Failed = append(summary.Failed, models.FailedItem{
				Record: result.Record,
				Reason: result.Reason,
			})
			s.emit(ctx, events, DownloadProgress{
				Record:    result.Record,
				Completed: completed,
				Total:     total,
				Failed:    true,
				Reason:    result.Reason,
			})
			continue
		}

		summary.Downloaded = append(summary.Downloaded, result.Record)
		if s.manifestW != nil {
			s.manifestW.Add(result.Record, fileSize(result.Record.LocalPath))
		}
		s.emit(ctx, events, DownloadProgress{
			Record:    result.Record,
			Completed: completed,
			Total:     total,
			Skipped:   result.Skipped,
		})
	}

	// Records that never made it into the pool before cancellation still get
	// a terminal entry in the summary, with no progress event
	if err := runCtx.Err(); err != nil {
		for _, rec := range records {
			if _, ok := resolved[rec.Key()]; ok {
				continue
			}
			summary.Failed = append(summary.Failed, models.FailedItem{
				Record: rec,
				Reason: err.Error(),
			})
		}
	}

	return authErr
}

// emit delivers an event without wedging the orchestrator when the consumer
// has gone away after cancellation
func (s *Scraper) emit(ctx context.Context, events chan<- Event, e Event) {
	select {
	case events <- e:
	case <-ctx.Done():
		select {
		case events <- e:
		default:
		}
	}
}

func (s *Scraper) inYearWindow(year int) bool {
	from, to := s.cfg.Papers.YearFrom, s.cfg.Papers.YearTo
	if from == 0 && to == 0 {
		return true
	}
	if from > 0 && year < from {
		return false
	}
	if to > 0 && year > to {
		return false
	}
	return true
}

// isJobFatal reports whether an error must abort the whole job rather than
// one item
func isJobFatal(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var typed *errors.Error
	if stderrors.As(err, &typed) {
		return typed.Type == errors.ErrorTypeAuth
	}
	return false
}

func sanitizeCourseCodes(codes []string) []string {
	var out []string
	for _, code := range codes {
		code = portal.SanitizeCourseCode(code)
		if portal.IsValidCourseCode(code) {
			out = append(out, code)
		}
	}
	return out
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
