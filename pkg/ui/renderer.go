package ui

import (
	"fmt"
	"strings"

	"examscraper/pkg/models"
	"examscraper/pkg/scraper"
)

// RenderEvents consumes a scrape event stream and prints a compact progress
// view. It blocks until the channel closes and returns the final summary
// plus the job error, if the run failed.
func RenderEvents(events <-chan scraper.Event) (models.Summary, error) {
	var summary models.Summary
	var runErr error

	for e := range events {
		switch ev := e.(type) {
		case scraper.Started:
			PrintInfo("Courses", strings.Join(ev.CourseCodes, ", "))

		case scraper.PageFetched:
			PrintDim(fmt.Sprintf("  fetched %s listing page %d", ev.CourseCode, ev.Page+1))

		case scraper.RecordsFound:
			if len(ev.Records) > 0 {
				PrintInfo(ev.CourseCode, fmt.Sprintf("%d paper(s) found", len(ev.Records)))
			}
			for _, w := range ev.Warnings {
				PrintWarning("  skipped entry", w)
			}

		case scraper.DownloadProgress:
			name := fmt.Sprintf("%s %d %s", ev.Record.CourseCode, ev.Record.Year, ev.Record.Title)
			switch {
			case ev.Failed:
				PrintError(fmt.Sprintf("  [%d/%d] %s", ev.Completed, ev.Total, name), ev.Reason)
			case ev.Skipped:
				PrintDim(fmt.Sprintf("  [%d/%d] %s (already downloaded)", ev.Completed, ev.Total, name))
			default:
				PrintSuccess(fmt.Sprintf("  [%d/%d] %s", ev.Completed, ev.Total, name))
			}

		case scraper.Completed:
			summary = ev.Summary

		case scraper.Failed:
			summary = ev.Partial
			runErr = ev.Err
		}
	}

	return summary, runErr
}

// PrintSummary prints the end-of-run totals
func PrintSummary(summary models.Summary) {
	PrintInfo("Downloaded", fmt.Sprintf("%d", len(summary.Downloaded)))
	if len(summary.Failed) > 0 {
		PrintWarning("Failed", fmt.Sprintf("%d", len(summary.Failed)))
		for _, item := range summary.Failed {
			label := item.Record.CourseCode
			if item.Record.Year > 0 {
				label = fmt.Sprintf("%s %d", label, item.Record.Year)
			}
			PrintDim(fmt.Sprintf("  %s: %s", label, item.Reason))
		}
	}
	if summary.ParseWarnings > 0 {
		PrintWarning("Listing entries skipped", fmt.Sprintf("%d", summary.ParseWarnings))
	}
}
