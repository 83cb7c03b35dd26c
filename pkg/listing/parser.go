// Package listing extracts paper records from portal listing pages. The
// parser is pure: it never performs I/O and tolerates partial markup by
// skipping malformed entries and reporting them as warnings.
package listing

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"examscraper/pkg/errors"
	"examscraper/pkg/models"
)

// yearPattern matches a plausible exam year anywhere in a title or href
var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Result is the outcome of parsing one listing page
type Result struct {
	// Records in document order
	Records []models.PaperRecord

	// Warnings describe entries that were skipped, one per entry
	Warnings []string

	// HasNextPage is true when the page carries a pager link to the next page
	HasNextPage bool
}

// Parser turns listing page HTML into paper records
type Parser struct{}

// NewParser creates a listing parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts paper records for a course from a listing page. Document
// order is preserved. Entries missing a usable link, title, or year are
// skipped and reported in Warnings. A page with no paper links at all yields
// zero records and a single warning, not an error; only unreadable HTML is
// an error.
func (p *Parser) Parse(body []byte, courseCode string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.New(errors.ErrorTypeParse, 0, "failed to parse listing HTML: %v", err)
	}

	result := &Result{
		HasNextPage: hasNextPage(doc),
	}

	anchors := doc.Find(`a[href]`).FilterFunction(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		return isDocumentHref(href)
	})

	if anchors.Length() == 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("no paper links found for course %s", courseCode))
		return result, nil
	}

	anchors.Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")

		title := entryTitle(s, href)
		if title == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry %d: no usable title for %s", i+1, href))
			return
		}

		year, ok := extractYear(title, href)
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry %d: no year found in %q", i+1, title))
			return
		}

		result.Records = append(result.Records, models.PaperRecord{
			CourseCode:  strings.ToUpper(courseCode),
			Year:        year,
			Title:       title,
			DownloadURL: href,
		})
	})

	return result, nil
}

// isDocumentHref reports whether an href points at a downloadable paper
func isDocumentHref(href string) bool {
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".pdf")
}

// entryTitle derives a title for an anchor: the anchor text when present,
// otherwise the text of the enclosing listing row, otherwise the filename.
func entryTitle(s *goquery.Selection, href string) string {
	title := collapseWhitespace(s.Text())
	if title != "" {
		return title
	}

	row := s.Closest("tr, li, .views-row")
	if row.Length() > 0 {
		if title = collapseWhitespace(row.Text()); title != "" {
			return title
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	name := strings.TrimSuffix(path.Base(u.Path), path.Ext(u.Path))
	return collapseWhitespace(strings.NewReplacer("_", " ", "-", " ").Replace(name))
}

// extractYear finds the paper's year, preferring the title over the href
func extractYear(title, href string) (int, bool) {
	for _, candidate := range []string{title, href} {
		if match := yearPattern.FindString(candidate); match != "" {
			year, err := strconv.Atoi(match)
			if err == nil {
				return year, true
			}
		}
	}
	return 0, false
}

// hasNextPage looks for the Drupal pager's next link
func hasNextPage(doc *goquery.Document) bool {
	selectors := []string{
		`li.pager-next a`,
		`li.pager__item--next a`,
		`a[rel="next"]`,
	}
	for _, sel := range selectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// collapseWhitespace trims and squeezes runs of whitespace to single spaces
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
