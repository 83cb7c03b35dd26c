package portal

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the base URL for the university portal
	DefaultBaseURL = "https://www.maynoothuniversity.ie"

	// ExamPapersPath is the path of the exam papers listing and login page
	ExamPapersPath = "/library/exam-papers"

	// courseCodeParam is the Drupal views filter for the course code
	courseCodeParam = "code_value_1"

	// pageParam is the Drupal views pager parameter
	pageParam = "page"
)

// ListingParams builds the query parameters for a course listing page.
// Page numbering starts at zero; page zero omits the pager parameter.
func ListingParams(courseCode string, page int) url.Values {
	params := url.Values{}
	params.Set(courseCodeParam, courseCode)
	if page > 0 {
		params.Set(pageParam, strconv.Itoa(page))
	}
	return params
}

// IsValidCourseCode checks that a course code looks like a real module code:
// letters followed by digits, e.g. CS101 or EE304.
func IsValidCourseCode(code string) bool {
	if len(code) < 3 || len(code) > 12 {
		return false
	}

	seenLetter := false
	seenDigit := false
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			if seenDigit {
				return false
			}
			seenLetter = true
		case r >= '0' && r <= '9':
			seenDigit = true
		default:
			return false
		}
	}

	return seenLetter && seenDigit
}

// SanitizeCourseCode trims whitespace and upper-cases a course code
func SanitizeCourseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
