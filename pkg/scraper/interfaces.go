package scraper

import (
	"context"
	"net/http"
	"net/url"

	"examscraper/pkg/listing"
)

// PortalClient is the portal session used by the orchestrator. Satisfied by
// portal.Client; tests substitute fakes.
type PortalClient interface {
	// Login authenticates the session. Idempotent when already logged in.
	Login(ctx context.Context, username, password string) error

	// GetHTML fetches an HTML page relative to the portal base URL
	GetHTML(ctx context.Context, path string, params url.Values) ([]byte, error)

	// FetchDocument fetches a document for streaming. Caller closes the body.
	FetchDocument(ctx context.Context, rawURL string) (*http.Response, error)
}

// ListingParser turns listing page HTML into paper records
type ListingParser interface {
	Parse(body []byte, courseCode string) (*listing.Result, error)
}
