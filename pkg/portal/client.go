package portal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"examscraper/pkg/config"
	"examscraper/pkg/errors"
	"examscraper/pkg/logger"
	"examscraper/pkg/retry"
)

// loginFormID is the Drupal form id posted with the credentials
const loginFormID = "user_login"

// Client owns the authenticated portal session: one cookie jar shared by
// every request, default headers, and the retry policy for idempotent GETs.
// The session state is only mutated inside the client; callers treat it as
// read-only.
type Client struct {
	httpClient *http.Client
	baseURL    string
	examPath   string
	headers    map[string]string
	retryCfg   *config.RetryConfig
	logger     logger.Logger
}

// NewClient creates a portal client with a fresh cookie jar
func NewClient(cfg *config.PortalConfig, retryCfg *config.RetryConfig, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	baseURL := DefaultBaseURL
	examPath := ExamPapersPath
	timeout := 30 * time.Second
	userAgent := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	if cfg != nil {
		if cfg.BaseURL != "" {
			baseURL = cfg.BaseURL
		}
		if cfg.ExamPapersPath != "" {
			examPath = cfg.ExamPapersPath
		}
		if cfg.RequestTimeout > 0 {
			timeout = cfg.RequestTimeout
		}
		if cfg.UserAgent != "" {
			userAgent = cfg.UserAgent
		}
	}

	return &Client{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		examPath: examPath,
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,application/pdf,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		retryCfg: retryCfg,
		logger:   log,
	}, nil
}

// BaseURL returns the portal base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ExamPapersURL returns the absolute URL of the exam papers page
func (c *Client) ExamPapersURL() string {
	return c.baseURL + c.examPath
}

// ResolveURL resolves a possibly relative href against the portal base URL
func (c *Client) ResolveURL(href string) string {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// Login authenticates the session against the portal's Drupal login form.
// The form's hidden form_build_id is scraped from the login page before the
// credentials are posted. Detecting no login form means the session is
// already authenticated, which is not an error.
func (c *Client) Login(ctx context.Context, username, password string) error {
	loginURL := c.ExamPapersURL()

	c.logger.DebugWithFields("fetching login page", map[string]interface{}{
		"url": loginURL,
	})

	body, err := c.GetHTML(ctx, c.examPath, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch login page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return errors.New(errors.ErrorTypeParse, 0, "failed to parse login page: %v", err)
	}

	formBuildID, found := doc.Find(`input[name="form_build_id"]`).First().Attr("value")
	if !found {
		c.logger.Info("no login form found, session already authenticated")
		return nil
	}

	form := url.Values{}
	form.Set("name", username)
	form.Set("pass", password)
	form.Set("form_id", loginFormID)
	form.Set("form_build_id", formBuildID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.New(errors.ErrorTypeUnknown, 0, "failed to create login request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.InfoWithFields("submitting login credentials", map[string]interface{}{
		"username": maskUsername(username),
	})

	// Logins are not idempotent so they are never retried
	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errors.NewAuthError(resp.StatusCode, "invalid credentials")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.NewAuthError(resp.StatusCode, "login failed with status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewNetworkError("failed to read login response: %v", err)
	}

	// Drupal re-renders the login form on bad credentials
	respDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(respBody))
	if err == nil {
		if _, stillThere := respDoc.Find(`input[name="form_build_id"]`).First().Attr("value"); stillThere {
			return errors.NewAuthError(http.StatusUnauthorized, "invalid credentials")
		}
	}

	c.logger.Info("login successful")
	return nil
}

// GetHTML performs an idempotent GET for an HTML page relative to the base
// URL and returns the body. Transient failures (timeouts, 5xx) are retried
// with bounded exponential backoff; 4xx responses are surfaced immediately.
func (c *Client) GetHTML(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	return retry.DoWithResult(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, errors.New(errors.ErrorTypeUnknown, 0, "failed to create request: %v", err)
		}

		resp, err := c.doRequest(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if err := c.checkResponseStatus(resp); err != nil {
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.NewNetworkError("failed to read response body: %v", err)
		}

		return body, nil
	}, c.retryConfig(ctx))
}

// FetchDocument performs a GET for a document and returns the open response
// so the caller can stream the body to disk. The caller must close the body.
// Relative URLs are resolved against the portal base URL.
func (c *Client) FetchDocument(ctx context.Context, rawURL string) (*http.Response, error) {
	target := c.ResolveURL(rawURL)

	return retry.DoWithResult(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, errors.New(errors.ErrorTypeUnknown, 0, "failed to create request: %v", err)
		}

		resp, err := c.doRequest(req)
		if err != nil {
			return nil, err
		}

		if err := c.checkResponseStatus(resp); err != nil {
			resp.Body.Close()
			return nil, err
		}

		return resp, nil
	}, c.retryConfig(ctx))
}

// doRequest performs a single HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.NewNetworkError("network error: %v", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkResponseStatus maps an HTTP response status to a typed error
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errors.NewAuthError(resp.StatusCode, "authentication required")
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.ErrorTypeNotFound, resp.StatusCode, "resource not found")
	case resp.StatusCode >= 500:
		c.logger.WarnWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errors.New(errors.ErrorTypeServerError, resp.StatusCode, "server returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return errors.New(errors.ErrorTypeUnknown, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
	default:
		return nil
	}
}

// retryConfig builds the retry configuration for idempotent GETs
func (c *Client) retryConfig(ctx context.Context) *retry.Config {
	cfg := &retry.Config{
		MaxAttempts: 3,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      c.logger,
	}

	if c.retryCfg != nil {
		if !c.retryCfg.Enabled {
			cfg.MaxAttempts = 1
			return cfg
		}
		if c.retryCfg.MaxAttempts > 0 {
			cfg.MaxAttempts = c.retryCfg.MaxAttempts
		}
		backoff := retry.DefaultExponentialBackoff()
		if c.retryCfg.BaseDelay > 0 {
			backoff.BaseDelay = c.retryCfg.BaseDelay
		}
		if c.retryCfg.MaxDelay > 0 {
			backoff.MaxDelay = c.retryCfg.MaxDelay
		}
		if c.retryCfg.Multiplier > 0 {
			backoff.Multiplier = c.retryCfg.Multiplier
		}
		backoff.JitterFactor = c.retryCfg.JitterFactor
		cfg.Backoff = backoff
	}

	return cfg
}

// maskUsername masks all but the first two characters of a username
func maskUsername(username string) string {
	if len(username) <= 2 {
		return "**"
	}
	return username[:2] + strings.Repeat("*", len(username)-2)
}
