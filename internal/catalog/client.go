package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public iTunes API.
	DefaultBaseURL = "https://itunes.apple.com/"

	// ProxyBaseURL serves the same API with permissive CORS headers.
	ProxyBaseURL = "https://proxy-itunes-api.glitch.me/"

	// maxBodySize caps how much of a response is read.
	maxBodySize = 8 << 20
)

// Config holds client configuration.
type Config struct {
	// BaseURL overrides the API root. Must end with a slash.
	BaseURL string

	// UseProxy selects ProxyBaseURL when BaseURL is empty.
	UseProxy bool

	// Limit is sent as the limit query parameter when positive.
	Limit int

	// Country is sent as the two-letter country parameter when set.
	Country string

	// RequestsPerMinute throttles outbound searches (defaults to 20, the
	// documented iTunes budget).
	RequestsPerMinute int

	// Transport defaults to NewTransport().
	Transport http.RoundTripper

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		Limit:             MaxResults,
		RequestsPerMinute: 20,
		UserAgent:         "songsnip",
	}
}

// Client talks to the song catalog.
type Client struct {
	baseURL   string
	limit     int
	country   string
	userAgent string

	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new catalog client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
		if cfg.UseProxy {
			base = ProxyBaseURL
		}
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 20
	}
	if cfg.Transport == nil {
		cfg.Transport = NewTransport()
	}

	return &Client{
		baseURL:   base,
		limit:     cfg.Limit,
		country:   strings.ToUpper(strings.TrimSpace(cfg.Country)),
		userAgent: cfg.UserAgent,
		// Deadlines come from the caller's context; the search cache owns
		// the request timeout.
		http:    &http.Client{Transport: cfg.Transport},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 3),
	}
}

// NormalizeTerm trims a search term and puts it in Unicode NFC form so that
// visually identical terms produce the same URL.
func NormalizeTerm(term string) string {
	return norm.NFC.String(strings.TrimSpace(term))
}

// SearchURL returns the request URL for term, or "" for an empty term. The
// URL is the search cache key.
func (c *Client) SearchURL(term string) string {
	term = NormalizeTerm(term)
	if term == "" {
		return ""
	}

	q := url.Values{}
	q.Set("term", term)
	q.Set("media", "music")
	q.Set("entity", "song")
	if c.limit > 0 {
		q.Set("limit", strconv.Itoa(c.limit))
	}
	if c.country != "" {
		q.Set("country", c.country)
	}

	return c.baseURL + "search?" + q.Encode()
}

// Fetch performs the GET for a URL produced by SearchURL. It satisfies the
// search cache's Fetcher interface.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to reach catalog: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if out.Results == nil {
		return nil, fmt.Errorf("%w: missing results array", ErrMalformed)
	}

	log.Debug("catalog response",
		"url", rawURL,
		"results", out.ResultCount,
		"duration", time.Since(start))

	return &out, nil
}
