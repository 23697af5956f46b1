package confluence

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRetryDelays is the backoff schedule for transient failures: one initial attempt plus
// one retry per entry.
var DefaultRetryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

const DefaultRequestTimeout = 30 * time.Second

// NewAPI builds a client for the Confluence instance at baseURL, e.g.
// https://example.atlassian.net/wiki.  A missing scheme defaults to https.
func NewAPI(baseURL string, username string, token string) (*API, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("confluence: configure your Confluence base URL with --base-url")
	}
	if token == "" {
		return nil, fmt.Errorf("confluence: auth token is empty, please check --api-token or auth-token-cmd")
	}

	u, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	a := &API{
		BaseURI:        u,
		Client:         &http.Client{},
		RetryDelays:    DefaultRetryDelays,
		RequestTimeout: DefaultRequestTimeout,
		Logger:         slog.Default(),
		token:          token,
		username:       username,
	}

	return a, nil
}

// ParseBaseURL normalises a user-supplied instance URL: it adds https:// when no scheme is present
// and guarantees a trailing slash so endpoints resolve underneath it.
func ParseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, fmt.Errorf("confluence: couldn't parse REST API URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("confluence: base URL %q has no host", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""

	return u, nil
}

type API struct {
	// The Confluence base URL, e.g. https://INSTANCE.atlassian.net/wiki/
	BaseURI *url.URL

	// An HTTP client - you can substitute VCR or whatnot.
	Client *http.Client

	// Delay before each retry of a transient failure.  Empty means no retries.
	RetryDelays []time.Duration

	// Upper bound for a single attempt, including reading the body.
	RequestTimeout time.Duration

	Logger *slog.Logger

	limiter *rate.Limiter

	// Auth info
	username, token string
}

// SetRateLimit caps outgoing requests per second.  Zero or less removes the cap.
func (a *API) SetRateLimit(rps float64) {
	if rps <= 0 {
		a.limiter = nil
		return
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	a.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// PageURL returns the browser URL for a page, given its webui link.
func (a *API) PageURL(webui string) string {
	if webui == "" {
		return ""
	}
	ref, err := url.Parse(strings.TrimPrefix(webui, "/"))
	if err != nil {
		return ""
	}
	return a.BaseURI.ResolveReference(ref).String()
}
