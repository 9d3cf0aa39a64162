// Package certtransparency retrieves subdomains from the crt.sh certificate
// transparency aggregator. Transient upstream failures are retried with
// exponential backoff; decode failures are terminal, since a structurally
// invalid payload will not repair itself on retry.
package certtransparency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/volekh/subdrill/admission"
	"github.com/volekh/subdrill/names"
	"github.com/volekh/subdrill/stats"
)

const (
	defaultBaseURL        = "https://crt.sh"
	defaultTimeout        = 10 * time.Second
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 2 * time.Second
	defaultUserAgent      = "subdrill/1.0"
)

// SleepFunc waits for the given delay or until ctx is done. Injected in tests
// so retry schedules can be asserted without real delays.
type SleepFunc func(ctx context.Context, delay time.Duration) error

type Option func(*Client)

// Client queries crt.sh for certificate entries under a domain.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	sleep       SleepFunc
	governor    *admission.Governor
	tracker     *stats.Tracker
}

type record struct {
	NameValue string `json:"name_value"`
}

func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient:  &http.Client{},
		baseURL:     defaultBaseURL,
		userAgent:   defaultUserAgent,
		timeout:     defaultTimeout,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultInitialBackoff,
		sleep:       sleepWithContext,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if strings.TrimSpace(userAgent) != "" {
			c.userAgent = userAgent
		}
	}
}

// WithTimeout bounds each individual attempt, not the whole call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxAttempts sets the total number of attempts per call.
func WithMaxAttempts(maxAttempts int) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
	}
}

func WithInitialBackoff(backoff time.Duration) Option {
	return func(c *Client) {
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

func WithSleep(sleep SleepFunc) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithGovernor makes Enumerate hold one admission slot for the whole
// multi-attempt call, so retries do not multiply the caller's concurrency
// footprint.
func WithGovernor(governor *admission.Governor) Option {
	return func(c *Client) {
		c.governor = governor
	}
}

func WithTracker(tracker *stats.Tracker) Option {
	return func(c *Client) {
		c.tracker = tracker
	}
}

// Enumerate queries crt.sh for domain and returns the normalized proper
// subdomains found in the certificate entries. On exhausted retries the
// accumulated (typically empty) set is returned together with the last error.
func (c *Client) Enumerate(ctx context.Context, domain string) ([]string, error) {
	domain = names.Clean(domain)
	if domain == "" {
		return nil, errors.New("domain cannot be empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := c.governor.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.governor.Release()

	endpoint := fmt.Sprintf("%s/?q=%s&output=json", c.baseURL, url.QueryEscape(domain))

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		found, retryable, err := c.fetch(ctx, endpoint, domain)
		if err == nil {
			return found, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err

		if attempt == c.maxAttempts-1 {
			break
		}

		delay := c.backoff * (1 << attempt)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("crt.sh lookup for %s failed after %d attempt(s): %w", domain, c.maxAttempts, lastErr)
}

// fetch performs one attempt. The second return value reports whether the
// failure is transient and worth retrying.
func (c *Client) fetch(ctx context.Context, endpoint, domain string) ([]string, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.tracker.RecordProbe("http")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		// Timeouts and connection errors are transient.
		return nil, true, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, true, fmt.Errorf("reading response: %w", readErr)
		}
		found, parseErr := parseResponse(body, domain)
		if parseErr != nil {
			return nil, false, parseErr
		}
		return found, false, nil
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return nil, true, fmt.Errorf("received %d response from crt.sh", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("unexpected status code %d from crt.sh", resp.StatusCode)
	}
}

// parseResponse extracts every in-scope name from the JSON certificate
// entries. A single entry may carry multiple newline-separated names (SANs).
func parseResponse(body []byte, domain string) ([]string, error) {
	var records []record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	found := make(map[string]struct{})
	for _, rec := range records {
		for _, raw := range strings.Split(rec.NameValue, "\n") {
			name := names.Clean(raw)
			if name == "" || !names.InScope(domain, name) {
				continue
			}
			found[name] = struct{}{}
		}
	}

	result := make([]string, 0, len(found))
	for name := range found {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
