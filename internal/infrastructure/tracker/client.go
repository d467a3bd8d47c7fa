package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"whereis/internal/application/port"
	"whereis/internal/domain"
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultRateLimitCode = 429

	maxBodyBytes = 1 << 20
)

var (
	ErrHTTPStatus    = errors.New("tracker http status")
	ErrProviderError = errors.New("tracker provider error")
	ErrMalformed     = errors.New("tracker malformed response")
)

type Options struct {
	BaseURL       string
	APIVersion    string
	Login         string
	APIKey        string
	RateLimitCode int
	Timeout       time.Duration

	// RPS and Burst throttle outgoing queries; RPS <= 0 disables the limiter.
	RPS   float64
	Burst int

	HTTPClient *http.Client
	Now        func() time.Time
}

// Client queries the tracking provider's latest-position endpoint.
type Client struct {
	baseURL       string
	apiVersion    string
	login         string
	apiKey        string
	rateLimitCode int
	timeout       time.Duration
	httpClient    *http.Client
	limiter       *rate.Limiter
	now           func() time.Time
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	code := opts.RateLimitCode
	if code == 0 {
		code = DefaultRateLimitCode
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		apiVersion:    strings.Trim(opts.APIVersion, "/"),
		login:         opts.Login,
		apiKey:        opts.APIKey,
		rateLimitCode: code,
		timeout:       timeout,
		httpClient:    httpClient,
		limiter:       limiter,
		now:           now,
	}
}

// QueryLatest performs one provider query and classifies the result. It never
// returns a raw error: transport and protocol failures become Unavailable.
// The configured timeout bounds the limiter wait and the request together.
func (c *Client) QueryLatest(ctx context.Context, assetID string) domain.Outcome {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.Unavailable(fmt.Errorf("rate limiter wait: %w", err))
		}
	}

	body, err := c.get(ctx, assetID)
	if err != nil {
		return domain.Unavailable(err)
	}
	return c.classify(assetID, body)
}

func (c *Client) endpoint(assetID string) string {
	params := url.Values{}
	params.Set("asset", assetID)
	return fmt.Sprintf("%s/api/%s/tracker/latest?%s", c.baseURL, c.apiVersion, params.Encode())
}

func (c *Client) get(ctx context.Context, assetID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(assetID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Login", c.login)
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w %d: %s", ErrHTTPStatus, resp.StatusCode, truncate(string(body), 256))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ port.PositionSource = (*Client)(nil)
