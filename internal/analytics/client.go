package analytics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the analytics backend used when none is configured.
	DefaultBaseURL = "http://localhost:5000"

	// Request timeout. Training can take a while.
	DefaultTimeout = 60 * time.Second

	// DefaultCacheTTL applies when a cache is set without a TTL.
	DefaultCacheTTL = 5 * time.Minute

	// Error bodies are truncated to this many bytes in error messages.
	maxErrorBody = 512
)

// Backend endpoint paths.
const (
	PathOverview          = "/api/data/overview"
	PathTrain             = "/api/models/train"
	PathFeatureImportance = "/api/models/feature-importance"
	PathClustering        = "/api/clustering/segments"
	PathPCA               = "/api/pca/results"
)

// DefaultRateLimit allows a burst of dashboard loads without hammering the backend.
var DefaultRateLimit = rate.Limit(5)

// Client fetches analytics payloads from the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      PayloadCache
	cacheTTL   time.Duration
	stats      *ClientStats
	statsMu    sync.RWMutex
	now        func() time.Time
}

// ClientOptions configures the analytics client.
type ClientOptions struct {
	// BaseURL of the analytics backend (default: http://localhost:5000)
	BaseURL string

	// RateLimit controls request frequency (default: 5 req/second)
	RateLimit rate.Limit

	// Timeout for HTTP requests (default: 60 seconds)
	Timeout time.Duration

	// HTTPClient allows custom HTTP client
	HTTPClient *http.Client

	// Cache stores read payloads (nil disables caching)
	Cache PayloadCache

	// CacheTTL for cached payloads (default: 5 minutes)
	CacheTTL time.Duration
}

// DefaultClientOptions returns default options.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		BaseURL:   DefaultBaseURL,
		RateLimit: DefaultRateLimit,
		Timeout:   DefaultTimeout,
		CacheTTL:  DefaultCacheTTL,
	}
}

// FetchOptions controls a single fetch.
type FetchOptions struct {
	// SkipCache forces a backend request. The fresh payload is still cached.
	SkipCache bool
}

// NewClient creates a new analytics client.
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}
	if options.RateLimit == 0 {
		options.RateLimit = DefaultRateLimit
	}
	if options.Timeout == 0 {
		options.Timeout = DefaultTimeout
	}
	if options.CacheTTL == 0 {
		options.CacheTTL = DefaultCacheTTL
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: options.Timeout,
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(options.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(options.RateLimit, 1),
		cache:      options.Cache,
		cacheTTL:   options.CacheTTL,
		stats:      &ClientStats{},
		now:        time.Now,
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetOverview fetches aggregate churn metrics.
func (c *Client) GetOverview(ctx context.Context, opts FetchOptions) (*Response[*OverviewMetrics], error) {
	return fetch(ctx, c, PathOverview, true, opts, ParseOverview)
}

// TrainModels triggers model training and returns the evaluation results. Never cached.
func (c *Client) TrainModels(ctx context.Context) (*Response[TrainingResults], error) {
	return fetch(ctx, c, PathTrain, false, FetchOptions{SkipCache: true}, ParseTrainingResults)
}

// GetFeatureImportance fetches feature importance scores of the trained model.
func (c *Client) GetFeatureImportance(ctx context.Context, opts FetchOptions) (*Response[*FeatureImportance], error) {
	return fetch(ctx, c, PathFeatureImportance, true, opts, ParseFeatureImportance)
}

// GetClustering fetches customer cluster segments.
func (c *Client) GetClustering(ctx context.Context, opts FetchOptions) (*Response[*ClusteringResult], error) {
	return fetch(ctx, c, PathClustering, true, opts, ParseClustering)
}

// GetPCA fetches principal component variance results.
func (c *Client) GetPCA(ctx context.Context, opts FetchOptions) (*Response[*PCAResult], error) {
	return fetch(ctx, c, PathPCA, true, opts, ParsePCA)
}

// fetch loads endpoint through the cache (when cacheable) and parses the body.
// Cached bodies are re-validated; a cached body that no longer parses is dropped.
func fetch[T any](ctx context.Context, c *Client, endpoint string, cacheable bool, opts FetchOptions, parse func([]byte) (T, error)) (*Response[T], error) {
	useCache := cacheable && c.cache != nil

	if useCache && !opts.SkipCache {
		body, ok, err := c.cache.Get(ctx, endpoint)
		if err != nil {
			log.Printf("[Analytics] Cache read failed for %s: %v", endpoint, err)
		} else if ok {
			if data, err := parse(body); err == nil {
				c.updateStats(func(s *ClientStats) { s.CachedResponses++ })
				return &Response[T]{
					Data:      data,
					Body:      body,
					Endpoint:  endpoint,
					Cached:    true,
					FetchedAt: c.now(),
				}, nil
			}
			log.Printf("[Analytics] Discarding unparseable cached payload for %s", endpoint)
		}
	}

	body, latency, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	data, err := parse(body)
	if err != nil {
		c.recordFailure()
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.Endpoint = endpoint
		}
		return nil, err
	}
	c.recordSuccess(latency)

	if useCache {
		if err := c.cache.Set(ctx, endpoint, body, c.cacheTTL); err != nil {
			log.Printf("[Analytics] Cache write failed for %s: %v", endpoint, err)
		}
	}

	return &Response[T]{
		Data:      data,
		Body:      body,
		Endpoint:  endpoint,
		FetchedAt: c.now(),
	}, nil
}

// doRequest performs an HTTP GET with rate limiting. Failures are recorded
// here; success is recorded by the caller once the body parses.
func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, time.Duration, error) {
	fullURL, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return nil, 0, &APIError{
			Type:     ErrInvalidParams,
			Endpoint: endpoint,
			Message:  "invalid endpoint URL",
			Err:      err,
		}
	}

	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, &APIError{
			Type:     ErrRateLimited,
			Endpoint: endpoint,
			Message:  "rate limiter error",
			Err:      err,
		}
	}

	c.updateStats(func(s *ClientStats) {
		s.TotalRequests++
		s.LastRequestTime = c.now()
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, &APIError{
			Type:     ErrInvalidParams,
			Endpoint: endpoint,
			Message:  "failed to create request",
			Err:      err,
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "churn-dashboard/1.0")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(startTime)

	if err != nil {
		c.recordFailure()
		return nil, 0, &APIError{
			Type:     ErrUnavailable,
			Endpoint: endpoint,
			Message:  "failed to execute request",
			Err:      err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.recordFailure()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		errType := ErrUnavailable
		if resp.StatusCode == http.StatusTooManyRequests {
			errType = ErrRateLimited
		}
		return nil, 0, &APIError{
			Type:       errType,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status code: %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return nil, 0, &APIError{
			Type:     ErrUnavailable,
			Endpoint: endpoint,
			Message:  "failed to read response body",
			Err:      err,
		}
	}

	return body, latency, nil
}

// recordFailure records a failed request.
func (c *Client) recordFailure() {
	c.updateStats(func(s *ClientStats) {
		s.FailedRequests++
		s.LastFailureTime = c.now()
		s.ConsecutiveErrors++
	})
}

// recordSuccess records a successful request.
func (c *Client) recordSuccess(latency time.Duration) {
	c.updateStats(func(s *ClientStats) {
		s.LastSuccessTime = c.now()
		s.ConsecutiveErrors = 0

		if s.AverageLatency == 0 {
			s.AverageLatency = latency
		} else {
			s.AverageLatency = (s.AverageLatency + latency) / 2
		}
	})
}

// updateStats safely updates client statistics.
func (c *Client) updateStats(fn func(*ClientStats)) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	fn(c.stats)
}

// GetStats returns a copy of the current client statistics.
func (c *Client) GetStats() ClientStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return *c.stats
}

// ClearCache drops all cached payloads.
func (c *Client) ClearCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Clear(ctx)
}
