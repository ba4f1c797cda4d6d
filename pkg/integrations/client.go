package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/pkgscope/pkg/cache"
	"github.com/matzehuels/pkgscope/pkg/observability"
)

// Client provides shared HTTP functionality for registry and advisory API
// clients. It handles caching, retry logic, and common request headers.
type Client struct {
	http        *http.Client
	cache       cache.Cache
	keyer       cache.Keyer
	namespace   string
	ttl         time.Duration
	negativeTTL time.Duration
	headers     map[string]string
	attempts    int
	retryDelay  time.Duration
}

// NewClient creates a Client that caches responses in c under namespace for
// ttl. Headers are applied to all requests made through this client.
// Pass nil for headers if no default headers are needed, and nil for c to
// disable caching.
func NewClient(c cache.Cache, namespace string, ttl time.Duration, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:       NewHTTPClient(AuxiliaryTimeout),
		cache:      c,
		keyer:      cache.NewDefaultKeyer(),
		namespace:  namespace,
		ttl:        ttl,
		headers:    headers,
		attempts:   DefaultRetryAttempts,
		retryDelay: DefaultRetryDelay,
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.http.Timeout = d
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.http = h
	}
	return c
}

// WithKeyer replaces the key scheme used for cached responses.
func (c *Client) WithKeyer(k cache.Keyer) *Client {
	if k != nil {
		c.keyer = k
	}
	return c
}

// WithNegativeTTL caches ErrNotFound answers from Cached for d.
// Zero disables negative caching.
func (c *Client) WithNegativeTTL(d time.Duration) *Client {
	c.negativeTTL = d
	return c
}

// WithRetry sets how often Cached retries a retryable fetch failure and
// the initial backoff delay.
func (c *Client) WithRetry(attempts int, delay time.Duration) *Client {
	c.attempts = attempts
	c.retryDelay = delay
	return c
}

// cachedValue is the envelope stored for each Cached key.
type cachedValue struct {
	NotFound bool            `json:"not_found,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored in the cache.
// Retryable fetch errors are retried with exponential backoff.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	fullKey := c.keyer.HTTPKey(c.namespace, key)
	hooks := observability.Cache()

	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, fullKey); ok {
			var entry cachedValue
			if err := json.Unmarshal(data, &entry); err == nil {
				if entry.NotFound {
					hooks.OnCacheHit(ctx, "http")
					return fmt.Errorf("%w: %s", ErrNotFound, key)
				}
				if err := json.Unmarshal(entry.Data, v); err == nil {
					hooks.OnCacheHit(ctx, "http")
					return nil
				}
			}
		}
		hooks.OnCacheMiss(ctx, "http")
	}

	err := cache.Retry(ctx, c.attempts, c.retryDelay, fetch)
	if errors.Is(err, ErrNotFound) && c.negativeTTL > 0 {
		c.store(ctx, fullKey, cachedValue{NotFound: true}, c.negativeTTL)
	}
	if err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	c.store(ctx, fullKey, cachedValue{Data: data}, c.ttl)
	return nil
}

func (c *Client) store(ctx context.Context, key string, entry cachedValue, ttl time.Duration) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if c.cache.Set(ctx, key, data, ttl) == nil {
		observability.Cache().OnCacheSet(ctx, "http", len(data))
	}
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	body, err := c.doRequest(ctx, http.MethodGet, url, nil, headers)
	if err != nil {
		return err
	}
	defer body.Close()
	return decode(body, v)
}

// PostJSON sends in as a JSON body and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	body, err := c.doRequest(ctx, http.MethodPost, url, payload, map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return err
	}
	defer body.Close()
	return decode(body, out)
}

func decode(body io.Reader, v any) error {
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, rawURL string, payload []byte, headers map[string]string) (io.ReadCloser, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	host, path := splitURL(req.URL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cache.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func splitURL(u *url.URL) (host, path string) {
	if u == nil {
		return "", ""
	}
	return u.Host, u.EscapedPath()
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests, code >= 500:
		return cache.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
