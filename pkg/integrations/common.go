package integrations

import (
	"errors"
	"net/http"
	"time"

	"github.com/matzehuels/pkgscope/pkg/cache"
)

const (
	// RegistryTimeout bounds primary registry calls.
	RegistryTimeout = 30 * time.Second

	// AuxiliaryTimeout bounds advisory lookups such as vulnerability queries.
	AuxiliaryTimeout = 10 * time.Second

	// DefaultRetryAttempts is how often a retryable registry fetch is tried.
	DefaultRetryAttempts = 3

	// DefaultRetryDelay is the initial backoff between attempts.
	DefaultRetryDelay = time.Second
)

var (
	// ErrNotFound is returned when a package or resource doesn't exist in the registry.
	ErrNotFound = cache.ErrNotFound

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = cache.ErrNetwork

	// ErrMalformed is returned when a response body does not match the expected shape.
	ErrMalformed = errors.New("malformed response")
)

// NewHTTPClient creates an HTTP client with the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
