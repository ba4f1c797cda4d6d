package osv

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/pkgscope/pkg/integrations"
)

const (
	// DefaultBaseURL is the public OSV API.
	DefaultBaseURL = "https://api.osv.dev"

	// MaxBatchSize is the largest number of queries OSV accepts in one
	// querybatch request.
	MaxBatchSize = 1000
)

// Client queries the OSV vulnerability database. Responses are not cached
// and failed calls are not retried; callers count failures instead.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates an OSV client with the auxiliary request timeout.
func NewClient() *Client {
	base := integrations.NewClient(nil, "osv", 0, nil).
		WithTimeout(integrations.AuxiliaryTimeout)
	return &Client{Client: base, baseURL: DefaultBaseURL}
}

// WithBaseURL points the client at another OSV-compatible endpoint.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimSuffix(u, "/")
	return c
}

// QueryBatch asks which of queries have known vulnerabilities. The result
// has the same length and order as queries. Inputs larger than
// MaxBatchSize are split into several requests; if any request fails the
// whole batch fails.
func (c *Client) QueryBatch(ctx context.Context, queries []Query) ([]BatchResult, error) {
	out := make([]BatchResult, 0, len(queries))
	for start := 0; start < len(queries); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(queries))
		chunk := queries[start:end]

		var resp batchResponse
		if err := c.PostJSON(ctx, c.baseURL+"/v1/querybatch", batchRequest{Queries: chunk}, &resp); err != nil {
			return nil, fmt.Errorf("osv querybatch: %w", err)
		}
		if len(resp.Results) != len(chunk) {
			return nil, fmt.Errorf("osv querybatch: %w: got %d results for %d queries",
				integrations.ErrMalformed, len(resp.Results), len(chunk))
		}
		out = append(out, resp.Results...)
	}
	return out, nil
}

// Query returns the full vulnerability records for one package version.
func (c *Client) Query(ctx context.Context, q Query) (*QueryResponse, error) {
	var resp QueryResponse
	if err := c.PostJSON(ctx, c.baseURL+"/v1/query", q, &resp); err != nil {
		return nil, fmt.Errorf("osv query %s@%s: %w", q.Package.Name, q.Version, err)
	}
	for i, v := range resp.Vulns {
		if v.ID == "" {
			return nil, fmt.Errorf("osv query %s@%s: %w: vulnerability %d has no id",
				q.Package.Name, q.Version, integrations.ErrMalformed, i)
		}
	}
	return &resp, nil
}
