package npm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/pkgscope/pkg/cache"
	"github.com/matzehuels/pkgscope/pkg/integrations"
)

// DefaultRegistryURL is the public npm registry.
const DefaultRegistryURL = "https://registry.npmjs.org"

// Client fetches packuments from the npm registry.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a registry client caching packuments in c for ttl.
// Not-found answers are cached for [cache.TTLNegative].
func NewClient(c cache.Cache, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = cache.TTLPackument
	}
	base := integrations.NewClient(c, "npm", ttl, map[string]string{"Accept": "application/json"}).
		WithTimeout(integrations.RegistryTimeout).
		WithNegativeTTL(cache.TTLNegative)
	return &Client{Client: base, baseURL: DefaultRegistryURL}
}

// WithBaseURL points the client at another registry mirror.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimSuffix(u, "/")
	return c
}

// FetchPackument returns the registry document for name. It returns an
// error wrapping [integrations.ErrNotFound] when the package does not exist.
func (c *Client) FetchPackument(ctx context.Context, name string, refresh bool) (*Packument, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty package name", integrations.ErrNotFound)
	}

	var p Packument
	err := c.Cached(ctx, name, refresh, &p, func() error {
		return c.fetch(ctx, name, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) fetch(ctx context.Context, name string, p *Packument) error {
	var data registryResponse
	if err := c.Get(ctx, c.baseURL+"/"+escapeName(name), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: npm package %s", err, name)
		}
		return err
	}
	if data.Versions == nil {
		return fmt.Errorf("%w: npm package %s has no versions", integrations.ErrNotFound, name)
	}
	*p = *data.toPackument()
	if p.Name == "" {
		p.Name = name
	}
	return nil
}

// escapeName encodes a package name for the registry path. Scoped names
// keep their "@" and have the slash escaped (@scope%2Fname).
func escapeName(name string) string {
	return url.PathEscape(name)
}
