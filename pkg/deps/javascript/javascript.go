package javascript

import (
	"context"
	"errors"

	"github.com/matzehuels/pkgscope/pkg/deps"
	"github.com/matzehuels/pkgscope/pkg/integrations"
	"github.com/matzehuels/pkgscope/pkg/integrations/npm"
)

// Fetcher is the registry call the provider needs. *npm.Client satisfies it.
type Fetcher interface {
	FetchPackument(ctx context.Context, name string, refresh bool) (*npm.Packument, error)
}

// Provider exposes npm packuments as [deps.Document] values.
type Provider struct {
	client Fetcher
}

// NewProvider wraps an npm registry client.
func NewProvider(client Fetcher) *Provider {
	return &Provider{client: client}
}

// Fetch returns the document for name, or (nil, nil) when the registry
// has no such package.
func (p *Provider) Fetch(ctx context.Context, name string, refresh bool) (*deps.Document, error) {
	doc, err := p.client.FetchPackument(ctx, name, refresh)
	if errors.Is(err, integrations.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDocument(doc), nil
}

func toDocument(p *npm.Packument) *deps.Document {
	d := &deps.Document{
		Name:     p.Name,
		DistTags: p.DistTags,
		Versions: make(map[string]*deps.Manifest, len(p.Versions)),
	}
	for v, m := range p.Versions {
		if m == nil {
			continue
		}
		d.Versions[v] = &deps.Manifest{
			Version:              v,
			Dependencies:         m.Dependencies,
			OptionalDependencies: m.OptionalDependencies,
			Size:                 m.UnpackedSize,
			OS:                   m.OS,
			CPU:                  m.CPU,
			Libc:                 m.Libc,
			Deprecated:           m.Deprecated,
		}
	}
	return d
}

var _ deps.MetadataProvider = (*Provider)(nil)
