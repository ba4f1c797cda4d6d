// Package javascript connects the npm registry client to the dependency
// resolver.
//
//	client := npm.NewClient(c, cache.TTLPackument)
//	resolver := deps.NewResolver(javascript.NewProvider(client))
//	g, _ := resolver.Resolve(ctx, "express", "^4.18.0", deps.Options{TrackDepth: true})
//
// Registry not-found answers become (nil, nil) so the resolver can record
// them as dropped branches rather than failures.
package javascript
