// Package npm provides an HTTP client for the npm registry API.
//
// # Usage
//
//	client := npm.NewClient(fileCache, cache.TTLPackument)
//	doc, err := client.FetchPackument(ctx, "express", false)
//	if errors.Is(err, integrations.ErrNotFound) {
//	    // package does not exist
//	}
//	fmt.Println(doc.DistTags["latest"], len(doc.Versions))
//
// # Validation
//
// The registry serves loosely typed JSON: "deprecated" may be a string or a
// boolean, and "os", "cpu" and "libc" may be a single string or a list.
// These are normalized into [Packument] and [VersionManifest] before any
// caller sees them, and only the normalized shape is cached.
//
// # Caching
//
// Packuments are cached per package name. A not-found answer is cached
// for a few minutes so that a missing dependency referenced from many
// manifests costs one request. Pass refresh=true to bypass the cache.
package npm
