// Package integrations provides HTTP clients for the upstream services
// pkgscope reads from.
//
// Each service has its own subpackage:
//
//   - [npm]: the npm registry (packuments)
//   - [osv]: the OSV vulnerability database
//
// # Shared Infrastructure
//
// The [Client] type provides the HTTP plumbing both subpackages use:
//
//   - response caching through [cache.Cache], including short-lived
//     negative entries for not-found answers
//   - retry with exponential backoff for transient failures ([cache.Retry])
//   - request/response events for [observability.HTTPHooks]
//
// Status codes map to sentinel errors: 404 becomes [ErrNotFound], 429 and
// 5xx become retryable [ErrNetwork] errors, and undecodable bodies become
// [ErrMalformed].
package integrations
