package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/pkgscope/pkg/analysis"
	"github.com/matzehuels/pkgscope/pkg/cache"
	"github.com/matzehuels/pkgscope/pkg/deps"
	"github.com/matzehuels/pkgscope/pkg/errors"
	"github.com/matzehuels/pkgscope/pkg/observability"
	"github.com/matzehuels/pkgscope/pkg/storage"
)

// computeTimeout bounds a shared or background computation, which no longer
// follows the cancellation of the request that started it.
const computeTimeout = 2 * time.Minute

// Runner computes reports with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// Multiple goroutines can safely use the same Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	Store  storage.Store

	engine Engine
	group  singleflight.Group
	bg     sync.WaitGroup
	now    func() time.Time
}

// vulnEnvelope is the cached form of a vulnerability report. ComputedAt
// decides between fresh and stale on read.
type vulnEnvelope struct {
	ComputedAt time.Time                         `json:"computedAt"`
	Report     *analysis.VulnerabilityTreeResult `json:"report"`
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// Reports are not archived until Store is set.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger, e Engine) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	if e.Options.Logger == nil {
		e.Options.Logger = logger
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		Store:  storage.NewNullStore(),
		engine: e,
		now:    time.Now,
	}
}

// InstallSize returns the install-size report for name@version. With
// refresh set, the cached report and cached registry documents are bypassed.
func (r *Runner) InstallSize(ctx context.Context, name, version string, refresh bool) (*Result[*analysis.InstallSizeResult], error) {
	key := r.Keyer.InstallSizeKey(name, version)

	if !refresh {
		var cached analysis.InstallSizeResult
		if r.load(ctx, key, "install-size", &cached) {
			return &Result[*analysis.InstallSizeResult]{Value: &cached, CacheHit: true}, nil
		}
	}

	v, err := r.shared(ctx, key, func(ctx context.Context) (any, error) {
		start := time.Now()
		res, err := analysis.NewSizeCalculator(r.engine.Resolver, r.options(refresh)).Calculate(ctx, name, version)
		if err != nil {
			return nil, err
		}
		r.Logger.Info("computed install size",
			"package", name, "version", version,
			"dependencies", res.DependencyCount, "total", res.TotalSize,
			"duration", time.Since(start))

		data, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("encode install size: %w", err)
		}
		r.store(ctx, key, "install-size", data, cache.TTLInstallSize)
		r.archive(ctx, storage.KindInstallSize, name, version, data)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return &Result[*analysis.InstallSizeResult]{Value: v.(*analysis.InstallSizeResult)}, nil
}

// Vulnerabilities returns the vulnerability report for name@version.
//
// A cached report younger than cache.TTLVulnTree is a plain hit. An older
// one is returned marked stale and recomputed in the background; the
// background refresh is shared with any concurrent computation of the same
// key. With refresh set the cache is bypassed.
func (r *Runner) Vulnerabilities(ctx context.Context, name, version string, refresh bool) (*Result[*analysis.VulnerabilityTreeResult], error) {
	key := r.Keyer.VulnTreeKey(name, version)

	if !refresh {
		var env vulnEnvelope
		if r.load(ctx, key, "vuln-tree", &env) && env.Report != nil {
			res := &Result[*analysis.VulnerabilityTreeResult]{Value: env.Report, CacheHit: true}
			if r.now().Sub(env.ComputedAt) > cache.TTLVulnTree {
				res.Stale = true
				r.refreshInBackground(ctx, key, name, version)
			}
			return res, nil
		}
	}

	v, err := r.shared(ctx, key, func(ctx context.Context) (any, error) {
		return r.computeVulnerabilities(ctx, key, name, version, refresh)
	})
	if err != nil {
		return nil, err
	}
	return &Result[*analysis.VulnerabilityTreeResult]{Value: v.(*analysis.VulnerabilityTreeResult)}, nil
}

func (r *Runner) computeVulnerabilities(ctx context.Context, key, name, version string, refresh bool) (*analysis.VulnerabilityTreeResult, error) {
	start := time.Now()
	res, err := analysis.NewVulnScanner(r.engine.Resolver, r.engine.Vulns, r.options(refresh)).Analyze(ctx, name, version)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("scanned vulnerabilities",
		"package", name, "version", version,
		"packages", res.TotalPackages, "vulnerable", len(res.VulnerablePackages),
		"failed", res.FailedQueries, "duration", time.Since(start))

	data, err := json.Marshal(vulnEnvelope{ComputedAt: r.now(), Report: res})
	if err != nil {
		return nil, fmt.Errorf("encode vulnerability report: %w", err)
	}
	r.store(ctx, key, "vuln-tree", data, cache.TTLVulnTree+cache.StaleVulnTree)
	if payload, err := json.Marshal(res); err == nil {
		r.archive(ctx, storage.KindVulnerabilities, name, version, payload)
	}
	return res, nil
}

// refreshInBackground recomputes a stale vulnerability report detached
// from the request that found it.
func (r *Runner) refreshInBackground(ctx context.Context, key, name, version string) {
	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()

		_, err, shared := r.group.Do(key, func() (any, error) {
			return r.computeVulnerabilities(ctx, key, name, version, false)
		})
		if err != nil {
			r.Logger.Warn("background refresh failed", "package", name, "version", version, "err", err)
			return
		}
		r.Logger.Debug("refreshed stale report", "package", name, "version", version, "shared", shared)
	}()
}

// shared runs fn once per key for all concurrent callers. fn runs detached
// from ctx, so a caller that gives up returns ctx.Err() while the others
// still receive the result.
func (r *Runner) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := r.group.DoChan(key, func() (any, error) {
		r.bg.Add(1)
		defer r.bg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Graph resolves name@version with paths recorded. Graphs are not cached;
// the registry documents they are built from are.
func (r *Runner) Graph(ctx context.Context, name, version string, refresh bool) (*deps.Graph, error) {
	if err := errors.ValidateNpmPackageName(name); err != nil {
		return nil, err
	}
	if err := errors.ValidateVersion(version); err != nil {
		return nil, err
	}
	opts := r.options(refresh)
	opts.TrackDepth = true
	return r.engine.Resolver.Resolve(ctx, name, version, opts)
}

// RecentReports lists archived reports, newest first.
func (r *Runner) RecentReports(ctx context.Context, pkg string, limit int) ([]*storage.Report, error) {
	return r.Store.RecentReports(ctx, pkg, limit)
}

// Wait blocks until background refreshes and detached computations have
// finished.
func (r *Runner) Wait() {
	r.bg.Wait()
}

// Close waits for background refreshes, then releases the cache and the
// report store.
func (r *Runner) Close() error {
	r.Wait()
	var result *multierror.Error
	if r.Cache != nil {
		if err := r.Cache.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close cache: %w", err))
		}
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close store: %w", err))
		}
	}
	return result.ErrorOrNil()
}

func (r *Runner) options(refresh bool) deps.Options {
	opts := r.engine.Options
	opts.Refresh = refresh
	return opts
}

// load decodes a cached entry into v. Unreadable entries count as misses.
func (r *Runner) load(ctx context.Context, key, keyType string, v any) bool {
	hooks := observability.Cache()
	data, ok, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "key", key, "err", err)
	}
	if !ok || err != nil {
		hooks.OnCacheMiss(ctx, keyType)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.Logger.Debug("discarding unreadable cache entry", "key", key, "err", err)
		hooks.OnCacheMiss(ctx, keyType)
		return false
	}
	hooks.OnCacheHit(ctx, keyType)
	return true
}

func (r *Runner) store(ctx context.Context, key, keyType string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

func (r *Runner) archive(ctx context.Context, kind storage.Kind, name, version string, payload []byte) {
	if err := r.Store.SaveReport(ctx, storage.NewReport(kind, name, version, payload)); err != nil {
		r.Logger.Warn("archive report failed", "kind", kind, "package", name, "err", err)
	}
}
