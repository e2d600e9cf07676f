package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizgo/pkg/cache"
	"github.com/matzehuels/vizgo/pkg/errors"
	"github.com/matzehuels/vizgo/pkg/observability"
	"github.com/matzehuels/vizgo/pkg/viz"
)

const artifactKeyType = "artifact"

// Runner renders requests with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL is how long artifacts stay cached. Zero means cache.DefaultTTL.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// cachedArtifact is the cache representation of a render.
type cachedArtifact struct {
	Output    []byte `json:"output"`
	Graphs    int    `json:"graphs"`
	Discarded int    `json:"discarded"`
}

// Render renders req, serving it from the cache when possible. Cache errors
// are logged and otherwise ignored.
func (r *Runner) Render(ctx context.Context, req Request) (*Result, error) {
	if err := req.Options.Validate(); err != nil {
		return nil, err
	}
	if err := errors.ValidateSource(req.Source); err != nil {
		return nil, err
	}
	opts := req.Options.WithDefaults()
	key := r.Keyer.ArtifactKey(cache.HashString(req.Source), cache.ArtifactKeyOpts{
		Format:  opts.Format,
		Engine:  opts.Layout(),
		YInvert: opts.YInvert,
	})
	logger := r.Logger.With("id", req.ID, "format", opts.Format, "engine", opts.Layout())

	start := time.Now()
	if !req.Refresh {
		if res, ok := r.lookup(ctx, logger, key); ok {
			res.Format, res.Engine = opts.Format, opts.Layout()
			res.Duration = time.Since(start)
			logger.Debug("cache hit", "bytes", len(res.Output))
			return res, nil
		}
	}

	out, err := viz.Render(ctx, req.Source, opts)
	if err != nil {
		if errors.IsEngineError(err) {
			logger.Debug("source rejected by engine", "error", err)
		} else {
			logger.Warn("render failed", "error", err)
		}
		return nil, err
	}

	r.store(ctx, logger, key, cachedArtifact{Output: out.Output, Graphs: out.Graphs, Discarded: out.Discarded})

	if out.Discarded > 0 {
		logger.Warn("only the first graph was rendered", "discarded", out.Discarded)
	}
	logger.Debug("rendered", "bytes", len(out.Output), "duration", out.Duration)

	return &Result{
		Output:    out.Output,
		Format:    out.Format,
		Engine:    out.Engine,
		Graphs:    out.Graphs,
		Discarded: out.Discarded,
		Duration:  time.Since(start),
	}, nil
}

func (r *Runner) lookup(ctx context.Context, logger *log.Logger, key string) (*Result, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, artifactKeyType)
		return nil, false
	}

	var entry cachedArtifact
	if err := json.Unmarshal(data, &entry); err != nil {
		logger.Debug("discarding unreadable cache entry", "error", err)
		observability.Cache().OnCacheMiss(ctx, artifactKeyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, artifactKeyType)
	return &Result{
		Output:    entry.Output,
		Graphs:    entry.Graphs,
		Discarded: entry.Discarded,
		CacheHit:  true,
	}, true
}

func (r *Runner) store(ctx context.Context, logger *log.Logger, key string, entry cachedArtifact) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	ttl := r.TTL
	if ttl == 0 {
		ttl = cache.DefaultTTL
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		logger.Warn("cache write failed", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, artifactKeyType, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
