// Package metrics gathers SEO measurements from several sources in parallel
// before a report is generated. A failing source never fails the gather: its
// slot falls back to an empty payload and the failure is recorded.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Target identifies whose metrics are gathered.
type Target struct {
	UserID   uint
	ClientID uint
}

// Source fetches one kind of measurement.
type Source interface {
	Name() string
	Fetch(ctx context.Context, target Target) (map[string]any, error)
}

// Result holds one payload per source name. Failed sources map to an empty
// payload and their error message is kept in Failures.
type Result struct {
	Data     map[string]map[string]any
	Failures map[string]string
}

// OK reports whether every source succeeded.
func (r Result) OK() bool { return len(r.Failures) == 0 }

// AuditData flattens the result into the shape expected by the report
// prompt: one key per source.
func (r Result) AuditData() map[string]any {
	out := make(map[string]any, len(r.Data))
	for name, payload := range r.Data {
		out[name] = payload
	}
	return out
}

// Collector runs all sources concurrently.
type Collector struct {
	sources []Source
	timeout time.Duration
	logger  *zap.Logger
}

// NewCollector builds a collector. timeout bounds each source fetch; zero
// means no per-source limit.
func NewCollector(logger *zap.Logger, timeout time.Duration, sources ...Source) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{sources: sources, timeout: timeout, logger: logger}
}

// Sources returns the configured source names.
func (c *Collector) Sources() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}

// Collect fetches every source and waits for all of them. The returned
// error is non-nil only when ctx itself is done.
func (c *Collector) Collect(ctx context.Context, target Target) (Result, error) {
	res := Result{
		Data:     make(map[string]map[string]any, len(c.sources)),
		Failures: make(map[string]string),
	}

	var mu sync.Mutex
	record := func(name string, payload map[string]any, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Failures[name] = err.Error()
			payload = nil
		}
		if payload == nil {
			payload = map[string]any{}
		}
		res.Data[name] = payload
	}

	// Goroutines always return nil so one failure never cancels the others.
	var eg errgroup.Group
	for _, src := range c.sources {
		eg.Go(func() error {
			payload, err := c.fetch(ctx, src, target)
			if err != nil {
				c.logger.Warn("metrics source failed",
					zap.String("source", src.Name()),
					zap.Uint("client_id", target.ClientID),
					zap.Error(err))
			}
			record(src.Name(), payload, err)
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("metrics: gather interrupted: %w", err)
	}
	return res, nil
}

func (c *Collector) fetch(ctx context.Context, src Source, target Target) (payload map[string]any, err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return src.Fetch(ctx, target)
}
