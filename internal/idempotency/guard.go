// Package idempotency short-circuits repeated submissions by replaying the
// stored result of the first execution.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/kv"
	"github.com/felixgeelhaar/worksync/pkg/observability"
)

// DefaultTTL is how long a stored result is replayed.
const DefaultTTL = time.Hour

// ComputeFunc produces the result bytes that are stored for replay.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Guard caches results in a kv.Store keyed by a caller-supplied token.
//
// Lookup and store are two separate calls, so two concurrent submissions
// with the same key may both execute. Storage-level uniqueness must back
// any at-most-once guarantee.
type Guard struct {
	store     kv.Store
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
	metrics   observability.Metrics
}

// Option configures a Guard.
type Option func(*Guard)

// WithTTL sets the replay window.
func WithTTL(ttl time.Duration) Option {
	return func(g *Guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics observability.Metrics) Option {
	return func(g *Guard) {
		if metrics != nil {
			g.metrics = metrics
		}
	}
}

// NewGuard creates a Guard whose keys live under "idempotency:<namespace>:".
func NewGuard(store kv.Store, namespace string, opts ...Option) *Guard {
	g := &Guard{
		store:     store,
		namespace: namespace,
		ttl:       DefaultTTL,
		logger:    slog.Default(),
		metrics:   observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Key returns the store key for a caller token.
func (g *Guard) Key(token string) string {
	return "idempotency:" + g.namespace + ":" + token
}

// Run returns the stored result for key when one exists, and otherwise
// invokes compute and stores its result. An empty key always computes.
// replayed reports whether the result came from the store.
func (g *Guard) Run(ctx context.Context, key string, compute ComputeFunc) (result []byte, replayed bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" || g.store == nil {
		result, err = compute(ctx)
		return result, false, err
	}

	storeKey := g.Key(key)
	tags := []observability.Tag{observability.T("namespace", g.namespace)}

	cached, err := g.store.Get(ctx, storeKey)
	switch {
	case err == nil:
		g.metrics.Counter(observability.MetricIdempotencyHits, 1, tags...)
		return cached, true, nil
	case errors.Is(err, kv.ErrNotFound):
	default:
		g.degraded(ctx, "read", storeKey, err)
	}

	result, err = compute(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := g.store.Set(ctx, storeKey, result, g.ttl); err != nil {
		g.degraded(ctx, "write", storeKey, err)
	}
	return result, false, nil
}

func (g *Guard) degraded(ctx context.Context, op, key string, err error) {
	g.metrics.Counter(observability.MetricIdempotencyDegraded, 1,
		observability.T("namespace", g.namespace), observability.T("op", op))
	g.logger.WarnContext(ctx, "idempotency cache unavailable, executing without replay",
		"op", op,
		"key", key,
		observability.ErrorKey, err.Error(),
	)
}
