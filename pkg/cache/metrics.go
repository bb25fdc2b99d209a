package cache

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters for one cache backend.
type Metrics struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	sets    prometheus.Counter
	deletes prometheus.Counter
	errors  prometheus.Counter
}

// NewMetrics creates and registers cache counters labelled with backend.
func NewMetrics(reg prometheus.Registerer, backend string) (*Metrics, error) {
	labels := prometheus.Labels{"backend": backend}
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "warehouse", Subsystem: "cache", Name: "hits_total",
			ConstLabels: labels, Help: "Total number of cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "warehouse", Subsystem: "cache", Name: "misses_total",
			ConstLabels: labels, Help: "Total number of cache misses",
		}),
		sets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "warehouse", Subsystem: "cache", Name: "sets_total",
			ConstLabels: labels, Help: "Total number of cache set operations",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "warehouse", Subsystem: "cache", Name: "deletes_total",
			ConstLabels: labels, Help: "Total number of cache delete and flush operations",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "warehouse", Subsystem: "cache", Name: "errors_total",
			ConstLabels: labels, Help: "Total number of failed cache operations",
		}),
	}
	for _, c := range []prometheus.Collector{m.hits, m.misses, m.sets, m.deletes, m.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type instrumented struct {
	next Cache
	m    *Metrics
}

// WithMetrics wraps c so every call is counted in m.
func WithMetrics(c Cache, m *Metrics) Cache {
	if m == nil {
		return c
	}
	return &instrumented{next: c, m: m}
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := i.next.Get(ctx, key)
	switch {
	case err == nil:
		i.m.hits.Inc()
	case errors.Is(err, ErrMiss):
		i.m.misses.Inc()
	default:
		i.m.errors.Inc()
	}
	return b, err
}

func (i *instrumented) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := i.next.Set(ctx, key, value, ttl)
	i.count(i.m.sets, err)
	return err
}

func (i *instrumented) Del(ctx context.Context, keys ...string) error {
	err := i.next.Del(ctx, keys...)
	i.count(i.m.deletes, err)
	return err
}

func (i *instrumented) FlushByPattern(ctx context.Context, pattern string) error {
	err := i.next.FlushByPattern(ctx, pattern)
	i.count(i.m.deletes, err)
	return err
}

func (i *instrumented) count(c prometheus.Counter, err error) {
	if err != nil {
		i.m.errors.Inc()
		return
	}
	c.Inc()
}
