package bufferpool

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/Blackdeer1524/HeapDB/src/bufferpool"

type poolMetrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
	flushes   metric.Int64Counter
}

func newPoolMetrics() poolMetrics {
	meter := otel.Meter(meterName)

	return poolMetrics{
		hits:      counter(meter, "bufferpool.hits", "Page requests served from a resident frame"),
		misses:    counter(meter, "bufferpool.misses", "Page requests that had to read from disk"),
		evictions: counter(meter, "bufferpool.evictions", "Frames reclaimed from unpinned pages"),
		flushes:   counter(meter, "bufferpool.flushes", "Dirty pages written back to disk"),
	}
}

func counter(meter metric.Meter, name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return noop.Int64Counter{}
	}

	return c
}

func (p poolMetrics) hit() {
	p.hits.Add(context.Background(), 1)
}

func (p poolMetrics) miss() {
	p.misses.Add(context.Background(), 1)
}

func (p poolMetrics) evict() {
	p.evictions.Add(context.Background(), 1)
}

func (p poolMetrics) flush() {
	p.flushes.Add(context.Background(), 1)
}
