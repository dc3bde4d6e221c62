package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QueueDepthFunc returns the current number of items in a durable queue.
type QueueDepthFunc func(ctx context.Context) (int64, error)

// RegisterQueueDepthGauge registers an observable gauge reporting the depth of each
// named queue (e.g., "outbox", "keyqueue", "inbox") on every Prometheus scrape.
// A queue whose depth function fails is skipped for that collection.
func RegisterQueueDepthGauge(
	meterProvider metric.MeterProvider,
	namespace string,
	queues map[string]QueueDepthFunc,
) error {
	meter := meterProvider.Meter(namespace)

	_, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_queue_depth", namespace),
		metric.WithDescription("Number of items waiting in a durable queue"),
		metric.WithUnit("{item}"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			for name, depth := range queues {
				n, err := depth(ctx)
				if err != nil {
					continue
				}
				o.Observe(n, metric.WithAttributes(attribute.String("queue", name)))
			}
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create queue depth gauge: %w", err)
	}
	return nil
}
