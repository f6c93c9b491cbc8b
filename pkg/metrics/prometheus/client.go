// Package prometheus implements metrics.Client on top of a dedicated
// Prometheus registry. Series are created lazily from the key and the
// attribute names of their first observation.
package prometheus

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/architeacher/checkpoint/pkg/metrics"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
)

type (
	Client struct {
		registry  *prom.Registry
		namespace string

		mu         sync.Mutex
		counters   map[string]*prom.CounterVec
		histograms map[string]*prom.HistogramVec
		labels     map[string][]string
	}
)

var _ metrics.Client = (*Client)(nil)

func NewClient(namespace string) *Client {
	registry := prom.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Client{
		registry:   registry,
		namespace:  sanitize(namespace),
		counters:   make(map[string]*prom.CounterVec),
		histograms: make(map[string]*prom.HistogramVec),
		labels:     make(map[string][]string),
	}
}

// Inc adds value to the counter named by key, or observes it when key names a duration.
// Observations whose label set differs from the first one seen for key are dropped.
func (c *Client) Inc(_ context.Context, key string, value any, attributes ...attribute.KeyValue) {
	amount, ok := toFloat(value)
	if !ok {
		return
	}

	name := sanitize(key)
	labelNames, labelValues := splitAttributes(attributes)

	c.mu.Lock()
	defer c.mu.Unlock()

	if registered, exists := c.labels[name]; exists && !slices.Equal(registered, labelNames) {
		return
	}

	if metrics.IsDurationKey(name) {
		histogram, err := c.histogram(name, labelNames)
		if err != nil {
			return
		}

		histogram.WithLabelValues(labelValues...).Observe(amount)

		return
	}

	if amount < 0 {
		return
	}

	counter, err := c.counter(name, labelNames)
	if err != nil {
		return
	}

	counter.WithLabelValues(labelValues...).Add(amount)
}

func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Client) Shutdown(_ context.Context) error {
	return nil
}

func (c *Client) counter(name string, labelNames []string) (*prom.CounterVec, error) {
	if counter, ok := c.counters[name]; ok {
		return counter, nil
	}

	counter := prom.NewCounterVec(prom.CounterOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      "Counter for " + name,
	}, labelNames)

	if err := c.registry.Register(counter); err != nil {
		return nil, err
	}

	c.counters[name] = counter
	c.labels[name] = labelNames

	return counter, nil
}

func (c *Client) histogram(name string, labelNames []string) (*prom.HistogramVec, error) {
	if histogram, ok := c.histograms[name]; ok {
		return histogram, nil
	}

	histogram := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      "Latency in seconds for " + name,
		Buckets:   prom.DefBuckets,
	}, labelNames)

	if err := c.registry.Register(histogram); err != nil {
		return nil, err
	}

	c.histograms[name] = histogram
	c.labels[name] = labelNames

	return histogram, nil
}

func splitAttributes(attributes []attribute.KeyValue) ([]string, []string) {
	sorted := slices.Clone(attributes)
	slices.SortFunc(sorted, func(a, b attribute.KeyValue) int {
		return strings.Compare(string(a.Key), string(b.Key))
	})

	names := make([]string, 0, len(sorted))
	values := make([]string, 0, len(sorted))

	for _, attr := range sorted {
		names = append(names, sanitize(string(attr.Key)))
		values = append(values, attr.Value.Emit())
	}

	return names, values
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case time.Duration:
		return v.Seconds(), true
	default:
		return 0, false
	}
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
