// Package metrics holds the Prometheus collectors for mutations and HTTP
// requests.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agencydesk"

// Collectors groups the collectors registered on one registry.
type Collectors struct {
	gatherer prometheus.Gatherer

	mutations        *prometheus.CounterVec
	mutationDuration *prometheus.SummaryVec
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.SummaryVec
}

var (
	defaultOnce       sync.Once
	defaultCollectors *Collectors
)

// Default returns collectors registered on the default Prometheus registry.
func Default() *Collectors {
	defaultOnce.Do(func() {
		defaultCollectors = New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultCollectors
}

// New registers a fresh set of collectors on reg.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Collectors {
	factory := promauto.With(reg)
	objectives := map[float64]float64{
		0.5:  0.01,
		0.9:  0.01,
		0.99: 0.001,
	}
	return &Collectors{
		gatherer: gatherer,
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "controller",
				Name:      "mutations_total",
				Help:      "Mutations by collection, kind, and result",
			},
			[]string{"collection", "kind", "result"},
		),
		mutationDuration: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace:  namespace,
				Subsystem:  "controller",
				Name:       "mutation_duration_milliseconds",
				Help:       "Time from validation to settled result (in milliseconds)",
				Objectives: objectives,
			},
			[]string{"collection", "kind"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route, and status",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace:  namespace,
				Subsystem:  "server",
				Name:       "request_duration_milliseconds",
				Help:       "HTTP request latency (in milliseconds)",
				Objectives: objectives,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveMutation records one finished mutation.
func (c *Collectors) ObserveMutation(collection, kind, result string, elapsed time.Duration) {
	c.mutations.WithLabelValues(collection, kind, result).Inc()
	c.mutationDuration.WithLabelValues(collection, kind).Observe(float64(elapsed.Milliseconds()))
}

// ObserveRequest records one served HTTP request.
func (c *Collectors) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(float64(elapsed.Milliseconds()))
}

// Handler serves the collectors in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
