// Package metrics exposes Prometheus metrics for Odoo calls. A Collector is
// plugged into connection.Config.Observer.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odoojs/odoo.go/pkg/connection"
)

// Outcome label values.
const (
	OutcomeOK             = "ok"
	OutcomeRPCError       = "rpc_error"
	OutcomeTransportError = "transport_error"
)

type Collector struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	notifications *prometheus.CounterVec
}

var _ connection.Observer = (*Collector)(nil)

// NewCollector creates unregistered metrics under namespace ("odoo" when empty).
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "odoo"
	}
	return &Collector{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total Odoo JSON-RPC requests.",
			},
			[]string{"path", "method", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Odoo JSON-RPC request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method", "outcome"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "notifications_total",
				Help:      "Bus notifications received, by message type.",
			},
			[]string{"type"},
		),
	}
}

// Register adds the collector's metrics to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{c.requests, c.duration, c.notifications} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) ObserveCall(path, method string, err error, elapsed time.Duration) {
	outcome := Outcome(err)
	c.requests.WithLabelValues(path, method, outcome).Inc()
	c.duration.WithLabelValues(path, method, outcome).Observe(elapsed.Seconds())
}

// ObserveNotification counts one bus notification of type msgType.
func (c *Collector) ObserveNotification(msgType string) {
	c.notifications.WithLabelValues(msgType).Inc()
}

// Outcome classifies a call error into one of the outcome labels.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var rpcErr *connection.RPCError
	if errors.As(err, &rpcErr) {
		return OutcomeRPCError
	}
	return OutcomeTransportError
}

// Requests exposes the request counter, mainly for tests and custom exporters.
func (c *Collector) Requests() *prometheus.CounterVec {
	return c.requests
}

func (c *Collector) Notifications() *prometheus.CounterVec {
	return c.notifications
}
