// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultSuccess       = "success"
	ResultNotConfigured = "not_configured"
	ResultInvalid       = "invalid"
	ResultFailure       = "failure"
)

// Provisioning outcome labels.
const (
	ProvisionFixed   = "fixed"
	ProvisionCached  = "cached"
	ProvisionCreated = "created"
	ProvisionFailed  = "failed"
)

// Recorder is what the service layer reports to.
type Recorder interface {
	RecordSubmission(result string)
	RecordProvisioning(outcome string)
	RecordAuthExchange(result string)
	RecordRemoteCall(op string, d time.Duration)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	submissions  *prometheus.CounterVec
	provisioning *prometheus.CounterVec
	exchanges    *prometheus.CounterVec
	remoteCalls  *prometheus.HistogramVec
}

// compile-time check that *Collector implements Recorder
var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wedding_rsvp_submissions_total",
			Help: "RSVP submissions by result.",
		}, []string{"result"}),
		provisioning: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wedding_rsvp_sheet_provisioning_total",
			Help: "Spreadsheet resolutions by outcome (fixed, cached, created, failed).",
		}, []string{"outcome"}),
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wedding_rsvp_oauth_exchanges_total",
			Help: "OAuth authorization-code exchanges by result.",
		}, []string{"result"}),
		remoteCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wedding_rsvp_remote_call_seconds",
			Help:    "Latency of Google API calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.submissions,
		c.provisioning,
		c.exchanges,
		c.remoteCalls,
	)

	return c
}

// RecordSubmission counts one RSVP submission.
func (c *Collector) RecordSubmission(result string) {
	c.submissions.WithLabelValues(result).Inc()
}

// RecordProvisioning counts one spreadsheet resolution.
func (c *Collector) RecordProvisioning(outcome string) {
	c.provisioning.WithLabelValues(outcome).Inc()
}

// RecordAuthExchange counts one code exchange.
func (c *Collector) RecordAuthExchange(result string) {
	c.exchanges.WithLabelValues(result).Inc()
}

// RecordRemoteCall observes the latency of one Google API call.
func (c *Collector) RecordRemoteCall(op string, d time.Duration) {
	c.remoteCalls.WithLabelValues(op).Observe(d.Seconds())
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
