// Package metrics holds the Prometheus instruments for the auction domain.
package metrics

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all domain metrics. It implements the engine's
// MetricsCollector so the admission path records outcomes without knowing
// about Prometheus.
type Registry struct {
	registry *prometheus.Registry

	bidsAdmitted     *prometheus.CounterVec
	bidsRejected     *prometheus.CounterVec
	auctionsResolved *prometheus.CounterVec
	admissionLatency prometheus.Histogram

	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	wsConnections prometheus.Gauge
}

// NewRegistry creates the registry with all instruments registered
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	r := &Registry{
		registry: reg,

		bidsAdmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_bids_admitted_total",
			Help: "Bids admitted into ranking",
		}, []string{"auction_id"}),

		bidsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_bids_rejected_total",
			Help: "Bids rejected before admission, by reason",
		}, []string{"reason"}),

		auctionsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_resolved_total",
			Help: "Auctions reaching a terminal state, by outcome",
		}, []string{"outcome"}),

		admissionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "auction_bid_admission_seconds",
			Help:    "End-to-end bid admission latency",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Currently connected websocket clients",
		}),
	}

	reg.MustRegister(
		r.bidsAdmitted,
		r.bidsRejected,
		r.auctionsResolved,
		r.admissionLatency,
		r.httpRequestDuration,
		r.httpRequestsTotal,
		r.wsConnections,
	)

	return r
}

// Handler serves the scrape endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Registry) RecordBidAdmitted(auctionID uuid.UUID) {
	r.bidsAdmitted.WithLabelValues(auctionID.String()).Inc()
}

func (r *Registry) RecordBidRejected(reason string) {
	r.bidsRejected.WithLabelValues(reason).Inc()
}

func (r *Registry) RecordAuctionResolved(withWinner bool) {
	outcome := "no_winner"
	if withWinner {
		outcome = "winner"
	}
	r.auctionsResolved.WithLabelValues(outcome).Inc()
}

func (r *Registry) ObserveAdmissionLatency(seconds float64) {
	r.admissionLatency.Observe(seconds)
}

// ObserveHTTPRequest records one served request
func (r *Registry) ObserveHTTPRequest(method, route, status string, seconds float64) {
	r.httpRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
	r.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
}

// WSConnected and WSDisconnected track the websocket hub population
func (r *Registry) WSConnected()    { r.wsConnections.Inc() }
func (r *Registry) WSDisconnected() { r.wsConnections.Dec() }
