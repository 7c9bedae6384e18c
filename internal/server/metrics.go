package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	undefined *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gpacalc",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gpacalc",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		undefined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gpacalc",
			Name:      "undefined_results_total",
			Help:      "Computations whose metric had no eligible credits.",
		}, []string{"metric"}),
	}
	reg.MustRegister(m.requests, m.duration, m.undefined)
	return m
}
