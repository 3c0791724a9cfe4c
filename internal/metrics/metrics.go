// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProvisioningTotal counts user/team provisioning attempts by outcome.
	ProvisioningTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teamplane",
		Name:      "provisioning_total",
		Help:      "Total provisioning attempts by outcome.",
	}, []string{"outcome"})

	// WebhookRequestsTotal counts Stripe webhook requests by event type and status.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teamplane",
		Name:      "webhook_requests_total",
		Help:      "Total Stripe webhook requests by event type and HTTP status.",
	}, []string{"event_type", "status"})

	// WebhookDuration tracks Stripe webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "teamplane",
		Name:      "webhook_duration_seconds",
		Help:      "Stripe webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// EmailsSentTotal counts transactional emails by template and outcome.
	EmailsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teamplane",
		Name:      "emails_sent_total",
		Help:      "Total transactional emails by template and outcome.",
	}, []string{"template", "outcome"})

	// RateLimitedTotal counts requests rejected by a rate limiter, by scope.
	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teamplane",
		Name:      "rate_limited_total",
		Help:      "Total requests rejected by rate limiting, by limiter scope.",
	}, []string{"scope"})

	// HTTPRequestsTotal counts API requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teamplane",
		Name:      "http_requests_total",
		Help:      "Total API requests by route and HTTP status.",
	}, []string{"route", "status"})
)
