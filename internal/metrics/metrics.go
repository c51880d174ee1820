// absence-sms - parent notifications for absent students
// Copyright (C) 2026  absence-sms contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package metrics exposes Prometheus instruments for notification handling.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for notifications_total.
const (
	OutcomeSent            = "sent"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeInvalidArgument = "invalid_argument"
	OutcomeProviderError   = "provider_error"
)

// Metrics holds the service's Prometheus instruments and their registry.
// All methods are safe on a nil receiver so components can run without
// metrics in tests.
type Metrics struct {
	notifications    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	callableRequests *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "absence_notifications_total",
				Help: "Absence notification invocations by outcome",
			},
			[]string{"outcome"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "absence_provider_request_duration_seconds",
				Help:    "Latency of outbound SMS provider calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		callableRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callable_requests_total",
				Help: "Callable protocol responses by function and status",
			},
			[]string{"function", "status"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.notifications,
		m.providerDuration,
		m.callableRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Notification counts one handler outcome.
func (m *Metrics) Notification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

// ProviderCall records the latency of one provider request.
func (m *Metrics) ProviderCall(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.providerDuration.WithLabelValues(result).Observe(d.Seconds())
}

// CallableResponse counts one callable protocol response.
func (m *Metrics) CallableResponse(function, status string) {
	if m == nil {
		return
	}
	m.callableRequests.WithLabelValues(function, status).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
