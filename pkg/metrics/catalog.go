package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "soledrop"

// CatalogMetrics records catalog writes, photo uploads and outbox publishing.
// A nil *CatalogMetrics is a valid no-op recorder.
type CatalogMetrics struct {
	reconcileDuration *prometheus.HistogramVec
	reconcileTotal    *prometheus.CounterVec
	photoUploads      *prometheus.CounterVec
	outboxPublished   *prometheus.CounterVec
}

// NewCatalogMetrics registers the catalog metrics on the provided registerer.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	reconcileDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconcile_duration_seconds",
		Help:      "Duration of catalog reconciliations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	reconcileTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_total",
		Help:      "Catalog reconciliations by outcome.",
	}, []string{"outcome"})
	photoUploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photo_uploads_total",
		Help:      "Listing photo uploads by result.",
	}, []string{"result"})
	outboxPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox events handled by the publisher, by event type and result.",
	}, []string{"event_type", "result"})
	reg.MustRegister(reconcileDuration, reconcileTotal, photoUploads, outboxPublished)
	return &CatalogMetrics{
		reconcileDuration: reconcileDuration,
		reconcileTotal:    reconcileTotal,
		photoUploads:      photoUploads,
		outboxPublished:   outboxPublished,
	}
}

// ObserveReconcile records one reconciliation and its outcome (an error code or "ok").
func (c *CatalogMetrics) ObserveReconcile(outcome string, duration time.Duration) {
	if c == nil || c.reconcileDuration == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	c.reconcileDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	c.reconcileTotal.WithLabelValues(outcome).Inc()
}

// ObservePhotoUploads adds attached and failed photo counts.
func (c *CatalogMetrics) ObservePhotoUploads(attached, failed int) {
	if c == nil || c.photoUploads == nil {
		return
	}
	if attached > 0 {
		c.photoUploads.WithLabelValues("attached").Add(float64(attached))
	}
	if failed > 0 {
		c.photoUploads.WithLabelValues("failed").Add(float64(failed))
	}
}

// IncOutbox counts one outbox event handled by the publisher.
func (c *CatalogMetrics) IncOutbox(eventType, result string) {
	if c == nil || c.outboxPublished == nil {
		return
	}
	c.outboxPublished.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
