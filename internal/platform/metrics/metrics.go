// Package metrics registers the Prometheus instruments shared across the
// service. Domain slices receive the struct and increment what they own.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ClientsCreated       prometheus.Counter
	PhasesAdvanced       *prometheus.CounterVec
	CaregiversAssigned   prometheus.Counter
	AssignmentConflicts  prometheus.Counter
	ReferralsConverted   prometheus.Counter
	NotificationsCreated *prometheus.CounterVec
	NotificationsSkipped *prometheus.CounterVec
	BroadcastRecipients  prometheus.Histogram
	RequestDuration      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ClientsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carelink_clients_created_total",
			Help: "Total number of client records created",
		}),
		PhasesAdvanced: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carelink_phases_advanced_total",
			Help: "Total number of phase transitions, labeled by destination phase",
		}, []string{"to_phase"}),
		CaregiversAssigned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carelink_caregivers_assigned_total",
			Help: "Total number of caregiver-to-client assignments",
		}),
		AssignmentConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carelink_assignment_conflicts_total",
			Help: "Total number of assignments that hit an active-caregiver conflict",
		}),
		ReferralsConverted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carelink_referrals_converted_total",
			Help: "Total number of referrals converted into clients",
		}),
		NotificationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carelink_notifications_created_total",
			Help: "Total number of notifications created, labeled by type",
		}, []string{"type"}),
		NotificationsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carelink_notifications_skipped_total",
			Help: "Total number of notifications skipped by recipient preference, labeled by type",
		}, []string{"type"}),
		BroadcastRecipients: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "carelink_broadcast_recipients",
			Help:    "Recipient count per broadcast",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carelink_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// ObserveRequestDuration records one HTTP request duration.
func (m *Metrics) ObserveRequestDuration(method string, seconds float64) {
	m.RequestDuration.WithLabelValues(method).Observe(seconds)
}
