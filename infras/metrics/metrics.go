package metrics

import (
	"net/http"
	"slotwise/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slotwise"

const (
	PushResultDelivered = "delivered"
	PushResultFailed    = "failed"
	PushResultSkipped   = "skipped"
)

// Recorder is what the domain services report to.
type Recorder interface {
	IncRequestCreated()
	IncTransition(status string)
	IncSlotConflict(operation string)
	IncNotification(notificationType string)
	IncPush(result string)
	SetSubscribers(count int)
}

type Metrics struct {
	registry *prometheus.Registry

	requestCreated prometheus.Counter
	transitions    *prometheus.CounterVec
	slotConflicts  *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	pushes         *prometheus.CounterVec
	subscribers    prometheus.Gauge
}

// New builds the collectors on a private registry, so it is safe to call more than once.
func New(_ *config.Config) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_created_total",
			Help:      "Count of booking requests created.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_transition_total",
			Help:      "Count of booking request transitions by target status.",
		}, []string{"status"}),
		slotConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_conflict_total",
			Help:      "Count of proposals rejected by the slot checker.",
		}, []string{"operation"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_created_total",
			Help:      "Count of notifications written by type.",
		}, []string{"type"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_delivery_total",
			Help:      "Count of push delivery attempts by result.",
		}, []string{"result"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "changefeed_subscribers",
			Help:      "Number of live change feed subscriptions.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCreated,
		m.transitions,
		m.slotConflicts,
		m.notifications,
		m.pushes,
		m.subscribers,
	)

	return m
}

// NewRecorder exposes Metrics as a Recorder for injection.
func NewRecorder(m *Metrics) Recorder {
	return m
}

func (m *Metrics) IncRequestCreated() {
	m.requestCreated.Inc()
}

func (m *Metrics) IncTransition(status string) {
	m.transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncSlotConflict(operation string) {
	m.slotConflicts.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncNotification(notificationType string) {
	m.notifications.WithLabelValues(notificationType).Inc()
}

func (m *Metrics) IncPush(result string) {
	m.pushes.WithLabelValues(result).Inc()
}

func (m *Metrics) SetSubscribers(count int) {
	m.subscribers.Set(float64(count))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
