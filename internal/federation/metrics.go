package federation

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the engine's Prometheus collectors, labelled by federation.
type Metrics struct {
	federates   *prometheus.GaugeVec
	grants      *prometheus.CounterVec
	updates     *prometheus.CounterVec
	reflections *prometheus.CounterVec
	syncPoints  *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		federates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lockstep",
			Name:      "federates_joined",
			Help:      "Number of federates currently joined to a federation execution.",
		}, []string{"federation"}),
		grants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lockstep",
			Name:      "time_advance_grants_total",
			Help:      "Time advance grants issued.",
		}, []string{"federation"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lockstep",
			Name:      "attribute_updates_total",
			Help:      "Attribute value updates sent by federates.",
		}, []string{"federation"}),
		reflections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lockstep",
			Name:      "reflections_total",
			Help:      "Reflections queued for delivery, by ordering.",
		}, []string{"federation", "order"}),
		syncPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lockstep",
			Name:      "sync_points_total",
			Help:      "Synchronization point outcomes.",
		}, []string{"federation", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.federates, m.grants, m.updates, m.reflections, m.syncPoints)
	}
	return m
}
