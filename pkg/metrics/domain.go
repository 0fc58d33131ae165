package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics counts business outcomes: state transitions, guard
// rejections and payment allocations. All methods are nil-safe.
type DomainMetrics struct {
	transitions      *prometheus.CounterVec
	rejected         *prometheus.CounterVec
	duplicates       prometheus.Counter
	allocations      *prometheus.CounterVec
	allocatedMinor   *prometheus.CounterVec
	paymentsRecorded *prometheus.CounterVec
	slaEvents        *prometheus.CounterVec
}

func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	m := &DomainMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Applied status transitions by entity and target status.",
		}, []string{"entity", "from", "to"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_rejected_total",
			Help:      "Refused status transitions by entity and target status.",
		}, []string{"entity", "to"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_quotes_rejected_total",
			Help:      "Quote creations refused because the vendor already had an active quote.",
		}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "allocations_total",
			Help:      "Allocation rows written by type.",
		}, []string{"type"}),
		allocatedMinor: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "allocated_minor_units_total",
			Help:      "Allocated amounts in minor currency units.",
		}, []string{"type", "currency"}),
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "transactions_total",
			Help:      "Recorded payment transactions by direction and type.",
		}, []string{"direction", "type"}),
		slaEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "sla_events_total",
			Help:      "SLA escalations and breaches by order status.",
		}, []string{"kind", "status"}),
	}
	reg.MustRegister(m.transitions, m.rejected, m.duplicates, m.allocations, m.allocatedMinor, m.paymentsRecorded, m.slaEvents)
	return m
}

func (m *DomainMetrics) Transition(entity, from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(entity), normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *DomainMetrics) TransitionRejected(entity, to string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(entity), normalizeLabel(to)).Inc()
}

func (m *DomainMetrics) DuplicateQuoteRejected() {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.Inc()
}

// Allocation records one allocation row.
func (m *DomainMetrics) Allocation(allocationType, currency string, amount int64) {
	if m == nil || m.allocations == nil {
		return
	}
	m.allocations.WithLabelValues(normalizeLabel(allocationType)).Inc()
	if amount > 0 {
		m.allocatedMinor.WithLabelValues(normalizeLabel(allocationType), normalizeLabel(currency)).Add(float64(amount))
	}
}

func (m *DomainMetrics) PaymentRecorded(direction, txType string) {
	if m == nil || m.paymentsRecorded == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(normalizeLabel(direction), normalizeLabel(txType)).Inc()
}

// SLAEvent counts an escalation or breach raised for status.
func (m *DomainMetrics) SLAEvent(kind, status string) {
	if m == nil || m.slaEvents == nil {
		return
	}
	m.slaEvents.WithLabelValues(normalizeLabel(kind), normalizeLabel(status)).Inc()
}
