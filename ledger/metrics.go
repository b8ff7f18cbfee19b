package ledger

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts ledger mutations. All methods are safe on a nil receiver so
// a Ledger built without metrics needs no special casing.
type Metrics struct {
	invoicesCreated prometheus.Counter
	invoicesDeleted prometheus.Counter
	payments        *prometheus.CounterVec
	overdue         prometheus.Counter
	numberRetries   prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		invoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "garage",
			Subsystem: "ledger",
			Name:      "invoices_created_total",
			Help:      "Invoices created.",
		}),
		invoicesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "garage",
			Subsystem: "ledger",
			Name:      "invoices_deleted_total",
			Help:      "Invoices deleted.",
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "garage",
			Subsystem: "ledger",
			Name:      "payments_total",
			Help:      "Payments added or deleted, by operation.",
		}, []string{"op"}),
		overdue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "garage",
			Subsystem: "ledger",
			Name:      "invoices_overdue_total",
			Help:      "Invoices moved to overdue by the sweep.",
		}),
		numberRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "garage",
			Subsystem: "ledger",
			Name:      "invoice_number_retries_total",
			Help:      "Invoice creations retried after a generated number collided.",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(m.invoicesCreated, m.invoicesDeleted, m.payments, m.overdue, m.numberRetries)
	}
	return m
}

func (m *Metrics) invoiceCreated() {
	if m == nil {
		return
	}
	m.invoicesCreated.Inc()
}

func (m *Metrics) invoiceDeleted() {
	if m == nil {
		return
	}
	m.invoicesDeleted.Inc()
}

func (m *Metrics) paymentRecorded(op string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(op).Inc()
}

func (m *Metrics) invoicesOverdue(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.overdue.Add(float64(n))
}

func (m *Metrics) numberRetried() {
	if m == nil {
		return
	}
	m.numberRetries.Inc()
}
