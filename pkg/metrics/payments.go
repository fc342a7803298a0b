package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics records reconciliation outcomes.
type PaymentMetrics struct {
	confirmed         *prometheus.CounterVec
	signatureFailures prometheus.Counter
	stockConflicts    prometheus.Counter
	refundsPending    prometheus.Counter
	integrityWarnings *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	confirmed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Payments confirmed, by source (callback or webhook).",
	}, []string{"source"})
	signatureFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_signature_failures_total",
		Help: "Payment confirmations rejected for a bad signature.",
	})
	stockConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_conflicts_total",
		Help: "Conditional stock updates that matched zero rows.",
	})
	refundsPending := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refunds_pending_total",
		Help: "Cancellations committed with the refund still owed.",
	})
	integrityWarnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "integrity_warnings_total",
		Help: "Committed operations whose follow-up side effect failed.",
	}, []string{"kind"})
	reg.MustRegister(confirmed, signatureFailures, stockConflicts, refundsPending, integrityWarnings)
	return &PaymentMetrics{
		confirmed:         confirmed,
		signatureFailures: signatureFailures,
		stockConflicts:    stockConflicts,
		refundsPending:    refundsPending,
		integrityWarnings: integrityWarnings,
	}
}

// IncConfirmed increments the confirmation counter for the given source.
func (m *PaymentMetrics) IncConfirmed(source string) {
	if m == nil || m.confirmed == nil {
		return
	}
	m.confirmed.WithLabelValues(source).Inc()
}

// IncSignatureFailure counts a rejected signature.
func (m *PaymentMetrics) IncSignatureFailure() {
	if m == nil || m.signatureFailures == nil {
		return
	}
	m.signatureFailures.Inc()
}

// IncStockConflict counts a conditional stock update that found no rows.
func (m *PaymentMetrics) IncStockConflict() {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.Inc()
}

// IncRefundPending counts a cancellation whose refund is still owed.
func (m *PaymentMetrics) IncRefundPending() {
	if m == nil || m.refundsPending == nil {
		return
	}
	m.refundsPending.Inc()
}

// IncIntegrityWarning counts a committed operation with a failed follow-up.
func (m *PaymentMetrics) IncIntegrityWarning(kind string) {
	if m == nil || m.integrityWarnings == nil {
		return
	}
	m.integrityWarnings.WithLabelValues(kind).Inc()
}
