package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics tracks settlement outcomes across both confirmation paths.
type PaymentMetrics struct {
	settlements *prometheus.CounterVec
	intents     prometheus.Counter
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "colognehub",
		Name:      "payment_settlements_total",
		Help:      "Order settlement attempts by trigger and outcome.",
	}, []string{"trigger", "outcome"})
	intents := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "colognehub",
		Name:      "payment_intents_created_total",
		Help:      "Payment intents opened at checkout.",
	})
	reg.MustRegister(settlements, intents)
	return &PaymentMetrics{
		settlements: settlements,
		intents:     intents,
	}
}

// ObserveSettlement records one settlement attempt.
func (p *PaymentMetrics) ObserveSettlement(trigger, outcome string) {
	if p == nil || p.settlements == nil {
		return
	}
	p.settlements.WithLabelValues(normalizeLabel(trigger), normalizeLabel(outcome)).Inc()
}

// IncIntentCreated counts a new payment intent.
func (p *PaymentMetrics) IncIntentCreated() {
	if p == nil || p.intents == nil {
		return
	}
	p.intents.Inc()
}
