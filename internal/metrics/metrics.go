package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	Checkouts        *prometheus.CounterVec
	TicketAmount     prometheus.Histogram
	UnavailableItems prometheus.Counter
}

func NewCheckoutMetrics() *CheckoutMetrics {
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "attempts_total",
		Help:      "Total number of checkout attempts by outcome.",
	}, []string{"outcome"})
	amount := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "ticket_amount",
		Help:      "Ticket amounts of successful checkouts.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})
	unavailable := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "unavailable_items_total",
		Help:      "Line items that could not be fulfilled.",
	})

	prometheus.MustRegister(checkouts, amount, unavailable)
	return &CheckoutMetrics{Checkouts: checkouts, TicketAmount: amount, UnavailableItems: unavailable}
}

func (m *CheckoutMetrics) ObserveSuccess(amount float64, unavailableItems int) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues("success").Inc()
	m.TicketAmount.Observe(amount)
	m.UnavailableItems.Add(float64(unavailableItems))
}

func (m *CheckoutMetrics) ObserveFailure(outcome string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
