package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AttemptsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enrollment_attempts_started_total",
			Help: "Number of enrollment attempts started",
		},
	)

	AttemptsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_attempts_finished_total",
			Help: "Number of enrollment attempts reaching a terminal state",
		},
		[]string{"state", "failure"},
	)

	OrdersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_orders_created_total",
			Help: "Number of payment orders created upstream",
		},
	)

	VerificationTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "payment_verification_seconds",
			Help: "Time taken to verify payment proof with the backend",
		},
	)
)

func Register() {
	prometheus.MustRegister(AttemptsStarted, AttemptsFinished, OrdersCreated, VerificationTime)
}
