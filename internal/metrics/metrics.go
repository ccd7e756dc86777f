package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibes_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vibes_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibes_payments_total",
			Help: "Payment confirmations by outcome",
		},
		[]string{"status"},
	)

	RefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibes_refunds_total",
			Help: "Refunds by settlement mode (gateway or manual)",
		},
		[]string{"mode"},
	)

	CancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vibes_cancellations_total",
			Help: "Total number of booking cancellations",
		},
	)

	ReschedulesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vibes_reschedules_total",
			Help: "Total number of booking reschedules",
		},
	)

	GatewayErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibes_gateway_errors_total",
			Help: "Payment gateway failures by operation",
		},
		[]string{"op"},
	)

	DegradedCustomerCreations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vibes_degraded_customer_creations_total",
			Help: "Payments that proceeded without a gateway customer",
		},
	)

	WalletCreditsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vibes_wallet_credits_total",
			Help: "Total number of wallet credits",
		},
	)

	WalletDebitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vibes_wallet_debits_total",
			Help: "Total number of wallet debits",
		},
	)

	InsufficientFundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vibes_wallet_insufficient_funds_total",
			Help: "Debits clamped at zero because the balance fell short",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibes_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibes_email_queue_length",
			Help: "Current length of email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordPayment(status string) {
	PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordRefund(mode string) {
	RefundsTotal.WithLabelValues(mode).Inc()
}

func RecordCancellation() {
	CancellationsTotal.Inc()
}

func RecordReschedule() {
	ReschedulesTotal.Inc()
}

func RecordGatewayError(op string) {
	GatewayErrorsTotal.WithLabelValues(op).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}
