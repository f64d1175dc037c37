package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		telegramMessagesTotal,
		leadSubmissionsTotal,
		leadSubmissionLatencyMs,
	)
}

var (
	telegramMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_messages_sent_total",
			Help: "Outbound Telegram messages by result.",
		},
		[]string{"result"},
	)

	leadSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_submissions_total",
			Help: "Lead submissions forwarded to the sheet, by auth mode and result.",
		},
		[]string{"auth_mode", "result"},
	)

	leadSubmissionLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lead_submission_latency_ms",
			Help:    "Sheet call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 15000},
		},
		[]string{"result"},
	)
)

func IncTelegramMessage(ok bool) {
	telegramMessagesTotal.WithLabelValues(result(ok)).Inc()
}

func ObserveSubmission(authMode string, ok bool, elapsed time.Duration) {
	leadSubmissionsTotal.WithLabelValues(norm(authMode), result(ok)).Inc()
	leadSubmissionLatencyMs.WithLabelValues(result(ok)).Observe(float64(elapsed.Milliseconds()))
}
