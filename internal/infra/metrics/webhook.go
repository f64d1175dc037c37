package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookUpdatesTotal,
		conversationTurnsTotal,
		conversationTransitionsTotal,
	)
}

var (
	webhookUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_updates_total",
			Help: "Inbound webhook updates by kind (text, non_text, malformed, unauthorized).",
		},
		[]string{"kind"},
	)

	conversationTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Processed conversation turns by outcome (ok, error, panic, busy).",
		},
		[]string{"outcome"},
	)

	conversationTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_transitions_total",
			Help: "State machine transitions labeled by source and target step.",
		},
		[]string{"from", "to"},
	)
)

func IncWebhookUpdate(kind string) {
	webhookUpdatesTotal.WithLabelValues(norm(kind)).Inc()
}

func IncTurn(outcome string) {
	conversationTurnsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncTransition(from, to string) {
	conversationTransitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}
