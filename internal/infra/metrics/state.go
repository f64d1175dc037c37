package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(stateStoreOpsTotal) }

var stateStoreOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "state_store_ops_total",
		Help: "Conversation state store operations by backend, operation and result.",
	},
	[]string{"backend", "op", "result"}, // e.g., backend="redis", op="get", result="miss"
)

func IncStateOp(backend, op, result string) {
	stateStoreOpsTotal.WithLabelValues(norm(backend), norm(op), norm(result)).Inc()
}
