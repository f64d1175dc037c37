package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(buildInfo)
}

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "lead_bot_build_info",
		Help: "A constant metric labeled with version, commit and the configured state backend.",
	},
	[]string{"version", "commit", "state_backend"},
)

func SetBuildInfo(version, commit, backend string) {
	buildInfo.WithLabelValues(version, commit, norm(backend)).Set(1)
}
