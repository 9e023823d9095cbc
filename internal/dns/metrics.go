package dns

import "github.com/prometheus/client_golang/prometheus"

var (
	policyBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boomacl_policy_builds_total",
			Help: "Total overture configurations built by route",
		},
		[]string{"route"},
	)
	probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boomacl_probe_duration_seconds",
			Help:    "Upstream probe round trip in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"protocol"},
	)
	reloadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boomacl_reload_total",
			Help: "Total service reloads by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(policyBuilds, probeDuration, reloadTotal)
}
