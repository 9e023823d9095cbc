package acl

import "github.com/prometheus/client_golang/prometheus"

var (
	parseTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boomacl_parse_total",
			Help: "Total ACL parses by result",
		},
		[]string{"result"},
	)
	ruleCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "boomacl_rules",
			Help: "Entries in the last successfully parsed ACL",
		},
		[]string{"kind"},
	)
	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boomacl_fetch_total",
			Help: "Total rule list fetches by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(parseTotal, ruleCount, fetchTotal)
}
