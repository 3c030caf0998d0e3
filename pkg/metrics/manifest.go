package metrics

import "github.com/prometheus/client_golang/prometheus"

// ManifestMetrics counts manifest generations per contract version.
type ManifestMetrics struct {
	generated *prometheus.CounterVec
	rewards   *prometheus.GaugeVec
}

func NewManifestMetrics(reg prometheus.Registerer) *ManifestMetrics {
	if reg == nil {
		return &ManifestMetrics{}
	}
	generated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manifest_generated_total",
		Help: "Manifest documents generated by version.",
	}, []string{"version"})
	rewards := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "manifest_rewards",
		Help: "Rewards in the most recently generated manifest.",
	}, []string{"version"})
	reg.MustRegister(generated, rewards)
	return &ManifestMetrics{generated: generated, rewards: rewards}
}

// Generated records a manifest build with its reward count.
func (m *ManifestMetrics) Generated(version string, rewardCount int) {
	if m == nil || m.generated == nil {
		return
	}
	version = normalizeLabel(version)
	m.generated.WithLabelValues(version).Inc()
	m.rewards.WithLabelValues(version).Set(float64(rewardCount))
}
