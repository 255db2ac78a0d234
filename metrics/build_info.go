package metrics

import (
	"cmp"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterBuildInfo 注册 segbench_build_info，值恒为 1，版本信息放在标签里。
// 重复调用只保留第一次的标签。
func (m *Metrics) RegisterBuildInfo(serviceName, version string) {
	if m == nil || m.BuildInfo != nil {
		return
	}
	serviceName = cmp.Or(serviceName, "unknown")
	version = cmp.Or(version, "dev")

	m.BuildInfo = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "segbench_build_info",
		Help: "Segment tree bench build, labelled by service, config version and Go toolchain",
	}, []string{"service", "version", "go_version"})
	m.BuildInfo.WithLabelValues(serviceName, version, runtime.Version()).Set(1)
}
