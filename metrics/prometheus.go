// Package metrics 封装独立的 Prometheus 注册表以及线段树工作负载的标准指标。
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 操作结果标签取值。
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics 封装了基于 Prometheus 的指标采集注册表及预定义的标准监控指标。
type Metrics struct {
	registry *prometheus.Registry // 内部独立的 Prometheus 注册中心

	OperationsTotal   *prometheus.CounterVec   // 线段树操作总量 (维度: kind, result)
	OperationDuration *prometheus.HistogramVec // 线段树单次操作耗时分布 (维度: kind)
	MaterializedNodes *prometheus.GaugeVec     // 工作负载结束时已创建的节点数 (维度: workload)
	TrialsTotal       *prometheus.CounterVec   // 校验/压测轮次 (维度: workload, result)
	BuildInfo         *prometheus.GaugeVec
}

// NewMetrics 初始化并返回一个新的指标采集器。
// 它会自动注册 Go 运行时指标和进程指标。
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.OperationsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "segtree_operations_total",
		Help: "Total number of segment tree operations",
	}, []string{"kind", "result"})

	m.OperationDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "segtree_operation_duration_seconds",
		Help:    "Segment tree operation latency in seconds",
		Buckets: prometheus.ExponentialBuckets(1e-7, 4, 10),
	}, []string{"kind"})

	m.MaterializedNodes = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "segtree_materialized_nodes",
		Help: "Number of materialized nodes when a workload finished",
	}, []string{"workload"})

	m.TrialsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "segtree_trials_total",
		Help: "Verification and pressure trials by outcome",
	}, []string{"workload", "result"})

	slog.Info("unified metrics registry initialized", "service", serviceName)
	return m
}

// ObserveOperation 记录一次线段树操作的结果与耗时。
func (m *Metrics) ObserveOperation(kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.OperationsTotal.WithLabelValues(kind, result).Inc()
	m.OperationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// NewCounterVec 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// Registry 返回底层注册表，供测试或自定义采集使用。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ExposeHTTP 在指定地址启动一个独立的 HTTP 服务器用于暴露指标数据。
// 返回一个清理函数用于优雅关闭该服务器。
func (m *Metrics) ExposeHTTP(addr, path string) func() {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown metrics server", "error", err)
		}
	}
}
