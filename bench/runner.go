package bench

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wyfcoding/segtree/config"
	"github.com/wyfcoding/segtree/logging"
	"github.com/wyfcoding/segtree/metrics"
	"github.com/wyfcoding/segtree/tracing"
)

const tracerName = "github.com/wyfcoding/segtree/bench"

// Report 汇总一次 Run 的全部结果。
type Report struct {
	Seed    uint64
	Results []Result
	Passed  int
	Failed  int
	Elapsed time.Duration
}

// Runner 并发执行多轮校验与一轮压测，每轮使用独立的树，不共享状态。
type Runner struct {
	cfg     config.BenchConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option 定义配置选项。
type Option func(*Runner)

// WithLogger 设置日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithMetrics 注入指标采集器.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithTracer 设置链路追踪器，默认使用全局 TracerProvider。
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		r.tracer = t
	}
}

// NewRunner 创建 Runner。Concurrency 小于 1 时按 1 处理。
func NewRunner(cfg config.BenchConfig, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cfg.Concurrency = max(r.cfg.Concurrency, 1)
	if r.cfg.Seed == 0 {
		r.cfg.Seed = uint64(time.Now().UnixNano())
	}
	return r
}

type trial struct {
	name string
	w    Workload
	run  func(context.Context, Workload, *metrics.Metrics) (Result, error)
}

func (r *Runner) trials() []trial {
	verify := func(seed uint64) Workload {
		return Workload{
			Lower:     r.cfg.Verify.Lower,
			Upper:     r.cfg.Verify.Upper,
			Ops:       r.cfg.Verify.Ops,
			ValueSpan: r.cfg.ValueSpan,
			Seed:      seed,
		}
	}

	var out []trial
	for i := 0; i < r.cfg.Trials; i++ {
		seed := r.cfg.Seed + uint64(2*i)
		out = append(out,
			trial{name: WorkloadSum, w: verify(seed), run: VerifySum},
			trial{name: WorkloadMaxSubarray, w: verify(seed + 1), run: VerifyMaxSubarray},
		)
	}
	if r.cfg.Pressure.Ops > 0 {
		out = append(out, trial{
			name: WorkloadPressure,
			w: Workload{
				Lower:     r.cfg.Pressure.Lower,
				Upper:     r.cfg.Pressure.Upper,
				Ops:       r.cfg.Pressure.Ops,
				ValueSpan: r.cfg.ValueSpan,
				Seed:      r.cfg.Seed - 1,
			},
			run: Pressure,
		})
	}
	return out
}

// Run 执行全部轮次并返回报告。任一轮出现不一致或被取消时返回非 nil 错误，报告仍然完整。
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	ctx, span := r.tracer.Start(ctx, "segbench.run",
		trace.WithAttributes(
			attribute.Int("trials", r.cfg.Trials),
			attribute.Int64("seed", int64(r.cfg.Seed)),
		))
	defer span.End()
	defer logging.LogDuration(ctx, r.logger, "segbench run", "seed", r.cfg.Seed)()

	p := pool.NewWithResults[Result]().
		WithContext(ctx).
		WithMaxGoroutines(r.cfg.Concurrency)

	start := time.Now()
	for _, tr := range r.trials() {
		p.Go(func(ctx context.Context) (Result, error) {
			return r.runTrial(ctx, tr), nil
		})
	}
	results, err := p.Wait()

	rep := &Report{Seed: r.cfg.Seed, Results: results, Elapsed: time.Since(start)}
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	for _, res := range results {
		if res.Err != nil {
			rep.Failed++
			errs = append(errs, res.Err)
		} else {
			rep.Passed++
		}
	}
	if err := errors.Join(errs...); err != nil {
		tracing.SetError(span, err, "segbench failed")
		return rep, err
	}
	return rep, nil
}

func (r *Runner) runTrial(ctx context.Context, tr trial) Result {
	ctx, span := r.tracer.Start(ctx, "segbench."+tr.name,
		trace.WithAttributes(
			attribute.Int("lower", tr.w.Lower),
			attribute.Int("upper", tr.w.Upper),
			attribute.Int("ops", tr.w.Ops),
			attribute.Int64("seed", int64(tr.w.Seed)),
		))
	defer span.End()

	res, err := tr.run(ctx, tr.w, r.metrics)
	res.Err = err

	outcome := metrics.ResultOK
	if err != nil {
		outcome = metrics.ResultError
		tracing.SetError(span, err, "trial failed")
		r.logger.ErrorContext(ctx, "trial failed",
			"workload", tr.name, "seed", tr.w.Seed, "ops_done", res.Ops, "error", err)
	} else {
		r.logger.InfoContext(ctx, "trial passed",
			"workload", tr.name, "seed", tr.w.Seed, "ops", res.Ops,
			"nodes", res.Nodes, "elapsed", res.Elapsed)
	}

	if r.metrics != nil {
		r.metrics.TrialsTotal.WithLabelValues(tr.name, outcome).Inc()
		r.metrics.MaterializedNodes.WithLabelValues(tr.name).Set(float64(res.Nodes))
	}
	return res
}
