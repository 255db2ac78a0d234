// segbench 校验动态开点线段树与暴力实现的一致性，并在大区间上做压力测试。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/wyfcoding/segtree/bench"
	"github.com/wyfcoding/segtree/config"
	"github.com/wyfcoding/segtree/logging"
	"github.com/wyfcoding/segtree/metrics"
	"github.com/wyfcoding/segtree/tracing"
)

const serviceName = "segbench"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "TOML config file")
	config.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	var cfg config.Config
	if err := config.Load(*configPath, &cfg, fs); err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		return exitUsage
	}

	logger := logging.InitLogger(logging.Config{
		Service:    serviceName,
		Module:     "main",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		Stdout:     cfg.Log.Stdout,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []bench.Option{bench.WithLogger(logger.Logger)}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(ctx, cfg.Tracing)
		if err != nil {
			logger.ErrorContext(ctx, "init tracer failed", "error", err)
			return exitFailure
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("tracer shutdown failed", "error", err)
			}
		}()
	}

	if cfg.Metrics.Enabled {
		m := metrics.NewMetrics(serviceName)
		m.RegisterBuildInfo(serviceName, cfg.Version)
		shutdown := m.ExposeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path)
		defer shutdown()
		defer linger(ctx, cfg.Metrics.Linger)
		opts = append(opts, bench.WithMetrics(m))
		logger.InfoContext(ctx, "metrics exposed", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
	}

	rep, err := bench.NewRunner(cfg.Bench, opts...).Run(ctx)
	logger.InfoContext(ctx, "segbench summary",
		"seed", rep.Seed,
		"passed", rep.Passed,
		"failed", rep.Failed,
		"elapsed", rep.Elapsed,
	)
	if err != nil {
		logger.ErrorContext(ctx, "segbench failed", errorAttrs(err)...)
	}
	return exitCode(err)
}

// linger 运行结束后保持指标服务一段时间，收到退出信号时提前返回。
func linger(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
