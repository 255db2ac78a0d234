// Package config 提供 segbench 的配置加载：TOML 文件、环境变量与命令行参数三层合并，
// 加载后做结构体校验，并在文件变化时热更新日志级别。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wyfcoding/segtree/logging"
)

// EnvPrefix 环境变量前缀，例如 SEGBENCH_BENCH_TRIALS=20。
const EnvPrefix = "SEGBENCH"

// Config 全局顶级配置结构.
type Config struct {
	Version string        `mapstructure:"version" toml:"version"`
	Log     LogConfig     `mapstructure:"log"     toml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" toml:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing" toml:"tracing"`
	Bench   BenchConfig   `mapstructure:"bench"   toml:"bench"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"        toml:"file"`        // 日志文件路径，为空时只写 stdout。
	Stdout     bool   `mapstructure:"stdout"      toml:"stdout"`      // 写文件时是否同时写 stdout。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`    // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"` // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`     // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`    // 是否启用压缩。
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Addr    string `mapstructure:"addr"    toml:"addr"    validate:"required_if=Enabled true"`
	Path    string `mapstructure:"path"    toml:"path"    validate:"startswith=/"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	// Linger 运行结束后继续暴露指标的时间，便于抓取最终结果。
	Linger time.Duration `mapstructure:"linger" toml:"linger"`
}

// TracingConfig 链路追踪配置。OTLPEndpoint 为空时只在进程内生成 Span，用于日志关联。
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"  validate:"required_if=Enabled true"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"gte=0,lte=1"`
}

// BenchConfig 校验与压测参数.
type BenchConfig struct {
	Trials      int            `mapstructure:"trials"      toml:"trials"      validate:"min=1"`
	Concurrency int            `mapstructure:"concurrency" toml:"concurrency" validate:"min=1"`
	Seed        uint64         `mapstructure:"seed"        toml:"seed"`        // 0 表示按时间生成
	ValueSpan   int            `mapstructure:"value_span"  toml:"value_span"  validate:"min=1"`
	Verify      WorkloadConfig `mapstructure:"verify"      toml:"verify"`
	Pressure    WorkloadConfig `mapstructure:"pressure"    toml:"pressure"`
}

// WorkloadConfig 单个工作负载的区间与操作数.
type WorkloadConfig struct {
	Lower int `mapstructure:"lower" toml:"lower"`
	Upper int `mapstructure:"upper" toml:"upper" validate:"gtefield=Lower"`
	Ops   int `mapstructure:"ops"   toml:"ops"   validate:"min=0"`
}

type reloadHook struct {
	id uint64
	fn func(*Config)
}

var (
	mu        sync.Mutex
	vInstance = viper.New()
	onReload  []reloadHook
	nextHook  uint64
)

// RegisterReloadHook 注册配置热更新回调，返回的函数用于注销。
// 回调在文件监听 goroutine 中同步执行，不应阻塞。
func RegisterReloadHook(hook func(*Config)) (unregister func()) {
	if hook == nil {
		return func() {}
	}
	mu.Lock()
	defer mu.Unlock()
	nextHook++
	id := nextHook
	onReload = append(onReload, reloadHook{id: id, fn: hook})
	return func() {
		mu.Lock()
		defer mu.Unlock()
		onReload = slices.DeleteFunc(onReload, func(h reloadHook) bool { return h.id == id })
	}
}

// Defaults 返回所有配置项的默认值，与原始驱动的规模保持一致。
func Defaults() map[string]any {
	return map[string]any{
		"version":               "dev",
		"log.level":             "info",
		"log.stdout":            true,
		"log.max_size":          100,
		"log.max_backups":       3,
		"log.max_age":           7,
		"metrics.enabled":       false,
		"metrics.addr":          ":9090",
		"metrics.path":          "/metrics",
		"metrics.linger":        0,
		"tracing.enabled":       true,
		"tracing.service_name":  "segbench",
		"tracing.sampler_ratio": 1.0,
		"bench.trials":          10,
		"bench.concurrency":     4,
		"bench.seed":            0,
		"bench.value_span":      1000,
		"bench.verify.lower":    -500,
		"bench.verify.upper":    999,
		"bench.verify.ops":      100000,
		"bench.pressure.lower":  -100000000,
		"bench.pressure.upper":  100000000,
		"bench.pressure.ops":    1000000,
	}
}

// BindFlags 在 fs 上注册可覆盖配置的命令行参数，参数名与配置键一致。
func BindFlags(fs *pflag.FlagSet) {
	fs.String("log.level", "info", "log level: debug, info, warn, error")
	fs.String("log.file", "", "rotated JSON log file")
	fs.Bool("metrics.enabled", false, "expose prometheus metrics")
	fs.String("metrics.addr", ":9090", "metrics listen address")
	fs.String("tracing.otlp_endpoint", "", "OTLP gRPC collector, empty keeps spans in process")
	fs.Int("bench.trials", 10, "verification rounds per workload")
	fs.Int("bench.concurrency", 4, "trials running at the same time")
	fs.Uint64("bench.seed", 0, "random seed, 0 derives one from the clock")
	fs.Int("bench.verify.ops", 100000, "operations per verification round")
	fs.Int("bench.pressure.ops", 1000000, "operations in the pressure round")
}

// Load 按 默认值 < 配置文件 < 环境变量 < 显式设置的命令行参数 的优先级加载配置。
// path 为空时跳过文件；fs 可以为 nil。
// 指定了文件时会监听其变化：新配置校验通过后更新全局日志级别并回调 RegisterReloadHook 注册的钩子，
// conf 本身不会被改写。
func Load(path string, conf *Config, fs *pflag.FlagSet) error {
	v := viper.New()
	for key, val := range Defaults() {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return fmt.Errorf("bind flags error: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config error: %w", err)
		}
	}

	if err := v.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	mu.Lock()
	vInstance = v
	mu.Unlock()

	if path == "" {
		return nil
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name, "op", event.Op.String())
		// 编辑器与 os.WriteFile 会先截断再写入，等写入稳定后重新读取
		const debounceTimeout = 200 * time.Millisecond
		time.Sleep(debounceTimeout)
		if err := v.ReadInConfig(); err != nil {
			slog.Error("reload config read failed", "error", err)
			return
		}

		var next Config
		if err := v.Unmarshal(&next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := validate.Struct(&next); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				slog.Error("reload config validation failed", "fields", len(verrs), "error", err)
			} else {
				slog.Error("reload config validation failed", "error", err)
			}
			return
		}

		logging.SetLevel(next.Log.Level)
		mu.Lock()
		hooks := slices.Clone(onReload)
		mu.Unlock()
		for _, hook := range hooks {
			hook.fn(&next)
		}
		slog.Info("config hot-reloaded and validated successfully", "level", next.Log.Level)
	})
	v.WatchConfig()

	return nil
}

// GetViper 返回最近一次 Load 使用的 Viper 实例.
func GetViper() *viper.Viper {
	mu.Lock()
	defer mu.Unlock()
	return vInstance
}
