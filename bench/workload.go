// Package bench 用随机操作序列校验并压测动态开点线段树：
// 与暴力数组对比区间和、与 Kadane 算法对比最大子段和，以及在 ±1e8 区间上的压力测试。
package bench

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/wyfcoding/segtree/algorithm/segtree"
	"github.com/wyfcoding/segtree/metrics"
	"github.com/wyfcoding/segtree/xerrors"
)

// 工作负载名称，同时用作指标标签。
const (
	WorkloadSum         = "sum"
	WorkloadMaxSubarray = "max_subarray"
	WorkloadPressure    = "pressure"
)

// 操作种类，用作指标标签。
const (
	opReplace     = "replace"
	opRangeModify = "range_modify"
	opPointModify = "point_modify"
	opQuery       = "query"
)

// ctxCheckInterval 每执行这么多次操作检查一次 ctx 是否已取消。
const ctxCheckInterval = 1024

var (
	// ErrMismatch 线段树结果与参照实现不一致。
	ErrMismatch = xerrors.New(xerrors.ErrInternal, 500101, "segment tree mismatch", "query result differs from reference", nil)
	// ErrInvalidWorkload 工作负载参数非法。
	ErrInvalidWorkload = xerrors.New(xerrors.ErrInvalidArg, 400201, "invalid workload", "", nil)
)

// Workload 描述一轮随机操作。
type Workload struct {
	Lower     int
	Upper     int
	Ops       int
	ValueSpan int
	Seed      uint64
}

// Result 是一轮工作负载的执行结果。
type Result struct {
	Workload string
	Seed     uint64
	Ops      int
	Nodes    int
	Elapsed  time.Duration
	Err      error
}

// Validate 检查参数是否可以生成随机操作。
func (w Workload) Validate() error {
	var detail string
	switch {
	case w.Lower > w.Upper:
		detail = fmt.Sprintf("lower %d exceeds upper %d", w.Lower, w.Upper)
	case w.Ops < 0:
		detail = fmt.Sprintf("ops must not be negative, got %d", w.Ops)
	case w.ValueSpan <= 0:
		detail = fmt.Sprintf("value span must be positive, got %d", w.ValueSpan)
	default:
		return nil
	}
	return ErrInvalidWorkload.Derive().
		WithDetail("%s", detail).
		WithContext("lower", w.Lower).
		WithContext("upper", w.Upper).
		WithContext("value_span", w.ValueSpan)
}

type driver struct {
	w       Workload
	rng     *rand.Rand
	metrics *metrics.Metrics
}

func newDriver(w Workload, m *metrics.Metrics) *driver {
	return &driver{
		w:       w,
		rng:     rand.New(rand.NewPCG(w.Seed, w.Seed^0x9e3779b97f4a7c15)),
		metrics: m,
	}
}

// span 随机选取 [l, r]：l 在整个区间内均匀分布，r 在 [l, Upper] 内均匀分布。
func (d *driver) span() (int, int) {
	l := d.w.Lower + d.rng.IntN(d.w.Upper-d.w.Lower+1)
	return l, l + d.rng.IntN(d.w.Upper-l+1)
}

// value 返回以 0 为中心、偏移 bias 的随机值。
func (d *driver) value(bias int) int64 {
	return int64(d.rng.IntN(d.w.ValueSpan) - d.w.ValueSpan/2 + bias)
}

func (d *driver) observe(kind string, start time.Time, err error) error {
	d.metrics.ObserveOperation(kind, time.Since(start), err)
	return err
}

func (d *driver) mismatch(workload string, op, l, r int, want, got int64) error {
	return ErrMismatch.Derive().
		WithDetail("query [%d, %d] expected %d, got %d", l, r, want, got).
		WithContext("workload", workload).
		WithContext("op", op).
		WithContext("l", l).
		WithContext("r", r).
		WithContext("seed", d.w.Seed)
}

// VerifySum 在区间加、区间和的树上执行随机操作，逐次与暴力数组对比查询结果。
func VerifySum(ctx context.Context, w Workload, m *metrics.Metrics) (Result, error) {
	res := Result{Workload: WorkloadSum, Seed: w.Seed}
	if err := w.Validate(); err != nil {
		return res, err
	}
	tree, err := segtree.NewSum[int64](w.Lower, w.Upper)
	if err != nil {
		return res, xerrors.Wrap(err, xerrors.ErrInvalidArg, "build workload tree")
	}
	d := newDriver(w, m)
	arr := make([]int64, w.Upper-w.Lower+1)
	at := func(i int) *int64 { return &arr[i-w.Lower] }

	start := time.Now()
	for op := 0; op < w.Ops; op++ {
		if op%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		l, r := d.span()
		v := d.value(0)
		t0 := time.Now()
		switch d.rng.IntN(4) {
		case 0:
			*at(l) = v
			err = d.observe(opReplace, t0, tree.Replace(l, v))
		case 1:
			for i := l; i <= r; i++ {
				*at(i) += v
			}
			err = d.observe(opRangeModify, t0, tree.Modify(l, r, v))
		case 2:
			got, qerr := tree.Query(l, r)
			err = d.observe(opQuery, t0, qerr)
			if err == nil {
				var want int64
				for i := l; i <= r; i++ {
					want += *at(i)
				}
				if want != got {
					err = d.mismatch(WorkloadSum, op, l, r, want, got)
				}
			}
		case 3:
			*at(l) += v
			err = d.observe(opPointModify, t0, tree.ModifyAt(l, v))
		}
		if err != nil {
			return res, err
		}
		res.Ops++
	}
	res.Elapsed = time.Since(start)
	res.Nodes = tree.Nodes()
	return res, nil
}

func kadane(xs []int64) int64 {
	best, cur := xs[0], xs[0]
	for _, x := range xs[1:] {
		cur = max(x, cur+x)
		best = max(best, cur)
	}
	return best
}

// VerifyMaxSubarray 在单点修改、区间最大子段和的树上执行随机操作，与 Kadane 算法对比。
// 该聚合的合并不满足交换律，可以发现左右子树顺序错误。
func VerifyMaxSubarray(ctx context.Context, w Workload, m *metrics.Metrics) (Result, error) {
	res := Result{Workload: WorkloadMaxSubarray, Seed: w.Seed}
	if err := w.Validate(); err != nil {
		return res, err
	}
	tree, err := segtree.NewMaxSubarray[int64](w.Lower, w.Upper)
	if err != nil {
		return res, xerrors.Wrap(err, xerrors.ErrInvalidArg, "build workload tree")
	}
	d := newDriver(w, m)
	arr := make([]int64, w.Upper-w.Lower+1)
	// 略微偏正，避免最大子段和总是单个元素
	bias := w.ValueSpan / 20

	start := time.Now()
	for op := 0; op < w.Ops; op++ {
		if op%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		l, r := d.span()
		v := d.value(bias)
		t0 := time.Now()
		switch d.rng.IntN(3) {
		case 0:
			arr[l-w.Lower] = v
			err = d.observe(opReplace, t0, tree.Replace(l, segtree.MaxSubarrayOf(v)))
		case 1:
			got, qerr := tree.Query(l, r)
			err = d.observe(opQuery, t0, qerr)
			if err == nil {
				if want := kadane(arr[l-w.Lower : r-w.Lower+1]); want != got.Best {
					err = d.mismatch(WorkloadMaxSubarray, op, l, r, want, got.Best)
				}
			}
		case 2:
			arr[l-w.Lower] += v
			err = d.observe(opPointModify, t0, tree.ModifyAt(l, v))
		}
		if err != nil {
			return res, err
		}
		res.Ops++
	}
	res.Elapsed = time.Since(start)
	res.Nodes = tree.Nodes()
	return res, nil
}

// Pressure 在大区间上执行随机操作，只统计耗时与创建的节点数。
func Pressure(ctx context.Context, w Workload, m *metrics.Metrics) (Result, error) {
	res := Result{Workload: WorkloadPressure, Seed: w.Seed}
	if err := w.Validate(); err != nil {
		return res, err
	}
	tree, err := segtree.NewSum[int64](w.Lower, w.Upper)
	if err != nil {
		return res, xerrors.Wrap(err, xerrors.ErrInvalidArg, "build workload tree")
	}
	d := newDriver(w, m)

	start := time.Now()
	for op := 0; op < w.Ops; op++ {
		if op%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		l, r := d.span()
		v := d.value(0)
		t0 := time.Now()
		switch d.rng.IntN(4) {
		case 0:
			err = d.observe(opReplace, t0, tree.Replace(l, v))
		case 1:
			err = d.observe(opRangeModify, t0, tree.Modify(l, r, v))
		case 2:
			_, qerr := tree.Query(l, r)
			err = d.observe(opQuery, t0, qerr)
		case 3:
			err = d.observe(opPointModify, t0, tree.ModifyAt(l, v))
		}
		if err != nil {
			return res, err
		}
		res.Ops++
	}
	res.Elapsed = time.Since(start)
	res.Nodes = tree.Nodes()
	return res, nil
}
