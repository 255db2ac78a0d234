// Package segtree 实现动态开点、支持懒标记的泛型线段树。
//
// 树覆盖固定的闭区间 [L, R]，节点只在第一次被访问时创建，因此 ±1e8 这样的大区间
// 占用的内存只与实际触及的位置数量相关。值类型、合并函数与标记语义均可替换：
// 内置了求和、最值、最大子段和以及 decimal 精确求和等组合。
//
// Tree 不是并发安全的，需要共享时使用 Guarded 或在外部加锁。
package segtree

import (
	"math"
	"slices"
)

// Tree 动态开点线段树。
// 节点保存在连续的节点池中，子节点用下标引用：0 号槽位为空哨兵，1 号槽位为根。
type Tree[V, T any] struct {
	nodes  []Node[V, T]
	merge  MergeFunc[V]
	policy TagPolicy[V, T]
	local  bool // 策略不下推标记
}

type options struct {
	capacity int
}

// Option 定义构造选项。
type Option func(*options)

// WithCapacity 预分配节点池容量，适合已知操作规模的场景。
// 每次操作最多新建约 2*log2(R-L+1) 个节点。
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// New 创建覆盖 [l, r] 的线段树。l > r 或区间宽度无法用 int 表示时返回 ErrRange。
func New[V, T any](l, r int, merge MergeFunc[V], policy TagPolicy[V, T], opts ...Option) (*Tree[V, T], error) {
	if l > r {
		return nil, rangeError("new", l, r)
	}
	if r-l+1 <= 0 {
		// r-l 溢出，Width 无法表示
		return nil, rangeError("new", l, r)
	}

	o := options{capacity: 2}
	for _, opt := range opts {
		opt(&o)
	}

	t := &Tree[V, T]{
		nodes:  make([]Node[V, T], 1, max(o.capacity, 2)),
		merge:  merge,
		policy: policy,
		local:  isLocal(policy),
	}
	t.alloc(l, r)
	return t, nil
}

// NewSum 创建区间加、区间求和的线段树。
func NewSum[N Number](l, r int, opts ...Option) (*Tree[N, N], error) {
	return New[N, N](l, r, Sum[N], Add[N]{}, opts...)
}

// NewMax 创建区间加、区间最大值的线段树。未写入的位置视为 0。
func NewMax[N Number](l, r int, opts ...Option) (*Tree[N, N], error) {
	return New[N, N](l, r, Max[N], Shift[N]{}, opts...)
}

// NewMaxSubarray 创建单点修改、区间最大子段和的线段树。未写入的位置视为 0。
func NewMaxSubarray[N Number](l, r int, opts ...Option) (*Tree[MaxSubarray[N], N], error) {
	return New[MaxSubarray[N], N](l, r, MergeMaxSubarray[N], ShiftMaxSubarray[N]{}, opts...)
}

// Bounds 返回树覆盖的区间。
func (t *Tree[V, T]) Bounds() (int, int) {
	root := &t.nodes[rootIdx]
	return root.l, root.r
}

// Nodes 返回已创建的节点数（含根）。
func (t *Tree[V, T]) Nodes() int {
	return len(t.nodes) - 1
}

// Clear 释放根以下的全部节点，根恢复为零值，区间不变。
func (t *Tree[V, T]) Clear() {
	l, r := t.Bounds()
	// 清零被丢弃的槽位，使其中的引用可被回收
	clear(t.nodes[rootIdx+1:])
	t.nodes = t.nodes[:rootIdx]
	t.alloc(l, r)
}

// Replace 把位置 pos 的值覆盖为 v，丢弃该位置尚未下推的标记效果。
func (t *Tree[V, T]) Replace(pos int, v V) error {
	if lo, hi := t.Bounds(); pos < lo || pos > hi {
		return outOfRangeError("replace", pos, pos, lo, hi)
	}
	t.replace(rootIdx, pos, v)
	return nil
}

func (t *Tree[V, T]) replace(idx int32, pos int, v V) {
	n := &t.nodes[idx]
	if n.leaf() {
		n.Val = v
		t.policy.Clear(&n.Tag)
		return
	}
	mid := n.mid()
	lc, rc := t.split(idx)
	if pos <= mid {
		t.replace(lc, pos, v)
	} else {
		t.replace(rc, pos, v)
	}
	t.pull(idx)
}

// Modify 对区间 [l, r] 施加标记。
// l == r+1 视为空区间直接返回 nil（先于越界检查），其余 l > r 返回 ErrRange。
// r 为 math.MaxInt 时 r+1 溢出，不属于空区间。
func (t *Tree[V, T]) Modify(l, r int, tag T) error {
	if r < math.MaxInt && l == r+1 {
		return nil
	}
	if err := t.check("modify", l, r); err != nil {
		return err
	}
	t.modify(rootIdx, l, r, tag)
	return nil
}

// ModifyAt 对单个位置施加标记，等价于 Modify(pos, pos, tag)。
func (t *Tree[V, T]) ModifyAt(pos int, tag T) error {
	return t.Modify(pos, pos, tag)
}

func (t *Tree[V, T]) modify(idx int32, l, r int, tag T) {
	n := &t.nodes[idx]
	if n.l == l && n.r == r {
		t.policy.Apply(tag, n)
		return
	}
	mid := n.mid()
	lc, rc := t.split(idx)
	switch {
	case r <= mid:
		t.modify(lc, l, r, tag)
	case l > mid:
		t.modify(rc, l, r, tag)
	default:
		t.modify(lc, l, mid, tag)
		t.modify(rc, mid+1, r, tag)
	}
	t.pull(idx)
}

// Query 返回区间 [l, r] 的聚合值。
// 查询同样会按需创建节点并下推标记，因此不是只读操作。
func (t *Tree[V, T]) Query(l, r int) (V, error) {
	if err := t.check("query", l, r); err != nil {
		var zero V
		return zero, err
	}
	return t.query(rootIdx, l, r), nil
}

// QueryAt 返回单个位置的值，等价于 Query(pos, pos)。
func (t *Tree[V, T]) QueryAt(pos int) (V, error) {
	return t.Query(pos, pos)
}

func (t *Tree[V, T]) query(idx int32, l, r int) V {
	n := &t.nodes[idx]
	if n.l == l && n.r == r {
		return n.Val
	}
	mid := n.mid()
	lc, rc := t.split(idx)
	switch {
	case r <= mid:
		return t.query(lc, l, r)
	case l > mid:
		return t.query(rc, l, r)
	default:
		left := t.query(lc, l, mid)
		return t.merge(left, t.query(rc, mid+1, r))
	}
}

func (t *Tree[V, T]) check(op string, l, r int) error {
	if l > r {
		return rangeError(op, l, r)
	}
	if lo, hi := t.Bounds(); l < lo || r > hi {
		return outOfRangeError(op, l, r, lo, hi)
	}
	return nil
}

// Clone 返回内容相同、互不影响的深拷贝。
// V 与 T 按值复制；若其内部持有引用类型，引用本身会被共享。
func (t *Tree[V, T]) Clone() *Tree[V, T] {
	c := *t
	c.nodes = slices.Clone(t.nodes)
	return &c
}

// CopyFrom 以 src 的内容覆盖 t（赋值语义），复用 t 已有的节点池空间。
func (t *Tree[V, T]) CopyFrom(src *Tree[V, T]) {
	if t == src {
		return
	}
	if n := len(src.nodes); n < len(t.nodes) {
		clear(t.nodes[n:])
	}
	t.nodes = append(t.nodes[:0], src.nodes...)
	t.merge = src.merge
	t.policy = src.policy
	t.local = src.local
}
