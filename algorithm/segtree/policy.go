package segtree

import "golang.org/x/exp/constraints"

// Number 是内置求和/最值策略支持的数值类型。
type Number interface {
	constraints.Integer | constraints.Float
}

// MergeFunc 将左子区间与相邻右子区间的聚合值合并为并集的聚合值。
// 必须满足结合律，但不要求交换律：a 永远代表左侧。
type MergeFunc[V any] func(a, b V) V

// TagPolicy 定义懒标记的语义。
//
// Apply 在 O(1) 内把 tag 折叠进 n.Val（效果与元素个数相关时需按 n.Width() 缩放），
// 并把 tag 累积到 n.Tag 以便稍后继续下推。
// Clear 在标记已下推到两个子节点后把它重置为单位元。
type TagPolicy[V, T any] interface {
	Apply(tag T, n *Node[V, T])
	Clear(tag *T)
}

// LocalTagger 由只在命中节点生效、从不下推的策略实现。
// Local 返回 true 时树跳过整个下推流程，此类策略只适用于单点标记。
type LocalTagger interface {
	Local() bool
}

// Sum 求和合并。
func Sum[N Number](a, b N) N { return a + b }

// Max 最大值合并。
func Max[N Number](a, b N) N { return max(a, b) }

// Min 最小值合并。
func Min[N Number](a, b N) N { return min(a, b) }

// Add 区间加标记：区间和增加 tag×宽度。
type Add[N Number] struct{}

func (Add[N]) Apply(tag N, n *Node[N, N]) {
	n.Val += tag * N(n.Width())
	n.Tag += tag
}

func (Add[N]) Clear(tag *N) { *tag = 0 }

// Shift 区间加标记：用于最值类聚合，每个元素加 tag，聚合值同样只加 tag。
type Shift[N Number] struct{}

func (Shift[N]) Apply(tag N, n *Node[N, N]) {
	n.Val += tag
	n.Tag += tag
}

func (Shift[N]) Clear(tag *N) { *tag = 0 }

// LocalAdd 不下推的加法标记，只作用于命中的节点。
type LocalAdd[N Number] struct{}

func (LocalAdd[N]) Apply(tag N, n *Node[N, N]) { n.Val += tag }

func (LocalAdd[N]) Clear(*N) {}

func (LocalAdd[N]) Local() bool { return true }

// LocalFunc 把任意折叠函数适配为不下推的标记策略，
// 例如字符串拼接或自定义结构体上的单点修改。
type LocalFunc[V, T any] func(val V, tag T) V

func (f LocalFunc[V, T]) Apply(tag T, n *Node[V, T]) { n.Val = f(n.Val, tag) }

func (LocalFunc[V, T]) Clear(*T) {}

func (LocalFunc[V, T]) Local() bool { return true }

func isLocal(p any) bool {
	lt, ok := p.(LocalTagger)
	return ok && lt.Local()
}
