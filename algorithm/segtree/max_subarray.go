package segtree

// MaxSubarray 是最大连续子段和的聚合值，合并不满足交换律。
// Prefix/Suffix 为最大前缀/后缀和，Best 为区间内至少含一个元素的最大子段和。
type MaxSubarray[N Number] struct {
	Prefix N
	Suffix N
	Best   N
	Sum    N
}

// MaxSubarrayOf 返回单个元素 v 的聚合值。
func MaxSubarrayOf[N Number](v N) MaxSubarray[N] {
	return MaxSubarray[N]{Prefix: v, Suffix: v, Best: v, Sum: v}
}

// MergeMaxSubarray 合并左右相邻区间。
func MergeMaxSubarray[N Number](a, b MaxSubarray[N]) MaxSubarray[N] {
	return MaxSubarray[N]{
		Prefix: max(a.Prefix, a.Sum+b.Prefix),
		Suffix: max(b.Suffix, a.Suffix+b.Sum),
		Best:   max(a.Best, b.Best, a.Suffix+b.Prefix),
		Sum:    a.Sum + b.Sum,
	}
}

// ShiftMaxSubarray 单点加标记：命中节点的每个分量都加上 tag，不下推。
type ShiftMaxSubarray[N Number] struct{}

func (ShiftMaxSubarray[N]) Apply(tag N, n *Node[MaxSubarray[N], N]) {
	n.Val.Prefix += tag
	n.Val.Suffix += tag
	n.Val.Best += tag
	n.Val.Sum += tag
}

func (ShiftMaxSubarray[N]) Clear(*N) {}

func (ShiftMaxSubarray[N]) Local() bool { return true }
