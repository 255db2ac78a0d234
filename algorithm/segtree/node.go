package segtree

// absent 是空子节点哨兵：节点池的 0 号槽位永远不使用。
const absent int32 = 0

// rootIdx 根节点在节点池中的下标。
const rootIdx int32 = 1

// Node 表示闭区间 [L, R] 上的一个线段树节点。
// Val 为区间聚合值，Tag 为尚未下推的懒标记；二者都由 TagPolicy 读写。
type Node[V, T any] struct {
	Val V
	Tag T

	l, r        int
	left, right int32 // 节点池下标，absent 表示尚未创建
}

// L 返回区间左端点。
func (n *Node[V, T]) L() int { return n.l }

// R 返回区间右端点。
func (n *Node[V, T]) R() int { return n.r }

// Width 返回区间内元素个数。
func (n *Node[V, T]) Width() int { return n.r - n.l + 1 }

func (n *Node[V, T]) leaf() bool { return n.l == n.r }

// mid 向下取整的中点，负数区间同样适用且不会溢出。
func (n *Node[V, T]) mid() int { return n.l + (n.r-n.l)>>1 }

// alloc 在节点池末尾创建一个零值节点并返回其下标。
// 调用后之前取得的 *Node 可能因扩容失效，只能继续使用下标。
func (t *Tree[V, T]) alloc(l, r int) int32 {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, Node[V, T]{l: l, r: r})
	return idx
}

// split 按需创建 idx 的两个子节点并下推其懒标记，返回两个子节点下标。
func (t *Tree[V, T]) split(idx int32) (int32, int32) {
	n := &t.nodes[idx]
	if n.left == absent || n.right == absent {
		l, r, mid := n.l, n.r, n.mid()
		if n.left == absent {
			lc := t.alloc(l, mid)
			t.nodes[idx].left = lc
		}
		if t.nodes[idx].right == absent {
			rc := t.alloc(mid+1, r)
			t.nodes[idx].right = rc
		}
		n = &t.nodes[idx]
	}
	t.pushdown(n)
	return n.left, n.right
}

// pushdown 把 n 的懒标记作用到两个子节点后清空。
func (t *Tree[V, T]) pushdown(n *Node[V, T]) {
	if t.local {
		return
	}
	t.policy.Apply(n.Tag, &t.nodes[n.left])
	t.policy.Apply(n.Tag, &t.nodes[n.right])
	t.policy.Clear(&n.Tag)
}

// pull 用两个子节点的聚合值重算 idx。
func (t *Tree[V, T]) pull(idx int32) {
	n := &t.nodes[idx]
	n.Val = t.merge(t.nodes[n.left].Val, t.nodes[n.right].Val)
}
