package segtree

import "sync"

// Guarded 用互斥锁包装 Tree，供多个 goroutine 共享同一棵树。
// 查询会创建节点并下推标记，所以读操作也必须持有写锁，不能使用 RWMutex 的读锁。
type Guarded[V, T any] struct {
	mu   sync.Mutex
	tree *Tree[V, T]
}

// NewGuarded 包装一棵已有的树，之后不应再直接访问 t。
func NewGuarded[V, T any](t *Tree[V, T]) *Guarded[V, T] {
	return &Guarded[V, T]{tree: t}
}

func (g *Guarded[V, T]) Replace(pos int, v V) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tree.Replace(pos, v)
}

func (g *Guarded[V, T]) Modify(l, r int, tag T) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tree.Modify(l, r, tag)
}

func (g *Guarded[V, T]) Query(l, r int) (V, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tree.Query(l, r)
}

func (g *Guarded[V, T]) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tree.Clear()
}

// Snapshot 返回当前内容的深拷贝，拷贝本身不受锁保护。
func (g *Guarded[V, T]) Snapshot() *Tree[V, T] {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tree.Clone()
}
