package segtree

import "github.com/shopspring/decimal"

// DecimalSum 精确小数求和合并，适合金额、库存等不能接受浮点误差的场景。
func DecimalSum(a, b decimal.Decimal) decimal.Decimal { return a.Add(b) }

// DecimalAdd 精确小数区间加标记。零值 decimal.Decimal 即为 0，可直接作为单位元。
type DecimalAdd struct{}

func (DecimalAdd) Apply(tag decimal.Decimal, n *Node[decimal.Decimal, decimal.Decimal]) {
	n.Val = n.Val.Add(tag.Mul(decimal.NewFromInt(int64(n.Width()))))
	n.Tag = n.Tag.Add(tag)
}

func (DecimalAdd) Clear(tag *decimal.Decimal) { *tag = decimal.Zero }

// NewDecimalSum 创建区间加、区间求和的小数线段树。
func NewDecimalSum(l, r int, opts ...Option) (*Tree[decimal.Decimal, decimal.Decimal], error) {
	return New[decimal.Decimal, decimal.Decimal](l, r, DecimalSum, DecimalAdd{}, opts...)
}
