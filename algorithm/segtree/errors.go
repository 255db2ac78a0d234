package segtree

import "github.com/wyfcoding/segtree/xerrors"

var (
	// ErrRange 区间参数非法（l > r）或构造区间为空。
	ErrRange = xerrors.New(xerrors.ErrInvalidArg, 400101, "invalid range", "left bound must not exceed right bound", nil)
	// ErrOutOfRange 下标或区间超出树的 [L, R]。
	ErrOutOfRange = xerrors.New(xerrors.ErrOutOfRange, 400102, "index out of range", "argument lies outside the tree span", nil)
)

func rangeError(op string, l, r int) error {
	return ErrRange.Derive().
		WithContext("op", op).
		WithContext("l", l).
		WithContext("r", r)
}

func outOfRangeError(op string, l, r, lo, hi int) error {
	return ErrOutOfRange.Derive().
		WithDetail("[%d, %d] is not within [%d, %d]", l, r, lo, hi).
		WithContext("op", op).
		WithContext("l", l).
		WithContext("r", r)
}
