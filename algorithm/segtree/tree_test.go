package segtree

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/segtree/xerrors"
)

func mustQuery[V, T any](t *testing.T, tr *Tree[V, T], l, r int) V {
	t.Helper()
	v, err := tr.Query(l, r)
	require.NoError(t, err)
	return v
}

func TestSumTreeScenario(t *testing.T) {
	tr, err := NewSum[int](0, 10)
	require.NoError(t, err)

	require.NoError(t, tr.Modify(1, 9, 1))
	assert.Equal(t, 7, mustQuery(t, tr, 3, 10))

	require.NoError(t, tr.Replace(6, 10))
	assert.Equal(t, 14, mustQuery(t, tr, 5, 10))

	require.NoError(t, tr.ModifyAt(0, -1))
	v, err := tr.QueryAt(1)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 0, mustQuery(t, tr, 0, 1))

	tr.Clear()
	require.NoError(t, tr.Modify(2, 5, -1))
	assert.Equal(t, -4, mustQuery(t, tr, 0, 5))
}

func TestDecimalTreeScenario(t *testing.T) {
	tr, err := NewDecimalSum(-5, 5)
	require.NoError(t, err)

	eq := func(want string, got decimal.Decimal) {
		t.Helper()
		assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
	}

	require.NoError(t, tr.Modify(1, 5, decimal.RequireFromString("0.2")))
	eq("0.4", mustQuery(t, tr, -4, 2))

	require.NoError(t, tr.Replace(5, decimal.RequireFromString("2.3")))
	eq("2.5", mustQuery(t, tr, 4, 5))

	require.NoError(t, tr.ModifyAt(-3, decimal.RequireFromString("-0.5")))
	v, err := tr.QueryAt(0)
	require.NoError(t, err)
	eq("0", v)
	eq("0.3", mustQuery(t, tr, -3, 4))
}

type pointWriter func(t *testing.T, tr *Tree[MaxSubarray[int], int], pos, v int)

func shiftPoint(t *testing.T, tr *Tree[MaxSubarray[int], int], pos, v int) {
	require.NoError(t, tr.ModifyAt(pos, v))
}

func replacePoint(t *testing.T, tr *Tree[MaxSubarray[int], int], pos, v int) {
	require.NoError(t, tr.Replace(pos, MaxSubarrayOf(v)))
}

func buildMaxSubarray(t *testing.T, point pointWriter) *Tree[MaxSubarray[int], int] {
	t.Helper()
	tr, err := NewMaxSubarray[int](1, 10)
	require.NoError(t, err)
	for i, v := range []int{4, -5, 3, -1, 3, -1} {
		point(t, tr, i+1, v)
	}
	return tr
}

func TestMaxSubarrayScenario(t *testing.T) {
	builders := map[string]pointWriter{
		"point shift": shiftPoint,
		"replace":     replacePoint,
	}
	for name, point := range builders {
		t.Run(name, func(t *testing.T) {
			tr := buildMaxSubarray(t, point)
			assert.Equal(t, 5, mustQuery(t, tr, 1, 10).Best)
			assert.Equal(t, 4, mustQuery(t, tr, 1, 3).Best)

			require.NoError(t, tr.Replace(2, MaxSubarrayOf(-1)))
			assert.Equal(t, 8, mustQuery(t, tr, 1, 10).Best)
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := buildMaxSubarray(t, replacePoint)

	b := a.Clone()
	assert.Equal(t, 5, mustQuery(t, b, 1, 10).Best)
	assert.Equal(t, 4, mustQuery(t, b, 1, 3).Best)

	require.NoError(t, b.ModifyAt(2, 4))
	assert.Equal(t, 8, mustQuery(t, b, 1, 10).Best)
	assert.Equal(t, 5, mustQuery(t, a, 1, 10).Best)

	require.NoError(t, a.Replace(1, MaxSubarrayOf(-100)))
	assert.Equal(t, 8, mustQuery(t, b, 1, 10).Best)

	b.CopyFrom(a)
	assert.Equal(t, 5, mustQuery(t, b, 1, 10).Best)
	require.NoError(t, b.Replace(3, MaxSubarrayOf(50)))
	assert.Equal(t, 52, mustQuery(t, b, 1, 10).Best)
	assert.Equal(t, 5, mustQuery(t, a, 1, 10).Best)

	b.CopyFrom(b)
	assert.Equal(t, 52, mustQuery(t, b, 1, 10).Best)
}

func TestCopyFromShrinksArena(t *testing.T) {
	big, err := NewSum[int](0, 1<<20)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.NoError(t, big.Replace(i*997, i))
	}
	small, err := NewSum[int](0, 7)
	require.NoError(t, err)
	require.NoError(t, small.Replace(3, 9))

	big.CopyFrom(small)
	assert.Equal(t, small.Nodes(), big.Nodes())
	lo, hi := big.Bounds()
	assert.Equal(t, [2]int{0, 7}, [2]int{lo, hi})
	assert.Equal(t, 9, mustQuery(t, big, 0, 7))
}

func TestBoundaryErrors(t *testing.T) {
	_, err := NewSum[int](1, 0)
	assert.ErrorIs(t, err, ErrRange)

	_, err = NewSum[int](math.MinInt, math.MaxInt)
	assert.ErrorIs(t, err, ErrRange)

	one, err := NewSum[int](1, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, one.Modify(1, 2, 1), ErrOutOfRange)

	tr, err := NewSum[float64](1, 10)
	require.NoError(t, err)
	_, err = tr.Query(2, 8)
	require.NoError(t, err)
	// 空区间约定：l == r+1 不报错
	require.NoError(t, tr.Modify(8, 7, 0))
	require.NoError(t, tr.Modify(100, 99, 1))
	assert.ErrorIs(t, tr.Modify(8, 6, 1), ErrRange)
	_, err = tr.QueryAt(0)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, tr.Replace(11, 1), ErrOutOfRange)

	small, err := NewSum[int](-1, 1)
	require.NoError(t, err)
	_, err = small.Query(0, -1)
	assert.ErrorIs(t, err, ErrRange)
	assert.False(t, errors.Is(err, ErrOutOfRange))
	assert.ErrorIs(t, small.ModifyAt(2, -1), ErrOutOfRange)
	assert.ErrorIs(t, small.Modify(-2, 0, 1), ErrOutOfRange)

	e, ok := xerrors.FromError(small.Replace(-5, 3))
	require.True(t, ok)
	assert.Equal(t, xerrors.ErrOutOfRange, e.Type)
	assert.Equal(t, -5, e.Context["l"])
	assert.Equal(t, "replace", e.Context["op"])
}

func TestModifyAtIntLimits(t *testing.T) {
	tr, err := NewSum[int](1, 10)
	require.NoError(t, err)

	// MaxInt+1 回绕成 MinInt，不能当作空区间放过
	assert.ErrorIs(t, tr.Modify(math.MinInt, math.MaxInt, 1), ErrOutOfRange)
	assert.ErrorIs(t, tr.Modify(5, math.MaxInt, 1), ErrOutOfRange)
	assert.ErrorIs(t, tr.ModifyAt(math.MaxInt, 1), ErrOutOfRange)
	require.NoError(t, tr.Modify(math.MaxInt, math.MaxInt-1, 1))
	assert.Zero(t, mustQuery(t, tr, 1, 10))
}

func TestFailedCallLeavesTreeUntouched(t *testing.T) {
	tr, err := NewSum[int](0, 100)
	require.NoError(t, err)
	require.NoError(t, tr.Modify(10, 20, 3))
	nodes := tr.Nodes()

	assert.Error(t, tr.Modify(50, 200, 1))
	assert.Error(t, tr.Replace(-1, 1))
	_, err = tr.Query(30, 10)
	assert.Error(t, err)

	assert.Equal(t, nodes, tr.Nodes())
	assert.Equal(t, 33, mustQuery(t, tr, 0, 100))
}

func TestStringTreeWithLocalFunc(t *testing.T) {
	concat := func(a, b string) string { return a + b }
	tr, err := New[string, string](1, 10, concat, LocalFunc[string, string](concat))
	require.NoError(t, err)

	assert.Equal(t, "", mustQuery(t, tr, 2, 8))
	require.NoError(t, tr.Modify(8, 7, "Hi"))
	assert.ErrorIs(t, tr.Replace(0, "what"), ErrOutOfRange)

	for i, s := range []string{"a", "b", "c"} {
		require.NoError(t, tr.Replace(i+2, s))
	}
	require.NoError(t, tr.ModifyAt(3, "!"))
	// 合并不满足交换律，顺序必须保持从左到右
	assert.Equal(t, "ab!c", mustQuery(t, tr, 1, 10))
	assert.Equal(t, "b!", mustQuery(t, tr, 3, 3))
}

func TestHugeRangeIsSparse(t *testing.T) {
	const lo, hi = math.MinInt/2 + 1, math.MaxInt / 2
	tr, err := NewSum[int](lo, hi)
	require.NoError(t, err)

	require.NoError(t, tr.Replace(lo, 5))
	require.NoError(t, tr.Replace(hi, 7))
	require.NoError(t, tr.Replace(-1, 11))
	require.NoError(t, tr.Replace(0, 13))
	assert.Equal(t, 36, mustQuery(t, tr, lo, hi))
	assert.Equal(t, 11, mustQuery(t, tr, -1, -1))
	assert.Equal(t, 24, mustQuery(t, tr, -1, 0))
	assert.Less(t, tr.Nodes(), 4*2*64)

	tr.Clear()
	assert.Equal(t, 1, tr.Nodes())
	assert.Equal(t, 0, mustQuery(t, tr, lo, hi))
}

func TestPressureRangeMaterializesOnDemand(t *testing.T) {
	const lo, hi, ops = -100_000_000, 100_000_000, 2000
	tr, err := NewSum[int64](lo, hi, WithCapacity(ops*60))
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < ops; i++ {
		l := lo + rng.IntN(hi-lo+1)
		r := l + rng.IntN(hi-l+1)
		require.NoError(t, tr.Modify(l, r, int64(rng.IntN(1000)-500)))
	}
	// 每次操作最多两条根到叶的路径，每条路径每层新建两个子节点
	assert.LessOrEqual(t, tr.Nodes(), 1+ops*4*28)
}

// 与暴力数组逐操作对比。
func TestSumTreeMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 5; round++ {
		lo := rng.IntN(1000) - 500
		hi := lo + rng.IntN(300)
		tr, err := NewSum[int](lo, hi)
		require.NoError(t, err)
		arr := make([]int, hi-lo+1)

		for op := 0; op < 3000; op++ {
			l := lo + rng.IntN(hi-lo+1)
			r := l + rng.IntN(hi-l+1)
			v := rng.IntN(1000) - 500
			switch rng.IntN(4) {
			case 0:
				arr[l-lo] = v
				require.NoError(t, tr.Replace(l, v))
			case 1:
				for i := l; i <= r; i++ {
					arr[i-lo] += v
				}
				require.NoError(t, tr.Modify(l, r, v))
			case 2:
				want := 0
				for i := l; i <= r; i++ {
					want += arr[i-lo]
				}
				require.Equal(t, want, mustQuery(t, tr, l, r), "query [%d, %d]", l, r)
			case 3:
				arr[l-lo] += v
				require.NoError(t, tr.ModifyAt(l, v))
			}
		}
	}
}

func TestMaxTreeMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	const lo, hi = -40, 60
	tr, err := NewMax[int](lo, hi)
	require.NoError(t, err)
	arr := make([]int, hi-lo+1)

	for op := 0; op < 4000; op++ {
		l := lo + rng.IntN(hi-lo+1)
		r := l + rng.IntN(hi-l+1)
		v := rng.IntN(200) - 100
		switch rng.IntN(3) {
		case 0:
			arr[l-lo] = v
			require.NoError(t, tr.Replace(l, v))
		case 1:
			for i := l; i <= r; i++ {
				arr[i-lo] += v
			}
			require.NoError(t, tr.Modify(l, r, v))
		case 2:
			want := arr[l-lo]
			for i := l; i <= r; i++ {
				want = max(want, arr[i-lo])
			}
			require.Equal(t, want, mustQuery(t, tr, l, r), "query [%d, %d]", l, r)
		}
	}
}

func kadane(xs []int) int {
	best, cur := xs[0], xs[0]
	for _, x := range xs[1:] {
		cur = max(x, cur+x)
		best = max(best, cur)
	}
	return best
}

func TestMaxSubarrayMatchesKadane(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	const lo, hi = -100, 150
	tr, err := NewMaxSubarray[int](lo, hi)
	require.NoError(t, err)
	arr := make([]int, hi-lo+1)

	for op := 0; op < 4000; op++ {
		l := lo + rng.IntN(hi-lo+1)
		r := l + rng.IntN(hi-l+1)
		v := rng.IntN(1000) - 450
		switch rng.IntN(3) {
		case 0:
			arr[l-lo] = v
			require.NoError(t, tr.Replace(l, MaxSubarrayOf(v)))
		case 1:
			require.Equal(t, kadane(arr[l-lo:r-lo+1]), mustQuery(t, tr, l, r).Best, "query [%d, %d]", l, r)
		case 2:
			arr[l-lo] += v
			require.NoError(t, tr.ModifyAt(l, v))
		}
	}
}

func TestQuerySplitsAtAnyPoint(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 9))
	const lo, hi = 0, 63
	tr, err := NewMaxSubarray[int](lo, hi)
	require.NoError(t, err)
	for i := lo; i <= hi; i++ {
		require.NoError(t, tr.Replace(i, MaxSubarrayOf(rng.IntN(21)-10)))
	}

	for i := 0; i < 300; i++ {
		l := lo + rng.IntN(hi-lo)
		r := l + 1 + rng.IntN(hi-l)
		m := l + rng.IntN(r-l)
		whole := mustQuery(t, tr, l, r)
		split := MergeMaxSubarray(mustQuery(t, tr, l, m), mustQuery(t, tr, m+1, r))
		require.Equal(t, whole, split, "[%d, %d] split at %d", l, r, m)
	}
}

func TestModifyDecomposes(t *testing.T) {
	rng := rand.New(rand.NewPCG(10, 12))
	const lo, hi = -50, 50
	for i := 0; i < 200; i++ {
		whole, err := NewSum[int](lo, hi)
		require.NoError(t, err)
		parts := whole.Clone()

		l := lo + rng.IntN(hi-lo)
		r := l + 1 + rng.IntN(hi-l)
		m := l + rng.IntN(r-l)
		v := rng.IntN(100) - 50

		require.NoError(t, whole.Modify(l, r, v))
		require.NoError(t, parts.Modify(l, m, v))
		require.NoError(t, parts.Modify(m+1, r, v))

		require.Equal(t, mustQuery(t, whole, l, r), mustQuery(t, parts, l, r))
		require.Equal(t, mustQuery(t, whole, lo, hi), mustQuery(t, parts, lo, hi))
	}
}

func TestClearResetsToIdentity(t *testing.T) {
	tr, err := NewMax[float64](-10, 10, WithCapacity(64))
	require.NoError(t, err)
	require.NoError(t, tr.Modify(-10, 3, 2.5))
	require.NoError(t, tr.Replace(7, -4))
	require.Greater(t, tr.Nodes(), 1)

	tr.Clear()
	assert.Equal(t, 1, tr.Nodes())
	lo, hi := tr.Bounds()
	assert.Equal(t, [2]int{-10, 10}, [2]int{lo, hi})
	assert.Equal(t, 0.0, mustQuery(t, tr, -10, 10))
	assert.Equal(t, 0.0, mustQuery(t, tr, 7, 7))
}

func TestWidthScaledTagOnNegativeRange(t *testing.T) {
	tr, err := NewSum[int](-5, -4)
	require.NoError(t, err)
	require.NoError(t, tr.Modify(-5, -4, 3))
	assert.Equal(t, 6, mustQuery(t, tr, -5, -4))
	assert.Equal(t, 3, mustQuery(t, tr, -4, -4))
	assert.Equal(t, 3, tr.Nodes())
}

func TestGuardedSerializesWriters(t *testing.T) {
	tr, err := NewSum[int](0, 999)
	require.NoError(t, err)
	g := NewGuarded(tr)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < 1000; i += 8 {
				assert.NoError(t, g.Modify(i, i, i))
				_, err := g.Query(0, i)
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	got, err := g.Query(0, 999)
	require.NoError(t, err)
	assert.Equal(t, 999*1000/2, got)

	snap := g.Snapshot()
	g.Clear()
	require.NoError(t, g.Replace(0, 1))
	assert.Equal(t, 999*1000/2, mustQuery(t, snap, 0, 999))
}
