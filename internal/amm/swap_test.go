package amm

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcSwap(t *testing.T) {
	tests := []struct {
		name       string
		reserveIn  uint64
		reserveOut uint64
		amount     uint64
		want       SwapResult
		wantErr    error
	}{
		{"balanced pool", 1000, 1000, 100, SwapResult{AmountIn: 100, AmountOut: 91, NewReserveIn: 1100, NewReserveOut: 909}, nil},
		{"exact division keeps k", 1000, 1000, 1000, SwapResult{AmountIn: 1000, AmountOut: 500, NewReserveIn: 2000, NewReserveOut: 500}, nil},
		{"product above u64", math.MaxUint64 - 1, math.MaxUint64, 1, SwapResult{AmountIn: 1, AmountOut: 1, NewReserveIn: math.MaxUint64, NewReserveOut: math.MaxUint64 - 1}, nil},
		{"zero amount", 1000, 1000, 0, SwapResult{}, InvalidAmount},
		{"input reserve overflow", math.MaxUint64, 1000, 1, SwapResult{}, Overflow},
		{"output reserve would be drained", 1000, 1, 1, SwapResult{}, InsufficientLiquidity},
		{"empty output reserve", 1000, 0, 5, SwapResult{}, InsufficientLiquidity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalcSwap(tt.reserveIn, tt.reserveOut, tt.amount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, SwapResult{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func product(a, b uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
}

func TestCalcSwap_ProductNeverGrows(t *testing.T) {
	pools := [][2]uint64{{1000, 1000}, {7, 1_000_003}, {123_456_789, 987_654_321}, {math.MaxUint64 / 2, 3}}
	for _, pool := range pools {
		for _, amount := range []uint64{1, 2, 3, 17, 1000, 99_999} {
			res, err := CalcSwap(pool[0], pool[1], amount)
			if err != nil {
				continue
			}
			before := product(pool[0], pool[1])
			after := product(res.NewReserveIn, res.NewReserveOut)
			assert.True(t, after.Cmp(before) <= 0, "k grew for pool %v amount %d", pool, amount)

			remainder := new(big.Int).Mod(before, new(big.Int).SetUint64(res.NewReserveIn))
			if remainder.Sign() != 0 {
				assert.True(t, after.Cmp(before) < 0, "k must drop when division has a remainder")
			}
			assert.Equal(t, pool[1]-res.NewReserveOut, res.AmountOut)
		}
	}
}

func TestCalcSwap_OutputMonotonic(t *testing.T) {
	var prev uint64
	for amount := uint64(1); amount <= 2000; amount++ {
		res, err := CalcSwap(1000, 1000, amount)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.AmountOut, prev, "output decreased at amount %d", amount)
		prev = res.AmountOut
	}
}

func TestCalcSwap_RoundTripNeverRaisesK(t *testing.T) {
	v := Vault{TokenXAmount: 1000, TokenYAmount: 1000}
	k0 := v.Product()

	forward, err := CalcSwap(v.TokenXAmount, v.TokenYAmount, 100)
	require.NoError(t, err)
	v = forward.Apply(v, XToY)
	assert.Equal(t, Vault{TokenXAmount: 1100, TokenYAmount: 909}, v)

	in, out := v.Reserves(YToX)
	back, err := CalcSwap(in, out, forward.AmountOut)
	require.NoError(t, err)
	v = back.Apply(v, YToX)

	assert.True(t, v.Product().Cmp(k0) <= 0)
	t.Logf("round trip: 100 X -> %d Y -> %d X, vault %s", forward.AmountOut, back.AmountOut, v)
}

func TestNewSwapDirection(t *testing.T) {
	x, y, other := newKey(t), newKey(t), newKey(t)

	dir, ok := NewSwapDirection(x, x, y)
	assert.True(t, ok)
	assert.Equal(t, XToY, dir)

	dir, ok = NewSwapDirection(y, x, y)
	assert.True(t, ok)
	assert.Equal(t, YToX, dir)
	assert.Equal(t, "y_to_x", dir.String())

	_, ok = NewSwapDirection(other, x, y)
	assert.False(t, ok)
}
