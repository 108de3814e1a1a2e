// =============================
// File: internal/amm/swap.go
// =============================
package amm

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// SwapDirection определяет, какой токен вносится в пул.
type SwapDirection uint8

const (
	XToY SwapDirection = iota
	YToX
)

func (d SwapDirection) String() string {
	if d == XToY {
		return "x_to_y"
	}
	return "y_to_x"
}

// NewSwapDirection picks the direction from the input mint. ok is false when
// minter is neither of the market mints.
func NewSwapDirection(minter, mintX, mintY solana.PublicKey) (SwapDirection, bool) {
	switch {
	case minter.Equals(mintX):
		return XToY, true
	case minter.Equals(mintY):
		return YToX, true
	default:
		return 0, false
	}
}

// SwapResult результат расчёта свапа.
type SwapResult struct {
	AmountIn      uint64
	AmountOut     uint64
	NewReserveIn  uint64
	NewReserveOut uint64
}

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// CalcSwap вычисляет выход свапа по правилу постоянного произведения.
//
// k = reserveIn * reserveOut считается без переполнения, новый резерв выхода
// округляется вниз: newReserveOut = floor(k / (reserveIn + amount)).
// Остаток от деления остаётся в пуле, поэтому k после свапа никогда не растёт.
// Свап, который опустошил бы резерв выхода (newReserveOut == 0), отклоняется
// с InsufficientLiquidity наравне с нулевым выходом: резерв никогда не
// выкачивается до нуля.
func CalcSwap(reserveIn, reserveOut, amount uint64) (SwapResult, error) {
	if amount == 0 {
		return SwapResult{}, InvalidAmount
	}

	k := new(big.Int).Mul(
		new(big.Int).SetUint64(reserveIn),
		new(big.Int).SetUint64(reserveOut),
	)

	newReserveIn := new(big.Int).Add(new(big.Int).SetUint64(reserveIn), new(big.Int).SetUint64(amount))
	if newReserveIn.Cmp(maxUint64) > 0 {
		return SwapResult{}, Overflow
	}

	newReserveOut := new(big.Int).Quo(k, newReserveIn)
	if newReserveOut.Cmp(new(big.Int).SetUint64(reserveOut)) > 0 {
		return SwapResult{}, Underflow
	}

	nro := newReserveOut.Uint64()
	out := reserveOut - nro
	// the pool never pays out its whole reserve
	if out == 0 || nro == 0 {
		return SwapResult{}, InsufficientLiquidity
	}

	return SwapResult{
		AmountIn:      amount,
		AmountOut:     out,
		NewReserveIn:  newReserveIn.Uint64(),
		NewReserveOut: nro,
	}, nil
}

// Apply returns the vault after the swap for the given direction.
func (r SwapResult) Apply(v Vault, direction SwapDirection) Vault {
	return v.WithReserves(direction, r.NewReserveIn, r.NewReserveOut)
}
