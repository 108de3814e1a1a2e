// =============================
// File: internal/market/errors.go
// =============================
package market

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

var (
	// ErrSlippageExceeded возвращается, если котировка ниже минимального выхода.
	ErrSlippageExceeded = errors.New("slippage exceeded")
	// ErrMarketNotFound означает, что хранилище рынка не создано.
	ErrMarketNotFound = errors.New("market not initialized")
)

// SlippageExceededError описывает отклонённый клиентом свап.
type SlippageExceededError struct {
	Amount       uint64
	Quoted       uint64
	MinAmountOut uint64
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage exceeded: amount %d quotes %d, minimum %d", e.Amount, e.Quoted, e.MinAmountOut)
}

func (e *SlippageExceededError) Unwrap() error {
	return ErrSlippageExceeded
}

// isTransient сообщает, что транзакцию можно пересобрать и отправить снова.
func isTransient(err error) bool {
	return errors.Is(err, blockchain.ErrAccountInUse) ||
		errors.Is(err, blockchain.ErrBlockhashNotFound)
}

// ErrorCode returns the program error name of err, empty for host errors.
func ErrorCode(err error) string {
	if code, ok := amm.CodeOf(err); ok {
		return code.Name()
	}
	if errors.Is(err, ErrSlippageExceeded) {
		return "SlippageExceeded"
	}
	return ""
}
