// internal/blockchain/types.go
package blockchain

import (
	"bytes"
	"context"

	"github.com/gagliardetto/solana-go"
)

// Account хранит состояние аккаунта в леджере.
type Account struct {
	Lamports   uint64
	Data       []byte
	Owner      solana.PublicKey
	Executable bool
}

// Clone возвращает глубокую копию аккаунта.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &Account{
		Lamports:   a.Lamports,
		Data:       data,
		Owner:      a.Owner,
		Executable: a.Executable,
	}
}

// Equal сравнивает состояние двух аккаунтов.
func (a *Account) Equal(other *Account) bool {
	return a.Lamports == other.Lamports &&
		a.Owner.Equals(other.Owner) &&
		a.Executable == other.Executable &&
		bytes.Equal(a.Data, other.Data)
}

// IsEmpty сообщает, что аккаунт не существует в леджере.
func (a *Account) IsEmpty() bool {
	return a == nil || (a.Lamports == 0 && len(a.Data) == 0)
}

// AccountInfo is the view of an account inside a single program invocation.
// Account is shared between caller and callee during cross-program calls,
// the privilege flags are not.
type AccountInfo struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool
	*Account
}

// DataIsEmpty reports whether the account carries no data.
func (a *AccountInfo) DataIsEmpty() bool {
	return a.Account == nil || len(a.Data) == 0
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	// Получить последний blockhash.
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	// Отправить транзакцию.
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// Получить аккаунт. Возвращает ErrAccountNotFound, если аккаунта нет.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*Account, error)
	// Минимальный баланс для освобождения от ренты.
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
}
