// =============================
// File: internal/amm/state.go
// =============================
package amm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
)

// VaultSize размер данных аккаунта хранилища: два u64 без заголовка.
const VaultSize = 16

// Vault is the program's own record of the two pool reserves.
type Vault struct {
	TokenXAmount uint64
	TokenYAmount uint64
}

// MarshalWithEncoder сериализует хранилище в формате borsh.
func (v Vault) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint64(v.TokenXAmount, binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint64(v.TokenYAmount, binary.LittleEndian)
}

// UnmarshalWithDecoder читает хранилище из borsh.
func (v *Vault) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if v.TokenXAmount, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	v.TokenYAmount, err = decoder.ReadUint64(binary.LittleEndian)
	return err
}

// Encode returns the 16-byte account data of the vault.
func (v Vault) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode vault: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeVault разбирает данные аккаунта. Любая длина, кроме VaultSize,
// считается ошибкой десериализации.
func DecodeVault(data []byte) (Vault, error) {
	if len(data) != VaultSize {
		return Vault{}, fmt.Errorf("invalid vault data length: expected %d, got %d", VaultSize, len(data))
	}
	var v Vault
	if err := bin.NewBorshDecoder(data).Decode(&v); err != nil {
		return Vault{}, fmt.Errorf("failed to decode vault: %w", err)
	}
	return v, nil
}

// Product returns K = X*Y without overflow.
func (v Vault) Product() *big.Int {
	return new(big.Int).Mul(
		new(big.Int).SetUint64(v.TokenXAmount),
		new(big.Int).SetUint64(v.TokenYAmount),
	)
}

// Reserves возвращает резервы в порядке (вход, выход) для направления свапа.
func (v Vault) Reserves(direction SwapDirection) (reserveIn, reserveOut uint64) {
	if direction == XToY {
		return v.TokenXAmount, v.TokenYAmount
	}
	return v.TokenYAmount, v.TokenXAmount
}

// WithReserves returns the vault rewritten from (in, out) reserves in the
// field order of direction.
func (v Vault) WithReserves(direction SwapDirection, reserveIn, reserveOut uint64) Vault {
	if direction == XToY {
		return Vault{TokenXAmount: reserveIn, TokenYAmount: reserveOut}
	}
	return Vault{TokenXAmount: reserveOut, TokenYAmount: reserveIn}
}

func (v Vault) String() string {
	return fmt.Sprintf("Vault{x=%d, y=%d}", v.TokenXAmount, v.TokenYAmount)
}
