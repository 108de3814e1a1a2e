// =============================
// File: internal/market/addresses.go
// =============================
package market

import (
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
)

// Addresses полный набор адресов рынка для пары минтов.
type Addresses struct {
	ProgramID solana.PublicKey
	MintX     solana.PublicKey
	MintY     solana.PublicKey
	OwnerX    solana.PublicKey
	OwnerY    solana.PublicKey
	HolderX   solana.PublicKey
	HolderY   solana.PublicKey
	Vault     solana.PublicKey
}

// DeriveAddresses вычисляет адреса рынка так же, как их проверяет программа.
func DeriveAddresses(programID, mintX, mintY solana.PublicKey) (*Addresses, error) {
	pda, err := amm.GeneratePda(programID, mintX, mintY)
	if err != nil {
		return nil, err
	}
	return &Addresses{
		ProgramID: programID,
		MintX:     mintX,
		MintY:     mintY,
		OwnerX:    pda.OwnerTokenX,
		OwnerY:    pda.OwnerTokenY,
		HolderX:   pda.TokenX,
		HolderY:   pda.TokenY,
		Vault:     pda.Vault,
	}, nil
}

// Holder returns the pool holder of mint, ok is false for a foreign mint.
func (a *Addresses) Holder(mint solana.PublicKey) (solana.PublicKey, bool) {
	switch {
	case mint.Equals(a.MintX):
		return a.HolderX, true
	case mint.Equals(a.MintY):
		return a.HolderY, true
	}
	return solana.PublicKey{}, false
}

// Fields возвращает адреса для логирования.
func (a *Addresses) Fields() []zap.Field {
	return []zap.Field{
		zap.String("vault", a.Vault.String()),
		zap.String("mint_x", a.MintX.String()),
		zap.String("mint_y", a.MintY.String()),
	}
}

type pairKey [64]byte

func newPairKey(mintX, mintY solana.PublicKey) pairKey {
	var k pairKey
	copy(k[:32], mintX[:])
	copy(k[32:], mintY[:])
	return k
}
