// =============================
// File: internal/amm/pda.go
// =============================
package amm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Pda содержит все адреса рынка, выведенные из пары минтов.
type Pda struct {
	MintX solana.PublicKey
	MintY solana.PublicKey

	OwnerTokenX     solana.PublicKey
	OwnerTokenXBump uint8
	OwnerTokenY     solana.PublicKey
	OwnerTokenYBump uint8

	// Associated token accounts of the owner PDAs.
	TokenX solana.PublicKey
	TokenY solana.PublicKey

	Vault     solana.PublicKey
	VaultBump uint8
}

// marketSeeds собирает сиды адреса: [tag, mintX, mintY, tokenProgram].
func marketSeeds(tag []byte, mintX, mintY solana.PublicKey) [][]byte {
	return [][]byte{
		tag,
		mintX.Bytes(),
		mintY.Bytes(),
		solana.TokenProgramID.Bytes(),
	}
}

// FindMarketAddress derives one program address of the market and its bump.
func FindMarketAddress(programID solana.PublicKey, tag []byte, mintX, mintY solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(marketSeeds(tag, mintX, mintY), programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive %s address: %w", tag, err)
	}
	return addr, bump, nil
}

// GeneratePda вычисляет адреса владельцев, их ATA и хранилища для пары минтов.
func GeneratePda(programID, mintX, mintY solana.PublicKey) (*Pda, error) {
	p := &Pda{MintX: mintX, MintY: mintY}
	var err error

	if p.OwnerTokenX, p.OwnerTokenXBump, err = FindMarketAddress(programID, SplTokenXOwnerSeed, mintX, mintY); err != nil {
		return nil, err
	}
	if p.TokenX, _, err = solana.FindAssociatedTokenAddress(p.OwnerTokenX, mintX); err != nil {
		return nil, fmt.Errorf("failed to derive token X holder: %w", err)
	}

	if p.OwnerTokenY, p.OwnerTokenYBump, err = FindMarketAddress(programID, SplTokenYOwnerSeed, mintX, mintY); err != nil {
		return nil, err
	}
	if p.TokenY, _, err = solana.FindAssociatedTokenAddress(p.OwnerTokenY, mintY); err != nil {
		return nil, fmt.Errorf("failed to derive token Y holder: %w", err)
	}

	if p.Vault, p.VaultBump, err = FindMarketAddress(programID, VaultSeed, mintX, mintY); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pda) signerSeeds(tag []byte, bump uint8) [][]byte {
	return append(marketSeeds(tag, p.MintX, p.MintY), []byte{bump})
}

// OwnerXSeeds returns the signer seeds of the token X owner.
func (p *Pda) OwnerXSeeds() [][]byte {
	return p.signerSeeds(SplTokenXOwnerSeed, p.OwnerTokenXBump)
}

// OwnerYSeeds returns the signer seeds of the token Y owner.
func (p *Pda) OwnerYSeeds() [][]byte {
	return p.signerSeeds(SplTokenYOwnerSeed, p.OwnerTokenYBump)
}

// VaultSeeds returns the signer seeds of the vault.
func (p *Pda) VaultSeeds() [][]byte {
	return p.signerSeeds(VaultSeed, p.VaultBump)
}

// OutputSide возвращает держателя и владельца выходного токена вместе с сидами подписи.
func (p *Pda) OutputSide(direction SwapDirection) (holder, owner solana.PublicKey, seeds [][]byte) {
	if direction == XToY {
		return p.TokenY, p.OwnerTokenY, p.OwnerYSeeds()
	}
	return p.TokenX, p.OwnerTokenX, p.OwnerXSeeds()
}

// InputHolder возвращает держателя входного токена пула.
func (p *Pda) InputHolder(direction SwapDirection) solana.PublicKey {
	if direction == XToY {
		return p.TokenX
	}
	return p.TokenY
}

// ValidatePda проверяет, что переданный аккаунт совпадает с выведенным адресом.
func ValidatePda(expected, supplied solana.PublicKey) error {
	if !expected.Equals(supplied) {
		return InvalidDerivedAddress
	}
	return nil
}
