// =============================
// File: internal/blockchain/localnet/genesis.go
// =============================
package localnet

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

// Airdrop начисляет лампорты на системный аккаунт вне транзакций.
func (b *Bank) Airdrop(key solana.PublicKey, lamports uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[key]
	if !ok {
		acc = &blockchain.Account{Owner: solana.SystemProgramID}
		b.accounts[key] = acc
	}
	acc.Lamports += lamports
	b.logger.Debug("Airdrop", zap.String("account", key.String()), zap.Uint64("lamports", lamports))
}

// CreateMint создаёт инициализированный минт с заданным authority.
func (b *Bank) CreateMint(authority solana.PublicKey, decimals uint8) (solana.PublicKey, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("generate mint key: %w", err)
	}
	mint := key.PublicKey()

	data, err := encodeTokenState(&token.Mint{
		MintAuthority: &authority,
		Decimals:      decimals,
		IsInitialized: true,
	})
	if err != nil {
		return solana.PublicKey{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[mint] = &blockchain.Account{
		Lamports: b.rent.MinimumBalance(MintSize),
		Data:     data,
		Owner:    solana.TokenProgramID,
	}
	b.logger.Debug("Mint created",
		zap.String("mint", mint.String()),
		zap.String("authority", authority.String()),
		zap.Uint8("decimals", decimals))
	return mint, nil
}

// MintTo начисляет amount токенов на ассоциированный аккаунт owner,
// создавая его при необходимости. Возвращает адрес аккаунта.
func (b *Bank) MintTo(mint, owner solana.PublicKey, amount uint64) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	mintAcc, ok := b.accounts[mint]
	if !ok || !mintAcc.Owner.Equals(solana.TokenProgramID) {
		return solana.PublicKey{}, fmt.Errorf("%w: mint %s", blockchain.ErrAccountNotFound, mint)
	}
	mintState, err := DecodeMint(mintAcc.Data)
	if err != nil {
		return solana.PublicKey{}, err
	}

	holder := &token.Account{Mint: mint, Owner: owner, State: token.Initialized}
	if acc, ok := b.accounts[ata]; ok && acc.Owner.Equals(solana.TokenProgramID) {
		if holder, err = DecodeTokenAccount(acc.Data); err != nil {
			return solana.PublicKey{}, err
		}
	}
	if mintState.Supply+amount < mintState.Supply || holder.Amount+amount < holder.Amount {
		return solana.PublicKey{}, blockchain.ErrArithmeticOverflow
	}
	mintState.Supply += amount
	holder.Amount += amount

	if err := b.storeTokenState(mint, mintState, MintSize); err != nil {
		return solana.PublicKey{}, err
	}
	if err := b.storeTokenState(ata, holder, TokenAccountSize); err != nil {
		return solana.PublicKey{}, err
	}
	return ata, nil
}

// SetTokenAccount кладёт аккаунт-держатель по произвольному адресу.
func (b *Bank) SetTokenAccount(key, mint, owner solana.PublicKey, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.storeTokenState(key, &token.Account{
		Mint:   mint,
		Owner:  owner,
		Amount: amount,
		State:  token.Initialized,
	}, TokenAccountSize)
}

// TokenBalance returns the amount held by a token account.
func (b *Bank) TokenBalance(holder solana.PublicKey) (uint64, error) {
	acc, ok := b.Account(holder)
	if !ok {
		return 0, fmt.Errorf("%w: %s", blockchain.ErrAccountNotFound, holder)
	}
	if !acc.Owner.Equals(solana.TokenProgramID) {
		return 0, fmt.Errorf("%w: %s", blockchain.ErrIncorrectProgramID, holder)
	}
	state, err := DecodeTokenAccount(acc.Data)
	if err != nil {
		return 0, err
	}
	return state.Amount, nil
}

// storeTokenState вызывается под b.mu.
func (b *Bank) storeTokenState(key solana.PublicKey, v interface{}, size uint64) error {
	data, err := encodeTokenState(v)
	if err != nil {
		return err
	}
	acc, ok := b.accounts[key]
	if !ok || !acc.Owner.Equals(solana.TokenProgramID) {
		acc = &blockchain.Account{Owner: solana.TokenProgramID}
		if ok {
			acc.Lamports = b.accounts[key].Lamports
		}
		b.accounts[key] = acc
	}
	if minimum := b.rent.MinimumBalance(size); acc.Lamports < minimum {
		acc.Lamports = minimum
	}
	acc.Data = data
	return nil
}
