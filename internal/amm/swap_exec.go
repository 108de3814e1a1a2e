// =============================
// File: internal/amm/swap_exec.go
// =============================
package amm

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

// processSwap принимает amount входного токена от пользователя и выплачивает
// выход по резервам хранилища.
//
// Accounts:
//
//	0  [signer] user
//	1  [w]      user token X
//	2  [w]      user token Y
//	3  []       mint X
//	4  []       mint Y
//	5  [w]      pool token X holder
//	6  [w]      pool token Y holder
//	7  []       owner PDA of token X
//	8  []       owner PDA of token Y
//	9  [w]      vault PDA
//	10 []       token program
func (p *Processor) processSwap(
	ctx context.Context,
	invoker blockchain.Invoker,
	programID solana.PublicKey,
	accounts []*blockchain.AccountInfo,
	amount uint64,
	minter solana.PublicKey,
) error {
	if len(accounts) < SwapAccountsLen {
		return blockchain.ErrNotEnoughAccountKeys
	}

	var (
		user       = accounts[0]
		userTokenX = accounts[1]
		userTokenY = accounts[2]
		mintX      = accounts[3]
		mintY      = accounts[4]
		tokenInfo  = accounts[10]
	)
	market := marketAccounts{
		tokenX: accounts[5],
		tokenY: accounts[6],
		ownerX: accounts[7],
		ownerY: accounts[8],
		vault:  accounts[9],
	}

	invoker.Log("Swap: verifying accounts")
	if err := requireSigner(invoker, "user token owner", user); err != nil {
		return err
	}
	if mintX.Key.Equals(mintY.Key) {
		return IdenticalMinter
	}

	pda, err := GeneratePda(programID, mintX.Key, mintY.Key)
	if err != nil {
		return err
	}
	if err := market.validate(invoker, pda); err != nil {
		return err
	}
	if err := requireProgram(tokenInfo, solana.TokenProgramID); err != nil {
		return err
	}
	// держатели пользователя не могут совпадать с держателями пула
	for _, holder := range []*blockchain.AccountInfo{userTokenX, userTokenY} {
		if holder.Key.Equals(pda.TokenX) || holder.Key.Equals(pda.TokenY) {
			invoker.Log("Error: user holder %s is a pool holder", holder.Key)
			return blockchain.ErrInvalidArgument
		}
	}

	if amount == 0 {
		invoker.Log("Error: swap amount must be positive")
		return InvalidAmount
	}

	direction, ok := NewSwapDirection(minter, mintX.Key, mintY.Key)
	if !ok {
		invoker.Log("Error: mint %s is not part of the market", minter)
		return UnknownMint
	}

	if market.vault.Account == nil || !market.vault.Owner.Equals(programID) {
		return InvalidVault
	}
	vault, err := DecodeVault(market.vault.Data)
	if err != nil {
		invoker.Log("Error: %v", err)
		return InvalidVault
	}
	invoker.Log("Swap: vault x=%d y=%d", vault.TokenXAmount, vault.TokenYAmount)

	reserveIn, reserveOut := vault.Reserves(direction)
	result, err := CalcSwap(reserveIn, reserveOut, amount)
	if err != nil {
		invoker.Log("Error: swap of %d rejected: %v", amount, err)
		return err
	}

	userIn, userOut := userTokenX, userTokenY
	if direction == YToX {
		userIn, userOut = userTokenY, userTokenX
	}
	poolOut, poolOwner, ownerSeeds := pda.OutputSide(direction)

	invoker.Log("Swap: transfer amount=%d to pool", result.AmountIn)
	transferIn := token.NewTransferInstruction(result.AmountIn, userIn.Key, pda.InputHolder(direction), user.Key, nil).Build()
	if err := invoker.Invoke(ctx, transferIn); err != nil {
		return err
	}

	invoker.Log("Swap: transfer amount=%d to user", result.AmountOut)
	transferOut := token.NewTransferInstruction(result.AmountOut, poolOut, userOut.Key, poolOwner, nil).Build()
	if err := invoker.InvokeSigned(ctx, transferOut, ownerSeeds); err != nil {
		return err
	}

	updated := result.Apply(vault, direction)
	if err := writeVault(market.vault, programID, updated); err != nil {
		return err
	}
	invoker.Log("Swap: saved vault x=%d y=%d", updated.TokenXAmount, updated.TokenYAmount)

	p.logger.Debug("Swap executed",
		zap.String("vault", market.vault.Key.String()),
		zap.String("direction", direction.String()),
		zap.Uint64("amount_in", result.AmountIn),
		zap.Uint64("amount_out", result.AmountOut))
	return nil
}
