// =============================
// File: internal/amm/init_market.go
// =============================
package amm

import (
	"context"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

// processInitMarket создаёт держателей пула и хранилище, переводит начальные
// суммы и записывает хранилище.
//
// Accounts:
//
//	0  [signer]   owner of user token X
//	1  [signer]   owner of user token Y
//	2  [signer,w] payer
//	3  [w]        user token X
//	4  [w]        user token Y
//	5  []         mint X
//	6  []         mint Y
//	7  [w]        pool token X holder
//	8  [w]        pool token Y holder
//	9  []         owner PDA of token X
//	10 []         owner PDA of token Y
//	11 [w]        vault PDA
//	12 []         rent sysvar
//	13 []         system program
//	14 []         token program
//	15 []         associated token program
func (p *Processor) processInitMarket(
	ctx context.Context,
	invoker blockchain.Invoker,
	programID solana.PublicKey,
	accounts []*blockchain.AccountInfo,
	amountX, amountY uint64,
) error {
	if len(accounts) < InitMarketAccountsLen {
		return blockchain.ErrNotEnoughAccountKeys
	}

	var (
		userOwnerX = accounts[0]
		userOwnerY = accounts[1]
		payer      = accounts[2]
		userTokenX = accounts[3]
		userTokenY = accounts[4]
		mintX      = accounts[5]
		mintY      = accounts[6]
		rentInfo   = accounts[12]
		systemInfo = accounts[13]
		tokenInfo  = accounts[14]
		ataInfo    = accounts[15]
	)
	market := marketAccounts{
		tokenX: accounts[7],
		tokenY: accounts[8],
		ownerX: accounts[9],
		ownerY: accounts[10],
		vault:  accounts[11],
	}

	invoker.Log("InitMarket: verifying accounts")
	if err := requireSigner(invoker, "user token X owner", userOwnerX); err != nil {
		return err
	}
	if err := requireSigner(invoker, "user token Y owner", userOwnerY); err != nil {
		return err
	}
	if err := requireSigner(invoker, "payer", payer); err != nil {
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

	if err := requireProgram(systemInfo, solana.SystemProgramID); err != nil {
		return err
	}
	if err := requireProgram(tokenInfo, solana.TokenProgramID); err != nil {
		return err
	}
	if err := requireProgram(ataInfo, solana.SPLAssociatedTokenAccountProgramID); err != nil {
		return err
	}
	if !rentInfo.Key.Equals(solana.SysVarRentPubkey) {
		return blockchain.ErrInvalidArgument
	}

	if amountX == 0 || amountY == 0 {
		invoker.Log("Error: initial amounts must be positive (x=%d, y=%d)", amountX, amountY)
		return InvalidInitialAmount
	}

	for _, info := range []*blockchain.AccountInfo{market.tokenX, market.tokenY, market.ownerX, market.ownerY, market.vault} {
		if !info.DataIsEmpty() {
			invoker.Log("Error: account %s is already initialized", info.Key)
			return AccountAlreadyInitialized
		}
	}

	rent, err := blockchain.DecodeRent(rentInfo.Data)
	if err != nil {
		return err
	}

	invoker.Log("InitMarket: creating pool token holders")
	if err := invoker.Invoke(ctx, associatedtokenaccount.NewCreateInstruction(payer.Key, pda.OwnerTokenX, mintX.Key).Build()); err != nil {
		return err
	}
	if err := invoker.Invoke(ctx, associatedtokenaccount.NewCreateInstruction(payer.Key, pda.OwnerTokenY, mintY.Key).Build()); err != nil {
		return err
	}

	invoker.Log("InitMarket: creating vault account")
	createVault := system.NewCreateAccountInstruction(
		rent.MinimumBalance(VaultSize),
		VaultSize,
		programID,
		payer.Key,
		market.vault.Key,
	).Build()
	if err := invoker.InvokeSigned(ctx, createVault, pda.VaultSeeds()); err != nil {
		return err
	}

	invoker.Log("InitMarket: transfer amount_x=%d to pool", amountX)
	if err := invoker.Invoke(ctx, token.NewTransferInstruction(amountX, userTokenX.Key, market.tokenX.Key, userOwnerX.Key, nil).Build()); err != nil {
		return err
	}
	invoker.Log("InitMarket: transfer amount_y=%d to pool", amountY)
	if err := invoker.Invoke(ctx, token.NewTransferInstruction(amountY, userTokenY.Key, market.tokenY.Key, userOwnerY.Key, nil).Build()); err != nil {
		return err
	}

	vault := Vault{TokenXAmount: amountX, TokenYAmount: amountY}
	if err := writeVault(market.vault, programID, vault); err != nil {
		return err
	}
	invoker.Log("InitMarket: saved vault x=%d y=%d", vault.TokenXAmount, vault.TokenYAmount)

	p.logger.Debug("Market initialized",
		zap.String("mint_x", mintX.Key.String()),
		zap.String("mint_y", mintY.Key.String()),
		zap.String("vault", market.vault.Key.String()),
		zap.Uint64("amount_x", amountX),
		zap.Uint64("amount_y", amountY))
	return nil
}

// writeVault переписывает данные хранилища целиком.
func writeVault(info *blockchain.AccountInfo, programID solana.PublicKey, v Vault) error {
	if info.Account == nil || !info.Owner.Equals(programID) || len(info.Data) != VaultSize {
		return InvalidVault
	}
	data, err := v.Encode()
	if err != nil {
		return err
	}
	copy(info.Data, data)
	return nil
}
