// =============================
// File: internal/blockchain/localnet/ata.go
// =============================
package localnet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

const (
	ataInstructionCreate           byte = 0
	ataInstructionCreateIdempotent byte = 1
)

// associatedTokenProgram создаёт ассоциированные аккаунты-держатели.
//
// Accounts:
//
//	0 [signer,w] payer
//	1 [w]        associated token account
//	2 []         wallet
//	3 []         mint
//	4 []         system program
//	5 []         token program
//	6 []         rent sysvar
type associatedTokenProgram struct{}

func (associatedTokenProgram) Process(
	ctx context.Context,
	invoker blockchain.Invoker,
	programID solana.PublicKey,
	accounts []*blockchain.AccountInfo,
	data []byte,
) error {
	var idempotent bool
	switch {
	case len(data) == 0, len(data) == 1 && data[0] == ataInstructionCreate:
		invoker.Log("Create")
	case len(data) == 1 && data[0] == ataInstructionCreateIdempotent:
		invoker.Log("CreateIdempotent")
		idempotent = true
	default:
		return blockchain.ErrInvalidInstructionData
	}

	if len(accounts) < 7 {
		return blockchain.ErrNotEnoughAccountKeys
	}
	var (
		payer     = accounts[0]
		ata       = accounts[1]
		wallet    = accounts[2]
		mint      = accounts[3]
		tokenInfo = accounts[5]
		rentInfo  = accounts[6]
	)

	if !tokenInfo.Key.Equals(solana.TokenProgramID) {
		return blockchain.ErrIncorrectProgramID
	}
	seeds := [][]byte{wallet.Key[:], tokenInfo.Key[:], mint.Key[:]}
	expected, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return fmt.Errorf("%w: %v", blockchain.ErrInvalidSeeds, err)
	}
	if !expected.Equals(ata.Key) {
		invoker.Log("Error: associated address does not match seed derivation")
		return blockchain.ErrInvalidSeeds
	}

	if idempotent && ata.Owner.Equals(solana.TokenProgramID) {
		existing, err := DecodeTokenAccount(ata.Data)
		if err != nil {
			return err
		}
		if !existing.Owner.Equals(wallet.Key) || !existing.Mint.Equals(mint.Key) {
			return blockchain.ErrOwnerMismatch
		}
		return nil
	}
	if !ata.Owner.Equals(solana.SystemProgramID) || !ata.DataIsEmpty() {
		return blockchain.ErrAccountAlreadyInUse
	}

	rent, err := blockchain.DecodeRent(rentInfo.Data)
	if err != nil {
		return err
	}
	required := rent.MinimumBalance(TokenAccountSize)
	signerSeeds := append(seeds, []byte{bump})

	if ata.Lamports == 0 {
		create := system.NewCreateAccountInstruction(required, TokenAccountSize, solana.TokenProgramID, payer.Key, ata.Key).Build()
		if err := invoker.InvokeSigned(ctx, create, signerSeeds); err != nil {
			return err
		}
	} else {
		// на адрес уже перевели лампорты: доплачиваем и размечаем вручную
		if ata.Lamports < required {
			topUp := system.NewTransferInstruction(required-ata.Lamports, payer.Key, ata.Key).Build()
			if err := invoker.Invoke(ctx, topUp); err != nil {
				return err
			}
		}
		if err := invoker.InvokeSigned(ctx, system.NewAllocateInstruction(TokenAccountSize, ata.Key).Build(), signerSeeds); err != nil {
			return err
		}
		if err := invoker.InvokeSigned(ctx, system.NewAssignInstruction(solana.TokenProgramID, ata.Key).Build(), signerSeeds); err != nil {
			return err
		}
	}

	invoker.Log("Initialize the associated token account")
	initialize := token.NewInitializeAccountInstruction(ata.Key, mint.Key, wallet.Key, solana.SysVarRentPubkey).Build()
	return invoker.Invoke(ctx, initialize)
}
