// =============================
// File: internal/blockchain/localnet/system.go
// =============================
package localnet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

// maxPermittedDataLength ограничение на размер данных аккаунта.
const maxPermittedDataLength = 10 * 1024 * 1024

// systemProgram встроенная системная программа.
type systemProgram struct{}

func (systemProgram) Process(
	_ context.Context,
	invoker blockchain.Invoker,
	_ solana.PublicKey,
	accounts []*blockchain.AccountInfo,
	data []byte,
) error {
	inst, err := system.DecodeInstruction(metasOf(accounts), data)
	if err != nil {
		return fmt.Errorf("%w: %v", blockchain.ErrInvalidInstructionData, err)
	}

	switch ix := inst.Impl.(type) {
	case *system.CreateAccount:
		invoker.Log("CreateAccount: lamports=%d space=%d owner=%s", *ix.Lamports, *ix.Space, *ix.Owner)
		return createAccount(invoker, accounts, *ix.Lamports, *ix.Space, *ix.Owner)
	case *system.Transfer:
		return transferLamports(accounts, *ix.Lamports)
	case *system.Allocate:
		if len(accounts) < 1 {
			return blockchain.ErrNotEnoughAccountKeys
		}
		return allocate(invoker, accounts[0], *ix.Space)
	case *system.Assign:
		if len(accounts) < 1 {
			return blockchain.ErrNotEnoughAccountKeys
		}
		return assign(accounts[0], *ix.Owner)
	default:
		return fmt.Errorf("%w: unsupported system instruction %d", blockchain.ErrInvalidInstructionData, inst.TypeID.Uint32())
	}
}

func createAccount(invoker blockchain.Invoker, accounts []*blockchain.AccountInfo, lamports, space uint64, owner solana.PublicKey) error {
	if len(accounts) < 2 {
		return blockchain.ErrNotEnoughAccountKeys
	}
	to := accounts[1]

	if to.Lamports > 0 {
		invoker.Log("Create Account: account %s already in use", to.Key)
		return blockchain.ErrAccountAlreadyInUse
	}
	if err := allocate(invoker, to, space); err != nil {
		return err
	}
	if err := assign(to, owner); err != nil {
		return err
	}
	return transferLamports(accounts, lamports)
}

func allocate(invoker blockchain.Invoker, info *blockchain.AccountInfo, space uint64) error {
	if !info.IsSigner {
		return blockchain.ErrMissingRequiredSignature
	}
	if len(info.Data) > 0 || !info.Owner.Equals(solana.SystemProgramID) {
		invoker.Log("Allocate: account %s already in use", info.Key)
		return blockchain.ErrAccountAlreadyInUse
	}
	if space > maxPermittedDataLength {
		return blockchain.ErrInvalidArgument
	}
	info.Data = make([]byte, space)
	return nil
}

func assign(info *blockchain.AccountInfo, owner solana.PublicKey) error {
	if info.Owner.Equals(owner) {
		return nil
	}
	if !info.IsSigner {
		return blockchain.ErrMissingRequiredSignature
	}
	info.Owner = owner
	return nil
}

func transferLamports(accounts []*blockchain.AccountInfo, lamports uint64) error {
	if len(accounts) < 2 {
		return blockchain.ErrNotEnoughAccountKeys
	}
	from, to := accounts[0], accounts[1]

	if !from.IsSigner {
		return blockchain.ErrMissingRequiredSignature
	}
	if len(from.Data) > 0 {
		return fmt.Errorf("%w: from must not carry data", blockchain.ErrInvalidArgument)
	}
	if from.Lamports < lamports {
		return blockchain.ErrInsufficientFunds
	}
	if to.Lamports+lamports < to.Lamports {
		return blockchain.ErrArithmeticOverflow
	}
	from.Lamports -= lamports
	to.Lamports += lamports
	return nil
}

func metasOf(accounts []*blockchain.AccountInfo) []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, len(accounts))
	for i, info := range accounts {
		metas[i] = solana.NewAccountMeta(info.Key, info.IsWritable, info.IsSigner)
	}
	return metas
}
