// =============================
// File: internal/blockchain/localnet/token.go
// =============================
package localnet

import (
	"bytes"
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

const (
	// TokenAccountSize размер аккаунта-держателя токена.
	TokenAccountSize = 165
	// MintSize размер аккаунта минта.
	MintSize = 82
)

// tokenProgram встроенная программа SPL Token (подмножество инструкций).
type tokenProgram struct{}

func (tokenProgram) Process(
	_ context.Context,
	invoker blockchain.Invoker,
	programID solana.PublicKey,
	accounts []*blockchain.AccountInfo,
	data []byte,
) error {
	inst, err := token.DecodeInstruction(metasOf(accounts), data)
	if err != nil {
		return fmt.Errorf("%w: %v", blockchain.ErrInvalidInstructionData, err)
	}

	switch ix := inst.Impl.(type) {
	case *token.InitializeMint:
		invoker.Log("Instruction: InitializeMint")
		if len(accounts) < 2 {
			return blockchain.ErrNotEnoughAccountKeys
		}
		return initializeMint(programID, accounts[0], accounts[1], *ix.Decimals, *ix.MintAuthority, ix.FreezeAuthority)
	case *token.InitializeAccount:
		invoker.Log("Instruction: InitializeAccount")
		if len(accounts) < 4 {
			return blockchain.ErrNotEnoughAccountKeys
		}
		return initializeTokenAccount(programID, accounts[0], accounts[1], accounts[2], accounts[3])
	case *token.Transfer:
		invoker.Log("Instruction: Transfer")
		if len(accounts) < 3 {
			return blockchain.ErrNotEnoughAccountKeys
		}
		return transferTokens(programID, accounts[0], accounts[1], accounts[2], *ix.Amount)
	case *token.MintTo:
		invoker.Log("Instruction: MintTo")
		if len(accounts) < 3 {
			return blockchain.ErrNotEnoughAccountKeys
		}
		return mintTo(programID, accounts[0], accounts[1], accounts[2], *ix.Amount)
	default:
		return fmt.Errorf("%w: unsupported token instruction %d", blockchain.ErrInvalidInstructionData, inst.TypeID.Uint8())
	}
}

func initializeMint(
	programID solana.PublicKey,
	mintInfo, rentInfo *blockchain.AccountInfo,
	decimals uint8,
	authority solana.PublicKey,
	freeze *solana.PublicKey,
) error {
	if !mintInfo.Owner.Equals(programID) {
		return blockchain.ErrIncorrectProgramID
	}
	if len(mintInfo.Data) != MintSize {
		return blockchain.ErrInvalidAccountData
	}
	mint, err := DecodeMint(mintInfo.Data)
	if err != nil {
		return err
	}
	if mint.IsInitialized {
		return blockchain.ErrAccountAlreadyInit
	}
	if err := requireRentExempt(rentInfo, mintInfo); err != nil {
		return err
	}

	mint = &token.Mint{
		MintAuthority: &authority,
		Decimals:      decimals,
		IsInitialized: true,
	}
	if freeze != nil && !freeze.IsZero() {
		mint.FreezeAuthority = freeze
	}
	return writeTokenState(mintInfo, mint)
}

func initializeTokenAccount(programID solana.PublicKey, accountInfo, mintInfo, ownerInfo, rentInfo *blockchain.AccountInfo) error {
	if !accountInfo.Owner.Equals(programID) {
		return blockchain.ErrIncorrectProgramID
	}
	if len(accountInfo.Data) != TokenAccountSize {
		return blockchain.ErrInvalidAccountData
	}
	existing, err := DecodeTokenAccount(accountInfo.Data)
	if err != nil {
		return err
	}
	if existing.State != token.Uninitialized {
		return blockchain.ErrAccountAlreadyInit
	}
	if err := requireRentExempt(rentInfo, accountInfo); err != nil {
		return err
	}
	if !mintInfo.Owner.Equals(programID) {
		return blockchain.ErrIncorrectProgramID
	}
	mint, err := DecodeMint(mintInfo.Data)
	if err != nil {
		return err
	}
	if !mint.IsInitialized {
		return fmt.Errorf("%w: mint %s", blockchain.ErrUninitializedAccount, mintInfo.Key)
	}

	return writeTokenState(accountInfo, &token.Account{
		Mint:  mintInfo.Key,
		Owner: ownerInfo.Key,
		State: token.Initialized,
	})
}

func transferTokens(programID solana.PublicKey, srcInfo, dstInfo, authority *blockchain.AccountInfo, amount uint64) error {
	src, err := loadTokenAccount(programID, srcInfo)
	if err != nil {
		return err
	}
	dst, err := loadTokenAccount(programID, dstInfo)
	if err != nil {
		return err
	}
	if !src.Mint.Equals(dst.Mint) {
		return blockchain.ErrMintMismatch
	}
	if !src.Owner.Equals(authority.Key) {
		return blockchain.ErrOwnerMismatch
	}
	if !authority.IsSigner {
		return blockchain.ErrMissingRequiredSignature
	}
	if src.Amount < amount {
		return blockchain.ErrInsufficientFunds
	}
	if srcInfo.Key.Equals(dstInfo.Key) {
		return nil
	}
	if dst.Amount+amount < dst.Amount {
		return blockchain.ErrArithmeticOverflow
	}

	src.Amount -= amount
	dst.Amount += amount
	if err := writeTokenState(srcInfo, src); err != nil {
		return err
	}
	return writeTokenState(dstInfo, dst)
}

func mintTo(programID solana.PublicKey, mintInfo, dstInfo, authority *blockchain.AccountInfo, amount uint64) error {
	if !mintInfo.Owner.Equals(programID) {
		return blockchain.ErrIncorrectProgramID
	}
	mint, err := DecodeMint(mintInfo.Data)
	if err != nil {
		return err
	}
	if !mint.IsInitialized {
		return blockchain.ErrUninitializedAccount
	}
	dst, err := loadTokenAccount(programID, dstInfo)
	if err != nil {
		return err
	}
	if !dst.Mint.Equals(mintInfo.Key) {
		return blockchain.ErrMintMismatch
	}
	if mint.MintAuthority == nil {
		return fmt.Errorf("%w: fixed supply", blockchain.ErrInvalidArgument)
	}
	if !mint.MintAuthority.Equals(authority.Key) {
		return blockchain.ErrOwnerMismatch
	}
	if !authority.IsSigner {
		return blockchain.ErrMissingRequiredSignature
	}
	if mint.Supply+amount < mint.Supply || dst.Amount+amount < dst.Amount {
		return blockchain.ErrArithmeticOverflow
	}

	mint.Supply += amount
	dst.Amount += amount
	if err := writeTokenState(mintInfo, mint); err != nil {
		return err
	}
	return writeTokenState(dstInfo, dst)
}

func loadTokenAccount(programID solana.PublicKey, info *blockchain.AccountInfo) (*token.Account, error) {
	if !info.Owner.Equals(programID) {
		return nil, fmt.Errorf("%w: %s", blockchain.ErrIncorrectProgramID, info.Key)
	}
	acc, err := DecodeTokenAccount(info.Data)
	if err != nil {
		return nil, err
	}
	if acc.State == token.Uninitialized {
		return nil, fmt.Errorf("%w: %s", blockchain.ErrUninitializedAccount, info.Key)
	}
	return acc, nil
}

func requireRentExempt(rentInfo, info *blockchain.AccountInfo) error {
	if !rentInfo.Key.Equals(solana.SysVarRentPubkey) {
		return blockchain.ErrInvalidArgument
	}
	rent, err := blockchain.DecodeRent(rentInfo.Data)
	if err != nil {
		return err
	}
	if info.Lamports < rent.MinimumBalance(uint64(len(info.Data))) {
		return fmt.Errorf("%w: %s", blockchain.ErrNotRentExempt, info.Key)
	}
	return nil
}

// DecodeTokenAccount разбирает данные аккаунта-держателя.
func DecodeTokenAccount(data []byte) (*token.Account, error) {
	if len(data) != TokenAccountSize {
		return nil, fmt.Errorf("%w: token account size %d", blockchain.ErrInvalidAccountData, len(data))
	}
	var acc token.Account
	if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
		return nil, fmt.Errorf("%w: %v", blockchain.ErrInvalidAccountData, err)
	}
	return &acc, nil
}

// DecodeMint разбирает данные аккаунта минта.
func DecodeMint(data []byte) (*token.Mint, error) {
	if len(data) != MintSize {
		return nil, fmt.Errorf("%w: mint size %d", blockchain.ErrInvalidAccountData, len(data))
	}
	var mint token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return nil, fmt.Errorf("%w: %v", blockchain.ErrInvalidAccountData, err)
	}
	return &mint, nil
}

func encodeTokenState(v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBinEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTokenState(info *blockchain.AccountInfo, v interface{}) error {
	data, err := encodeTokenState(v)
	if err != nil {
		return err
	}
	if len(data) != len(info.Data) {
		return fmt.Errorf("%w: encoded %d bytes into %d", blockchain.ErrInvalidAccountData, len(data), len(info.Data))
	}
	copy(info.Data, data)
	return nil
}
