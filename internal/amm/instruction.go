// =============================
// File: internal/amm/instruction.go
// =============================
package amm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Теги инструкций.
const (
	InstructionInitMarket uint8 = 0
	InstructionSwap       uint8 = 1
)

// Длины полезной нагрузки вместе с тегом.
const (
	initMarketDataLen = 1 + 8 + 8
	swapDataLen       = 1 + 8 + 32
)

// InitMarketArgs аргументы инициализации рынка.
type InitMarketArgs struct {
	AmountX uint64
	AmountY uint64
}

// SwapArgs аргументы свапа.
type SwapArgs struct {
	Amount   uint64
	MinterPk solana.PublicKey
}

// AmmInstruction is a decoded instruction payload. Exactly one of the
// argument fields is set, matching Tag.
type AmmInstruction struct {
	Tag        uint8
	InitMarket *InitMarketArgs
	Swap       *SwapArgs
}

func (ix AmmInstruction) Name() string {
	switch ix.Tag {
	case InstructionInitMarket:
		return "InitMarket"
	case InstructionSwap:
		return "Swap"
	default:
		return fmt.Sprintf("Unknown(%d)", ix.Tag)
	}
}

// MarshalWithEncoder пишет тег и поля в фиксированном little-endian формате.
func (ix AmmInstruction) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint8(ix.Tag); err != nil {
		return err
	}
	switch {
	case ix.Tag == InstructionInitMarket && ix.InitMarket != nil:
		if err := encoder.WriteUint64(ix.InitMarket.AmountX, binary.LittleEndian); err != nil {
			return err
		}
		return encoder.WriteUint64(ix.InitMarket.AmountY, binary.LittleEndian)
	case ix.Tag == InstructionSwap && ix.Swap != nil:
		if err := encoder.WriteUint64(ix.Swap.Amount, binary.LittleEndian); err != nil {
			return err
		}
		return encoder.WriteBytes(ix.Swap.MinterPk.Bytes(), false)
	default:
		return fmt.Errorf("instruction %s has no arguments", ix.Name())
	}
}

// Encode returns the binary payload of the instruction.
func (ix AmmInstruction) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(ix); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", ix.Name(), err)
	}
	return buf.Bytes(), nil
}

// DecodeInstruction разбирает полезную нагрузку. Неизвестный тег или длина,
// не совпадающая с раскладкой тега, дают MalformedInstruction.
func DecodeInstruction(data []byte) (*AmmInstruction, error) {
	if len(data) == 0 {
		return nil, MalformedInstruction
	}
	dec := bin.NewBorshDecoder(data[1:])

	switch data[0] {
	case InstructionInitMarket:
		if len(data) != initMarketDataLen {
			return nil, MalformedInstruction
		}
		amountX, err := dec.ReadUint64(binary.LittleEndian)
		if err != nil {
			return nil, MalformedInstruction
		}
		amountY, err := dec.ReadUint64(binary.LittleEndian)
		if err != nil {
			return nil, MalformedInstruction
		}
		return &AmmInstruction{
			Tag:        InstructionInitMarket,
			InitMarket: &InitMarketArgs{AmountX: amountX, AmountY: amountY},
		}, nil

	case InstructionSwap:
		if len(data) != swapDataLen {
			return nil, MalformedInstruction
		}
		amount, err := dec.ReadUint64(binary.LittleEndian)
		if err != nil {
			return nil, MalformedInstruction
		}
		minter, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return nil, MalformedInstruction
		}
		return &AmmInstruction{
			Tag:  InstructionSwap,
			Swap: &SwapArgs{Amount: amount, MinterPk: solana.PublicKeyFromBytes(minter)},
		}, nil

	default:
		return nil, MalformedInstruction
	}
}

// Instruction is a ready-to-send program instruction.
type Instruction struct {
	programID solana.PublicKey
	accounts  solana.AccountMetaSlice
	Args      AmmInstruction
}

var _ solana.Instruction = (*Instruction)(nil)

func (i *Instruction) ProgramID() solana.PublicKey {
	return i.programID
}

func (i *Instruction) Accounts() []*solana.AccountMeta {
	return i.accounts
}

func (i *Instruction) Data() ([]byte, error) {
	return i.Args.Encode()
}

// InitMarketAccounts пользовательские аккаунты инструкции InitMarket.
type InitMarketAccounts struct {
	OwnerX     solana.PublicKey
	OwnerY     solana.PublicKey
	Payer      solana.PublicKey
	UserTokenX solana.PublicKey
	UserTokenY solana.PublicKey
	MintX      solana.PublicKey
	MintY      solana.PublicKey
}

// NewInitMarketInstruction собирает инструкцию InitMarket с полным списком
// аккаунтов в порядке, который ожидает программа.
func NewInitMarketInstruction(programID solana.PublicKey, accts InitMarketAccounts, amountX, amountY uint64) (*Instruction, error) {
	pda, err := GeneratePda(programID, accts.MintX, accts.MintY)
	if err != nil {
		return nil, err
	}
	return &Instruction{
		programID: programID,
		accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(accts.OwnerX, false, true),
			solana.NewAccountMeta(accts.OwnerY, false, true),
			solana.NewAccountMeta(accts.Payer, true, true),
			solana.NewAccountMeta(accts.UserTokenX, true, false),
			solana.NewAccountMeta(accts.UserTokenY, true, false),
			solana.NewAccountMeta(accts.MintX, false, false),
			solana.NewAccountMeta(accts.MintY, false, false),
			solana.NewAccountMeta(pda.TokenX, true, false),
			solana.NewAccountMeta(pda.TokenY, true, false),
			solana.NewAccountMeta(pda.OwnerTokenX, false, false),
			solana.NewAccountMeta(pda.OwnerTokenY, false, false),
			solana.NewAccountMeta(pda.Vault, true, false),
			solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
			solana.NewAccountMeta(solana.TokenProgramID, false, false),
			solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		},
		Args: AmmInstruction{
			Tag:        InstructionInitMarket,
			InitMarket: &InitMarketArgs{AmountX: amountX, AmountY: amountY},
		},
	}, nil
}

// SwapAccounts пользовательские аккаунты инструкции Swap.
type SwapAccounts struct {
	User       solana.PublicKey
	UserTokenX solana.PublicKey
	UserTokenY solana.PublicKey
	MintX      solana.PublicKey
	MintY      solana.PublicKey
}

// NewSwapInstruction собирает инструкцию Swap.
func NewSwapInstruction(programID solana.PublicKey, accts SwapAccounts, amount uint64, minter solana.PublicKey) (*Instruction, error) {
	pda, err := GeneratePda(programID, accts.MintX, accts.MintY)
	if err != nil {
		return nil, err
	}
	return &Instruction{
		programID: programID,
		accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(accts.User, false, true),
			solana.NewAccountMeta(accts.UserTokenX, true, false),
			solana.NewAccountMeta(accts.UserTokenY, true, false),
			solana.NewAccountMeta(accts.MintX, false, false),
			solana.NewAccountMeta(accts.MintY, false, false),
			solana.NewAccountMeta(pda.TokenX, true, false),
			solana.NewAccountMeta(pda.TokenY, true, false),
			solana.NewAccountMeta(pda.OwnerTokenX, false, false),
			solana.NewAccountMeta(pda.OwnerTokenY, false, false),
			solana.NewAccountMeta(pda.Vault, true, false),
			solana.NewAccountMeta(solana.TokenProgramID, false, false),
		},
		Args: AmmInstruction{
			Tag:  InstructionSwap,
			Swap: &SwapArgs{Amount: amount, MinterPk: minter},
		},
	}, nil
}

// WithAccount replaces the account meta at index. Used to build spoofed
// account lists in tests and audits.
func (i *Instruction) WithAccount(index int, key solana.PublicKey) *Instruction {
	metas := make(solana.AccountMetaSlice, len(i.accounts))
	for j, m := range i.accounts {
		cp := *m
		metas[j] = &cp
	}
	metas[index].PublicKey = key
	return &Instruction{programID: i.programID, accounts: metas, Args: i.Args}
}
