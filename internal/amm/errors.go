// =============================
// File: internal/amm/errors.go
// =============================
package amm

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

// AmmError is a custom program error code surfaced to the transaction.
type AmmError uint32

// Коды ошибок программы. Значения являются частью внешнего контракта.
const (
	MalformedInstruction AmmError = iota
	InvalidDerivedAddress
	InvalidInitialAmount
	InvalidAmount
	UnknownMint
	Overflow
	Underflow
	InsufficientLiquidity
	AccountAlreadyInitialized
	IdenticalMinter
	InvalidVault
)

var errorNames = map[AmmError]string{
	MalformedInstruction:      "MalformedInstruction",
	InvalidDerivedAddress:     "InvalidDerivedAddress",
	InvalidInitialAmount:      "InvalidInitialAmount",
	InvalidAmount:             "InvalidAmount",
	UnknownMint:               "UnknownMint",
	Overflow:                  "Overflow",
	Underflow:                 "Underflow",
	InsufficientLiquidity:     "InsufficientLiquidity",
	AccountAlreadyInitialized: "AccountAlreadyInitialized",
	IdenticalMinter:           "IdenticalMinter",
	InvalidVault:              "InvalidVault",
}

// Name возвращает символьное имя кода.
func (e AmmError) Name() string {
	if name, ok := errorNames[e]; ok {
		return name
	}
	return "Unknown"
}

// Code возвращает числовой код ошибки.
func (e AmmError) Code() uint32 {
	return uint32(e)
}

func (e AmmError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x (%s)", uint32(e), e.Name())
}

// CodeOf extracts the program error code from err, unwrapping transaction
// and instruction wrappers.
func CodeOf(err error) (AmmError, bool) {
	var code AmmError
	if errors.As(err, &code) {
		return code, true
	}
	var custom blockchain.CustomError
	if errors.As(err, &custom) {
		return AmmError(custom), true
	}
	return 0, false
}
