// internal/amm/program.go
package amm

import (
	"github.com/gagliardetto/solana-go"
)

// ProgramID адрес программы по умолчанию.
var ProgramID = solana.MustPublicKeyFromBase58("icELTj9iFwcpQ8KtPd4ZpSJMZbUAvYSXdd6ViCgPWwR")

// Seed tags for program derived addresses.
var (
	SplTokenXOwnerSeed = []byte("SPL_TOKEN_X_OWNER")
	SplTokenYOwnerSeed = []byte("SPL_TOKEN_Y_OWNER")
	VaultSeed          = []byte("VAULT")
)

// Account counts expected by each instruction.
const (
	InitMarketAccountsLen = 16
	SwapAccountsLen       = 11
)
