// internal/blockchain/errors.go
package blockchain

import (
	"errors"
	"fmt"
)

// Ошибки исполнения программ.
var (
	ErrMissingRequiredSignature = errors.New("missing required signature for instruction")
	ErrNotEnoughAccountKeys     = errors.New("insufficient account keys for instruction")
	ErrInvalidSeeds             = errors.New("provided seeds do not result in a valid address")
	ErrInvalidAccountData       = errors.New("invalid account data for instruction")
	ErrInvalidInstructionData   = errors.New("invalid instruction data")
	ErrInvalidArgument          = errors.New("invalid program argument")
	ErrInsufficientFunds        = errors.New("insufficient funds for instruction")
	ErrIncorrectProgramID       = errors.New("incorrect program id for instruction")
	ErrAccountAlreadyInUse      = errors.New("account already in use")
	ErrUninitializedAccount     = errors.New("instruction requires an initialized account")
	ErrAccountAlreadyInit       = errors.New("account already initialized")
	ErrOwnerMismatch            = errors.New("account owner does not match")
	ErrMintMismatch             = errors.New("account mint does not match")
	ErrArithmeticOverflow       = errors.New("arithmetic overflow")
)

// Ошибки рантайма.
var (
	ErrPrivilegeEscalation         = errors.New("cross-program invocation with unauthorized signer or writable account")
	ErrExternalAccountDataModified = errors.New("instruction modified data of an account it does not own")
	ErrReadonlyDataModified        = errors.New("instruction modified data of a read-only account")
	ErrExternalLamportSpend        = errors.New("instruction spent from the balance of an account it does not own")
	ErrReadonlyLamportChange       = errors.New("instruction changed the balance of a read-only account")
	ErrModifiedProgramID           = errors.New("instruction illegally modified the program id of an account")
	ErrUnbalancedInstruction       = errors.New("sum of account balances before and after instruction do not match")
	ErrCallDepth                   = errors.New("cross-program invocation call depth too deep")
	ErrMissingAccount              = errors.New("an account required by the instruction is missing")
	ErrUnsupportedProgramID        = errors.New("unsupported program id")
	ErrExecutableModified          = errors.New("instruction changed executable bit of an account")
	ErrNotRentExempt               = errors.New("account is not rent exempt")
)

// Ошибки транзакций.
var (
	ErrAccountInUse            = errors.New("account in use")
	ErrAccountNotFound         = errors.New("account not found")
	ErrBlockhashNotFound       = errors.New("blockhash not found")
	ErrSignatureFailure        = errors.New("transaction did not pass signature verification")
	ErrInsufficientFundsForFee = errors.New("insufficient funds for fee")
	ErrAlreadyProcessed        = errors.New("transaction has already been processed")
)

// TransactionError wraps the error of the instruction that aborted a transaction.
type TransactionError struct {
	Index int
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("error processing instruction %d: %v", e.Index, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// CustomError is a program-specific error code reported by a remote node.
type CustomError uint32

func (e CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x", uint32(e))
}
