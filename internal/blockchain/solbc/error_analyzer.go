// internal/blockchain/solbc/error_analyzer.go
package solbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

// NodeError описывает транспортную ошибку конкретного узла.
type NodeError struct {
	Err     error
	NodeURL string
	Method  string
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Имена ошибок инструкций в ответах узла.
var instructionErrors = map[string]error{
	"MissingRequiredSignature":    blockchain.ErrMissingRequiredSignature,
	"NotEnoughAccountKeys":        blockchain.ErrNotEnoughAccountKeys,
	"InvalidSeeds":                blockchain.ErrInvalidSeeds,
	"InvalidAccountData":          blockchain.ErrInvalidAccountData,
	"InvalidInstructionData":      blockchain.ErrInvalidInstructionData,
	"InvalidArgument":             blockchain.ErrInvalidArgument,
	"InsufficientFunds":           blockchain.ErrInsufficientFunds,
	"IncorrectProgramId":          blockchain.ErrIncorrectProgramID,
	"AccountAlreadyInitialized":   blockchain.ErrAccountAlreadyInit,
	"UninitializedAccount":        blockchain.ErrUninitializedAccount,
	"IllegalOwner":                blockchain.ErrOwnerMismatch,
	"ArithmeticOverflow":          blockchain.ErrArithmeticOverflow,
	"PrivilegeEscalation":         blockchain.ErrPrivilegeEscalation,
	"ExternalAccountDataModified": blockchain.ErrExternalAccountDataModified,
	"ReadonlyDataModified":        blockchain.ErrReadonlyDataModified,
	"ExternalAccountLamportSpend": blockchain.ErrExternalLamportSpend,
	"ReadonlyLamportChange":       blockchain.ErrReadonlyLamportChange,
	"ModifiedProgramId":           blockchain.ErrModifiedProgramID,
	"UnbalancedInstruction":       blockchain.ErrUnbalancedInstruction,
	"CallDepth":                   blockchain.ErrCallDepth,
	"MissingAccount":              blockchain.ErrMissingAccount,
	"UnsupportedProgramId":        blockchain.ErrUnsupportedProgramID,
	"ExecutableModified":          blockchain.ErrExecutableModified,
}

// Имена ошибок уровня транзакции.
var transactionErrors = map[string]error{
	"AccountInUse":            blockchain.ErrAccountInUse,
	"AccountNotFound":         blockchain.ErrAccountNotFound,
	"BlockhashNotFound":       blockchain.ErrBlockhashNotFound,
	"SignatureFailure":        blockchain.ErrSignatureFailure,
	"InsufficientFundsForFee": blockchain.ErrInsufficientFundsForFee,
	"AlreadyProcessed":        blockchain.ErrAlreadyProcessed,
}

// ParseTransactionError converts the JSON "err" value of a signature status
// or a simulation result into the host error types.
//
// Examples of accepted values:
//
//	"BlockhashNotFound"
//	{"InstructionError": [0, {"Custom": 7}]}
//	{"InstructionError": [1, "InvalidAccountData"]}
func ParseTransactionError(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		if err, ok := transactionErrors[v]; ok {
			return err
		}
		return fmt.Errorf("transaction error: %s", v)
	case map[string]interface{}:
		raw, ok := v["InstructionError"]
		if !ok {
			return fmt.Errorf("transaction error: %v", v)
		}
		parts, ok := raw.([]interface{})
		if !ok || len(parts) != 2 {
			return fmt.Errorf("malformed instruction error: %v", raw)
		}
		index, ok := toUint(parts[0])
		if !ok {
			return fmt.Errorf("malformed instruction index: %v", parts[0])
		}
		return &blockchain.TransactionError{Index: int(index), Err: parseInstructionError(parts[1])}
	default:
		return fmt.Errorf("transaction error: %v", v)
	}
}

func parseInstructionError(value interface{}) error {
	switch v := value.(type) {
	case string:
		if err, ok := instructionErrors[v]; ok {
			return err
		}
		return errors.New(v)
	case map[string]interface{}:
		if custom, ok := v["Custom"]; ok {
			if code, ok := toUint(custom); ok {
				return blockchain.CustomError(code)
			}
		}
	}
	return fmt.Errorf("instruction error: %v", value)
}

// AnalyzeRPCError extracts the transaction error of a failed preflight from
// an RPC error. Unknown errors are returned unchanged.
func AnalyzeRPCError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return err
	}
	if data, ok := rpcErr.Data.(map[string]interface{}); ok {
		if txErr, ok := data["err"]; ok && txErr != nil {
			return ParseTransactionError(txErr)
		}
	}
	if strings.Contains(strings.ToLower(rpcErr.Message), "blockhash not found") {
		return blockchain.ErrBlockhashNotFound
	}
	return err
}

func toUint(v interface{}) (uint32, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != float64(uint32(n)) {
			return 0, false
		}
		return uint32(n), true
	case int:
		return uint32(n), n >= 0
	case uint32:
		return n, true
	case json.Number:
		u, err := n.Int64()
		if err != nil || u < 0 || u > int64(^uint32(0)) {
			return 0, false
		}
		return uint32(u), true
	}
	return 0, false
}
