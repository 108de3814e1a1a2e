// =============================
// File: internal/blockchain/localnet/compute_budget.go
// =============================
package localnet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

// computeBudgetProgram принимает инструкции лимита и цены вычислений.
// Вычислительные единицы не учитываются: инструкции проверяются и попадают в лог.
type computeBudgetProgram struct{}

func (computeBudgetProgram) Process(
	_ context.Context,
	invoker blockchain.Invoker,
	_ solana.PublicKey,
	accounts []*blockchain.AccountInfo,
	data []byte,
) error {
	inst, err := computebudget.DecodeInstruction(metasOf(accounts), data)
	if err != nil {
		return fmt.Errorf("%w: %v", blockchain.ErrInvalidInstructionData, err)
	}
	switch inst.Impl.(type) {
	case *computebudget.SetComputeUnitLimit:
		invoker.Log("SetComputeUnitLimit")
	case *computebudget.SetComputeUnitPrice:
		invoker.Log("SetComputeUnitPrice")
	default:
		invoker.Log("ComputeBudget instruction %d ignored", inst.TypeID.Uint8())
	}
	return nil
}
