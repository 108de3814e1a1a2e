// =============================
// File: internal/amm/processor.go
// =============================
package amm

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

// Processor обработчик инструкций программы.
type Processor struct {
	logger *zap.Logger
}

var _ blockchain.Program = (*Processor)(nil)

// NewProcessor создаёт обработчик инструкций.
func NewProcessor(logger *zap.Logger) *Processor {
	return &Processor{logger: logger.Named("amm")}
}

// Process decodes the payload and routes it to the matching handler with the
// account list unchanged.
func (p *Processor) Process(
	ctx context.Context,
	invoker blockchain.Invoker,
	programID solana.PublicKey,
	accounts []*blockchain.AccountInfo,
	data []byte,
) error {
	ix, err := DecodeInstruction(data)
	if err != nil {
		p.logger.Debug("Rejected malformed instruction", zap.Int("data_len", len(data)))
		invoker.Log("Error: malformed instruction data (len=%d)", len(data))
		return err
	}

	switch ix.Tag {
	case InstructionInitMarket:
		invoker.Log("Instruction: InitMarket")
		err = p.processInitMarket(ctx, invoker, programID, accounts, ix.InitMarket.AmountX, ix.InitMarket.AmountY)
	case InstructionSwap:
		invoker.Log("Instruction: Swap")
		err = p.processSwap(ctx, invoker, programID, accounts, ix.Swap.Amount, ix.Swap.MinterPk)
	}

	if err != nil {
		p.logger.Debug("Instruction failed",
			zap.String("instruction", ix.Name()),
			zap.Error(err))
	}
	return err
}
