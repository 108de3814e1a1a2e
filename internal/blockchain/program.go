// internal/blockchain/program.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Invoker is the host capability handed to a running program.
type Invoker interface {
	// Invoke calls another program with the privileges of the current call.
	Invoke(ctx context.Context, ix solana.Instruction) error
	// InvokeSigned additionally signs for program derived addresses built
	// from signerSeeds and the calling program id.
	InvokeSigned(ctx context.Context, ix solana.Instruction, signerSeeds ...[][]byte) error
	// Log appends a line to the transaction log.
	Log(format string, args ...interface{})
}

// Program processes one instruction against the accounts passed to it.
type Program interface {
	Process(ctx context.Context, invoker Invoker, programID solana.PublicKey, accounts []*AccountInfo, data []byte) error
}

// ProgramFunc adapts an ordinary function to Program.
type ProgramFunc func(ctx context.Context, invoker Invoker, programID solana.PublicKey, accounts []*AccountInfo, data []byte) error

// Process calls f.
func (f ProgramFunc) Process(ctx context.Context, invoker Invoker, programID solana.PublicKey, accounts []*AccountInfo, data []byte) error {
	return f(ctx, invoker, programID, accounts, data)
}
