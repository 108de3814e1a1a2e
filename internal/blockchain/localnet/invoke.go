// =============================
// File: internal/blockchain/localnet/invoke.go
// =============================
package localnet

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

// txContext хранит рабочий набор аккаунтов одной транзакции и её логи.
type txContext struct {
	bank     *Bank
	accounts map[solana.PublicKey]*blockchain.Account
	logs     []string
}

func (t *txContext) log(format string, args ...interface{}) {
	t.logs = append(t.logs, fmt.Sprintf(format, args...))
}

// processCompiled разворачивает инструкцию сообщения в список AccountInfo.
func (t *txContext) processCompiled(ctx context.Context, tx *solana.Transaction, ci solana.CompiledInstruction) error {
	programID, err := tx.Message.Program(ci.ProgramIDIndex)
	if err != nil {
		return fmt.Errorf("%w: %v", blockchain.ErrMissingAccount, err)
	}

	infos := make([]*blockchain.AccountInfo, 0, len(ci.Accounts))
	for _, idx := range ci.Accounts {
		key, err := tx.Message.Account(idx)
		if err != nil {
			return fmt.Errorf("%w: %v", blockchain.ErrMissingAccount, err)
		}
		writable, err := tx.Message.IsWritable(key)
		if err != nil {
			return err
		}
		infos = append(infos, &blockchain.AccountInfo{
			Key:        key,
			IsSigner:   tx.Message.IsSigner(key),
			IsWritable: writable,
			Account:    t.accounts[key],
		})
	}
	return t.execute(ctx, programID, infos, ci.Data, 1)
}

// execute runs one program invocation and verifies what it did to its accounts.
func (t *txContext) execute(ctx context.Context, programID solana.PublicKey, infos []*blockchain.AccountInfo, data []byte, depth int) error {
	program, ok := t.bank.program(programID)
	if acc := t.accounts[programID]; !ok || acc == nil || !acc.Executable {
		return fmt.Errorf("%w: %s", blockchain.ErrUnsupportedProgramID, programID)
	}

	t.log("Program %s invoke [%d]", programID, depth)
	f := newFrame(t, programID, infos, depth)
	err := program.Process(ctx, f, programID, infos, data)
	if err == nil {
		err = f.verify()
	}
	if err != nil {
		t.log("Program %s failed: %v", programID, err)
		return err
	}
	t.log("Program %s success", programID)
	return nil
}

type accountState struct {
	pre      *blockchain.Account
	current  *blockchain.Account
	signer   bool
	writable bool
}

// frame один уровень вызова программы. Реализует blockchain.Invoker.
type frame struct {
	tx        *txContext
	programID solana.PublicKey
	depth     int
	state     map[solana.PublicKey]*accountState
}

var _ blockchain.Invoker = (*frame)(nil)

func newFrame(tx *txContext, programID solana.PublicKey, infos []*blockchain.AccountInfo, depth int) *frame {
	f := &frame{
		tx:        tx,
		programID: programID,
		depth:     depth,
		state:     make(map[solana.PublicKey]*accountState, len(infos)),
	}
	for _, info := range infos {
		st, ok := f.state[info.Key]
		if !ok {
			st = &accountState{current: info.Account}
			f.state[info.Key] = st
		}
		st.signer = st.signer || info.IsSigner
		st.writable = st.writable || info.IsWritable
	}
	f.snapshot()
	return f
}

// snapshot запоминает текущее состояние аккаунтов как исходное.
func (f *frame) snapshot() {
	for _, st := range f.state {
		st.pre = st.current.Clone()
	}
}

// verify checks the changes made since the last snapshot against the
// ownership rules of the runtime.
func (f *frame) verify() error {
	preSum, postSum := new(big.Int), new(big.Int)
	for key, st := range f.state {
		pre, post := st.pre, st.current
		owned := pre.Owner.Equals(f.programID)

		if !pre.Owner.Equals(post.Owner) {
			if !st.writable || !owned || !isZeroed(post.Data) {
				return fmt.Errorf("%w: %s", blockchain.ErrModifiedProgramID, key)
			}
		}
		if post.Lamports < pre.Lamports {
			if !owned {
				return fmt.Errorf("%w: %s", blockchain.ErrExternalLamportSpend, key)
			}
			if !st.writable {
				return fmt.Errorf("%w: %s", blockchain.ErrReadonlyLamportChange, key)
			}
		} else if post.Lamports > pre.Lamports && !st.writable {
			return fmt.Errorf("%w: %s", blockchain.ErrReadonlyLamportChange, key)
		}
		if !bytes.Equal(pre.Data, post.Data) {
			if !st.writable {
				return fmt.Errorf("%w: %s", blockchain.ErrReadonlyDataModified, key)
			}
			if !owned {
				return fmt.Errorf("%w: %s", blockchain.ErrExternalAccountDataModified, key)
			}
		}
		if pre.Executable != post.Executable {
			return fmt.Errorf("%w: %s", blockchain.ErrExecutableModified, key)
		}

		preSum.Add(preSum, new(big.Int).SetUint64(pre.Lamports))
		postSum.Add(postSum, new(big.Int).SetUint64(post.Lamports))
	}
	if preSum.Cmp(postSum) != 0 {
		return blockchain.ErrUnbalancedInstruction
	}
	return nil
}

// Invoke вызывает другую программу с привилегиями текущего вызова.
func (f *frame) Invoke(ctx context.Context, ix solana.Instruction) error {
	return f.InvokeSigned(ctx, ix)
}

// InvokeSigned вызывает программу, подписывая за PDA текущей программы.
func (f *frame) InvokeSigned(ctx context.Context, ix solana.Instruction, signerSeeds ...[][]byte) error {
	if f.depth >= f.tx.bank.maxDepth {
		return blockchain.ErrCallDepth
	}

	pdaSigners := make(map[solana.PublicKey]struct{}, len(signerSeeds))
	for _, seeds := range signerSeeds {
		addr, err := solana.CreateProgramAddress(seeds, f.programID)
		if err != nil {
			return fmt.Errorf("%w: %v", blockchain.ErrInvalidSeeds, err)
		}
		pdaSigners[addr] = struct{}{}
	}

	programID := ix.ProgramID()
	if _, ok := f.state[programID]; !ok {
		return fmt.Errorf("%w: program %s", blockchain.ErrMissingAccount, programID)
	}
	data, err := ix.Data()
	if err != nil {
		return fmt.Errorf("%w: %v", blockchain.ErrInvalidInstructionData, err)
	}

	metas := ix.Accounts()
	infos := make([]*blockchain.AccountInfo, 0, len(metas))
	for _, meta := range metas {
		st, ok := f.state[meta.PublicKey]
		if !ok {
			return fmt.Errorf("%w: %s", blockchain.ErrMissingAccount, meta.PublicKey)
		}
		if meta.IsWritable && !st.writable {
			return fmt.Errorf("%w: %s is not writable", blockchain.ErrPrivilegeEscalation, meta.PublicKey)
		}
		if meta.IsSigner && !st.signer {
			if _, ok := pdaSigners[meta.PublicKey]; !ok {
				return fmt.Errorf("%w: %s did not sign", blockchain.ErrPrivilegeEscalation, meta.PublicKey)
			}
		}
		infos = append(infos, &blockchain.AccountInfo{
			Key:        meta.PublicKey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
			Account:    st.current,
		})
	}

	if err := f.verify(); err != nil {
		return err
	}
	err = f.tx.execute(ctx, programID, infos, data, f.depth+1)
	f.snapshot()
	return err
}

// Log пишет строку в лог транзакции.
func (f *frame) Log(format string, args ...interface{}) {
	f.tx.log("Program log: "+format, args...)
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
