// =============================
// File: internal/blockchain/localnet/transaction.go
// =============================
package localnet

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

// TransactionResult итог исполнения транзакции.
type TransactionResult struct {
	Signature solana.Signature
	Slot      uint64
	Fee       uint64
	Logs      []string
	Err       error
	Duration  time.Duration
}

// ProcessTransaction verifies, locks and executes tx. Either every
// instruction succeeds and all writes are committed, or nothing except the
// fee is.
func (b *Bank) ProcessTransaction(ctx context.Context, tx *solana.Transaction) (*TransactionResult, error) {
	start := time.Now()

	if len(tx.Signatures) == 0 || len(tx.Message.AccountKeys) == 0 {
		return nil, blockchain.ErrSignatureFailure
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, fmt.Errorf("%w: %v", blockchain.ErrSignatureFailure, err)
	}
	sig := tx.Signatures[0]

	keys := tx.Message.AccountKeys
	writable := make(map[solana.PublicKey]bool, len(keys))
	for _, key := range keys {
		w, err := tx.Message.IsWritable(key)
		if err != nil {
			return nil, err
		}
		writable[key] = writable[key] || w
	}

	working, err := b.lockAndLoad(tx, sig, writable)
	if err != nil {
		return nil, err
	}
	defer b.unlock(writable)

	feePayer := keys[0]
	fee := b.feePerSig * uint64(len(tx.Signatures))
	payer := working[feePayer]
	if !payer.Owner.Equals(solana.SystemProgramID) || payer.Lamports < fee {
		return nil, blockchain.ErrInsufficientFundsForFee
	}
	payer.Lamports -= fee
	feeOnly := payer.Clone()

	exec := &txContext{bank: b, accounts: working}
	var txErr error
	for idx, ci := range tx.Message.Instructions {
		if err := ctx.Err(); err != nil {
			txErr = err
			break
		}
		if err := exec.processCompiled(ctx, tx, ci); err != nil {
			txErr = &blockchain.TransactionError{Index: idx, Err: err}
			break
		}
	}

	result := &TransactionResult{
		Signature: sig,
		Fee:       fee,
		Logs:      exec.logs,
		Err:       txErr,
		Duration:  time.Since(start),
	}

	b.mu.Lock()
	if txErr != nil {
		if feeOnly.Lamports == 0 {
			delete(b.accounts, feePayer)
		} else {
			b.accounts[feePayer] = feeOnly
		}
	} else {
		for key, acc := range working {
			if !writable[key] {
				continue
			}
			if acc.Lamports == 0 {
				delete(b.accounts, key)
				continue
			}
			b.accounts[key] = acc
		}
	}
	result.Slot = b.slot
	b.processed[sig] = result
	b.advance()
	b.mu.Unlock()

	if txErr != nil {
		b.logger.Debug("Transaction failed",
			zap.String("signature", sig.String()),
			zap.Error(txErr))
		return result, txErr
	}
	b.logger.Debug("Transaction committed",
		zap.String("signature", sig.String()),
		zap.Uint64("slot", result.Slot),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// lockAndLoad захватывает блокировки аккаунтов и копирует их в рабочий набор.
func (b *Bank) lockAndLoad(tx *solana.Transaction, sig solana.Signature, writable map[solana.PublicKey]bool) (map[solana.PublicKey]*blockchain.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isRecent(tx.Message.RecentBlockhash) {
		return nil, blockchain.ErrBlockhashNotFound
	}
	if _, ok := b.processed[sig]; ok {
		return nil, blockchain.ErrAlreadyProcessed
	}

	for key, w := range writable {
		if _, busy := b.writeLock[key]; busy {
			return nil, fmt.Errorf("%w: %s", blockchain.ErrAccountInUse, key)
		}
		if w && b.readLock[key] > 0 {
			return nil, fmt.Errorf("%w: %s", blockchain.ErrAccountInUse, key)
		}
	}
	for key, w := range writable {
		if w {
			b.writeLock[key] = struct{}{}
		} else {
			b.readLock[key]++
		}
	}

	working := make(map[solana.PublicKey]*blockchain.Account, len(writable))
	for key := range writable {
		if acc, ok := b.accounts[key]; ok {
			working[key] = acc.Clone()
		} else {
			working[key] = &blockchain.Account{Owner: solana.SystemProgramID}
		}
	}
	return working, nil
}

func (b *Bank) unlock(writable map[solana.PublicKey]bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, w := range writable {
		if w {
			delete(b.writeLock, key)
			continue
		}
		if b.readLock[key]--; b.readLock[key] <= 0 {
			delete(b.readLock, key)
		}
	}
}
