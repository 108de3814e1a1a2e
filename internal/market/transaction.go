// =============================
// File: internal/market/transaction.go
// =============================
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/wallet"
)

// buildAndSubmitTransaction строит, подписывает и отправляет транзакцию.
// Временные ошибки хоста повторяются с новым blockhash, ошибки программы
// возвращаются сразу.
func (c *Client) buildAndSubmitTransaction(
	ctx context.Context,
	payer *wallet.Wallet,
	signers []*wallet.Wallet,
	instructions []solana.Instruction,
) (solana.Signature, error) {
	if c.computeUnits > 0 {
		instructions = append([]solana.Instruction{
			computebudget.NewSetComputeUnitLimitInstruction(c.computeUnits).Build(),
		}, instructions...)
	}

	op := func() (solana.Signature, error) {
		tx, err := c.createSignedTransaction(ctx, payer, signers, instructions)
		if err != nil {
			return solana.Signature{}, err
		}
		return c.submitTransaction(ctx, tx)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxInterval = c.retryInterval * 10

	notify := func(err error, d time.Duration) {
		c.logger.Debug("Retrying transaction", zap.Error(err), zap.Duration("backoff", d))
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.retries+1)),
		backoff.WithMaxElapsedTime(c.maxElapsed),
		backoff.WithNotify(notify))
}

func (c *Client) createSignedTransaction(
	ctx context.Context,
	payer *wallet.Wallet,
	signers []*wallet.Wallet,
	instructions []solana.Instruction,
) (*solana.Transaction, error) {
	blockhash, err := c.chain.GetRecentBlockhash(ctx)
	if err != nil {
		if isTransient(err) {
			return nil, err
		}
		return nil, backoff.Permanent(fmt.Errorf("failed to get recent blockhash: %w", err))
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer.PublicKey))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create transaction: %w", err))
	}

	keys := make(map[solana.PublicKey]*solana.PrivateKey, len(signers)+1)
	for _, w := range append([]*wallet.Wallet{payer}, signers...) {
		keys[w.PublicKey] = &w.PrivateKey
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		return keys[key]
	}); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to sign transaction: %w", err))
	}
	return tx, nil
}

func (c *Client) submitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.chain.SendTransaction(ctx, tx)
	if err == nil {
		return sig, nil
	}
	if isTransient(err) {
		c.logger.Debug("Transient transaction error", zap.String("signature", sig.String()), zap.Error(err))
		return sig, err
	}
	return sig, backoff.Permanent(err)
}
