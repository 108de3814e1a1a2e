package localnet

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestBank(t *testing.T, opts ...Option) *Bank {
	t.Helper()
	return NewBank(zaptest.NewLogger(t), opts...)
}

func newFundedKey(t *testing.T, bank *Bank, lamports uint64) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	if lamports > 0 {
		bank.Airdrop(key.PublicKey(), lamports)
	}
	return key
}

func keyGetter(signers []solana.PrivateKey) func(solana.PublicKey) *solana.PrivateKey {
	return func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	}
}

// buildTx собирает транзакцию; первый подписант платит комиссию.
func buildTx(t *testing.T, bank *Bank, signers []solana.PrivateKey, ixs ...solana.Instruction) *solana.Transaction {
	t.Helper()
	blockhash, err := bank.GetRecentBlockhash(context.Background())
	require.NoError(t, err)

	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(signers[0].PublicKey()))
	require.NoError(t, err)
	_, err = tx.Sign(keyGetter(signers))
	require.NoError(t, err)
	return tx
}

func lamportsOf(bank *Bank, key solana.PublicKey) uint64 {
	acc, ok := bank.Account(key)
	if !ok {
		return 0
	}
	return acc.Lamports
}
