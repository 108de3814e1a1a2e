// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

// ErrConfirmationTimeout возникает, если транзакция не подтверждена вовремя.
var ErrConfirmationTimeout = errors.New("confirmation timeout")

// Client – адаптер blockchain.Client поверх JSON-RPC узлов Solana.
type Client struct {
	pool           *pool
	logger         *zap.Logger
	commitment     rpc.CommitmentType
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

// Option настраивает Client.
type Option func(*Client)

// WithCommitment задаёт уровень подтверждения запросов.
func WithCommitment(commitment rpc.CommitmentType) Option {
	return func(c *Client) { c.commitment = commitment }
}

// WithConfirmation sets how long and how often SendTransaction polls for
// the transaction status.
func WithConfirmation(timeout, interval time.Duration) Option {
	return func(c *Client) {
		c.confirmTimeout = timeout
		c.pollInterval = interval
	}
}

// NewClient создаёт клиент для списка RPC URL.
func NewClient(urls []string, logger *zap.Logger, opts ...Option) (*Client, error) {
	if len(urls) == 0 {
		return nil, ErrNoActiveNodes
	}
	named := logger.Named("solbc-client")
	c := &Client{
		pool:           newPool(urls, named),
		logger:         named,
		commitment:     rpc.CommitmentConfirmed,
		confirmTimeout: 30 * time.Second,
		pollInterval:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetRecentBlockhash получает последний blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	var hash solana.Hash
	err := c.pool.execute(ctx, "getLatestBlockhash", func(cl *rpc.Client) error {
		result, err := cl.GetLatestBlockhash(ctx, c.commitment)
		if err != nil {
			return err
		}
		hash = result.Value.Blockhash
		return nil
	})
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return hash, nil
}

// GetAccountInfo получает аккаунт. Отсутствующий аккаунт даёт
// blockchain.ErrAccountNotFound.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*blockchain.Account, error) {
	var acc *blockchain.Account
	err := c.pool.execute(ctx, "getAccountInfo", func(cl *rpc.Client) error {
		result, err := cl.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Commitment: c.commitment,
			Encoding:   solana.EncodingBase64,
		})
		if err != nil {
			return err
		}
		if result == nil || result.Value == nil {
			return rpc.ErrNotFound
		}
		value := result.Value
		acc = &blockchain.Account{
			Lamports:   value.Lamports,
			Owner:      value.Owner,
			Executable: value.Executable,
		}
		if value.Data != nil {
			acc.Data = value.Data.GetBinary()
		}
		return nil
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, blockchain.ErrAccountNotFound
	}
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	return acc, nil
}

// GetMinimumBalanceForRentExemption запрашивает минимальный баланс у узла.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	var lamports uint64
	err := c.pool.execute(ctx, "getMinimumBalanceForRentExemption", func(cl *rpc.Client) error {
		var err error
		lamports, err = cl.GetMinimumBalanceForRentExemption(ctx, size, c.commitment)
		return err
	})
	return lamports, err
}

// SendTransaction отправляет транзакцию и ждёт подтверждения. Ошибка
// исполнения возвращается вместе с подписью.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var sig solana.Signature
	err := c.pool.execute(ctx, "sendTransaction", func(cl *rpc.Client) error {
		var err error
		sig, err = cl.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: c.commitment,
		})
		return err
	})
	if err != nil {
		c.logger.Debug("SendTransaction error", zap.Error(err))
		if len(tx.Signatures) > 0 {
			sig = tx.Signatures[0]
		}
		return sig, AnalyzeRPCError(err)
	}
	return sig, c.WaitForConfirmation(ctx, sig)
}

// WaitForConfirmation polls the signature status until the transaction
// reaches the client commitment.
func (c *Client) WaitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		var status *rpc.SignatureStatusesResult
		err := c.pool.execute(ctx, "getSignatureStatuses", func(cl *rpc.Client) error {
			result, err := cl.GetSignatureStatuses(ctx, false, sig)
			if err != nil {
				return err
			}
			if result != nil && len(result.Value) > 0 {
				status = result.Value[0]
			}
			return nil
		})
		switch {
		case err != nil && ctx.Err() == nil:
			c.logger.Warn("Error getting signature statuses", zap.Error(err))
		case status != nil && status.Err != nil:
			return ParseTransactionError(status.Err)
		case status != nil && reached(status.ConfirmationStatus, c.commitment):
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s", ErrConfirmationTimeout, sig)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// NodeStats возвращает метрики узлов пула.
func (c *Client) NodeStats() []NodeStats {
	return c.pool.stats()
}

func reached(status rpc.ConfirmationStatusType, commitment rpc.CommitmentType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return commitment != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return commitment == rpc.CommitmentProcessed
	}
	return false
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
