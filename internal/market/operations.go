// =============================
// File: internal/market/operations.go
// =============================
package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
	"github.com/rovshanmuradov/solana-amm/internal/events"
	"github.com/rovshanmuradov/solana-amm/internal/wallet"
)

// SwapReceipt итог подтверждённого свапа.
type SwapReceipt struct {
	OperationID string
	Signature   solana.Signature
	Direction   amm.SwapDirection
	AmountIn    uint64
	AmountOut   uint64
	Quoted      amm.SwapResult
	Vault       amm.Vault
}

// InitMarket создаёт рынок и вносит начальную ликвидность. ownerX и ownerY
// подписывают перевод со своих ATA, payer оплачивает ренту и комиссию.
func (c *Client) InitMarket(
	ctx context.Context,
	payer, ownerX, ownerY *wallet.Wallet,
	mintX, mintY solana.PublicKey,
	amountX, amountY uint64,
) (solana.Signature, error) {
	addrs, err := c.Addresses(mintX, mintY)
	if err != nil {
		return solana.Signature{}, err
	}
	log := c.logger.With(addrs.Fields()...)

	userX, err := ownerX.GetATA(mintX)
	if err != nil {
		return solana.Signature{}, err
	}
	userY, err := ownerY.GetATA(mintY)
	if err != nil {
		return solana.Signature{}, err
	}

	ix, err := amm.NewInitMarketInstruction(c.programID, amm.InitMarketAccounts{
		OwnerX:     ownerX.PublicKey,
		OwnerY:     ownerY.PublicKey,
		Payer:      payer.PublicKey,
		UserTokenX: userX,
		UserTokenY: userY,
		MintX:      mintX,
		MintY:      mintY,
	}, amountX, amountY)
	if err != nil {
		return solana.Signature{}, err
	}

	unlock := c.lockMarket(addrs.Vault)
	defer unlock()

	sig, err := c.buildAndSubmitTransaction(ctx, payer, []*wallet.Wallet{ownerX, ownerY}, []solana.Instruction{ix})
	if err != nil {
		log.Error("InitMarket failed", zap.String("signature", sig.String()), zap.Error(err))
		return sig, fmt.Errorf("init market: %w", err)
	}

	log.Info("Market initialized",
		zap.String("signature", sig.String()),
		zap.Uint64("amount_x", amountX),
		zap.Uint64("amount_y", amountY))
	c.publish(events.MarketInitializedEvent{
		BaseEvent: events.NewBase(events.MarketInitialized),
		Vault:     addrs.Vault,
		MintX:     mintX,
		MintY:     mintY,
		AmountX:   amountX,
		AmountY:   amountY,
		Signature: sig,
	})
	return sig, nil
}

// Swap обменивает amount токена mintIn. Сначала считается котировка: если
// выход ниже minAmountOut, транзакция не отправляется. Держатель выходного
// токена пользователя создаётся в той же транзакции, если его нет.
func (c *Client) Swap(
	ctx context.Context,
	user *wallet.Wallet,
	mintX, mintY, mintIn solana.PublicKey,
	amount, minAmountOut uint64,
) (*SwapReceipt, error) {
	addrs, err := c.Addresses(mintX, mintY)
	if err != nil {
		return nil, err
	}
	opID := uuid.New().String()
	log := c.logger.With(addrs.Fields()...).With(
		zap.String("operation_id", opID),
		zap.String("trader", user.PublicKey.String()),
		zap.Uint64("amount", amount))

	fail := func(err error) (*SwapReceipt, error) {
		log.Warn("Swap failed", zap.Error(err))
		c.publish(events.SwapFailedEvent{
			BaseEvent:   events.NewBase(events.SwapFailed),
			Vault:       addrs.Vault,
			Trader:      user.PublicKey,
			MintIn:      mintIn,
			Amount:      amount,
			Code:        ErrorCode(err),
			Err:         err,
			OperationID: opID,
		})
		return nil, fmt.Errorf("swap: %w", err)
	}

	unlock := c.lockMarket(addrs.Vault)
	defer unlock()

	quote, err := c.quote(ctx, addrs, mintIn, amount)
	if err != nil {
		return fail(err)
	}
	if quote.AmountOut < minAmountOut {
		return fail(&SlippageExceededError{Amount: amount, Quoted: quote.AmountOut, MinAmountOut: minAmountOut})
	}
	direction, _ := amm.NewSwapDirection(mintIn, mintX, mintY)

	userX, err := user.GetATA(mintX)
	if err != nil {
		return fail(err)
	}
	userY, err := user.GetATA(mintY)
	if err != nil {
		return fail(err)
	}
	mintOut, userOut := mintY, userY
	if direction == amm.YToX {
		mintOut, userOut = mintX, userX
	}
	before, err := c.TokenBalance(ctx, userOut)
	if err != nil {
		return fail(err)
	}

	createOut, _, err := wallet.CreateATAIdempotentInstruction(user.PublicKey, user.PublicKey, mintOut)
	if err != nil {
		return fail(err)
	}
	swapIx, err := amm.NewSwapInstruction(c.programID, amm.SwapAccounts{
		User:       user.PublicKey,
		UserTokenX: userX,
		UserTokenY: userY,
		MintX:      mintX,
		MintY:      mintY,
	}, amount, mintIn)
	if err != nil {
		return fail(err)
	}

	sig, err := c.buildAndSubmitTransaction(ctx, user, nil, []solana.Instruction{createOut, swapIx})
	if err != nil {
		return fail(err)
	}

	vault, err := c.fetchVault(ctx, addrs)
	if err != nil {
		return nil, fmt.Errorf("swap %s confirmed, vault read failed: %w", sig, err)
	}
	after, err := c.TokenBalance(ctx, userOut)
	if err != nil {
		return nil, fmt.Errorf("swap %s confirmed, balance read failed: %w", sig, err)
	}

	receipt := &SwapReceipt{
		OperationID: opID,
		Signature:   sig,
		Direction:   direction,
		AmountIn:    amount,
		AmountOut:   after - before,
		Quoted:      quote,
		Vault:       vault,
	}
	log.Info("Swap executed",
		zap.String("signature", sig.String()),
		zap.String("direction", direction.String()),
		zap.Uint64("amount_out", receipt.AmountOut),
		zap.Stringer("vault_state", vault))
	c.publish(events.SwapExecutedEvent{
		BaseEvent:   events.NewBase(events.SwapExecuted),
		Vault:       addrs.Vault,
		Trader:      user.PublicKey,
		MintIn:      mintIn,
		AmountIn:    amount,
		AmountOut:   receipt.AmountOut,
		ReserveX:    vault.TokenXAmount,
		ReserveY:    vault.TokenYAmount,
		Signature:   sig,
		OperationID: opID,
	})
	return receipt, nil
}

// EnsureAssociatedAccount создаёт ATA владельца для mint, если его ещё нет,
// и возвращает его адрес.
func (c *Client) EnsureAssociatedAccount(ctx context.Context, payer *wallet.Wallet, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ix, ata, err := wallet.CreateATAIdempotentInstruction(payer.PublicKey, owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	acc, err := c.chain.GetAccountInfo(ctx, ata)
	switch {
	case errors.Is(err, blockchain.ErrAccountNotFound):
	case err != nil:
		return solana.PublicKey{}, err
	case !acc.IsEmpty():
		state, err := decodeTokenAccount(acc)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("associated account %s: %w", ata, err)
		}
		if state.Owner.Equals(owner) && state.Mint.Equals(mint) {
			return ata, nil
		}
	}

	sig, err := c.buildAndSubmitTransaction(ctx, payer, nil, []solana.Instruction{ix})
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("create associated account %s: %w", ata, err)
	}
	c.logger.Debug("Associated account ensured",
		zap.String("ata", ata.String()),
		zap.String("owner", owner.String()),
		zap.String("signature", sig.String()))
	return ata, nil
}
