package market

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain/localnet"
	"github.com/rovshanmuradov/solana-amm/internal/events"
	"github.com/rovshanmuradov/solana-amm/internal/wallet"
)

type ledgerFixture struct {
	t      *testing.T
	bank   *localnet.Bank
	bus    *recorder
	client *Client
	lp     *wallet.Wallet
	mintX  solana.PublicKey
	mintY  solana.PublicKey
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	bank := localnet.NewBank(logger)
	bank.RegisterProgram(amm.ProgramID, amm.NewProcessor(logger))

	authority := solana.NewWallet().PublicKey()
	mintX, err := bank.CreateMint(authority, 6)
	require.NoError(t, err)
	mintY, err := bank.CreateMint(authority, 6)
	require.NoError(t, err)

	lp := wallet.NewRandom()
	bank.Airdrop(lp.PublicKey, 10_000_000_000)
	_, err = bank.MintTo(mintX, lp.PublicKey, 1000)
	require.NoError(t, err)
	_, err = bank.MintTo(mintY, lp.PublicKey, 1000)
	require.NoError(t, err)

	bus := &recorder{}
	return &ledgerFixture{
		t:      t,
		bank:   bank,
		bus:    bus,
		client: New(bank, amm.ProgramID, logger, bus),
		lp:     lp,
		mintX:  mintX,
		mintY:  mintY,
	}
}

func (f *ledgerFixture) trader(balanceX uint64) *wallet.Wallet {
	f.t.Helper()
	w := wallet.NewRandom()
	f.bank.Airdrop(w.PublicKey, 1_000_000_000)
	_, err := f.bank.MintTo(f.mintX, w.PublicKey, balanceX)
	require.NoError(f.t, err)
	return w
}

func (f *ledgerFixture) initMarket() *Addresses {
	f.t.Helper()
	_, err := f.client.InitMarket(context.Background(), f.lp, f.lp, f.lp, f.mintX, f.mintY, 1000, 1000)
	require.NoError(f.t, err)
	addrs, err := f.client.Addresses(f.mintX, f.mintY)
	require.NoError(f.t, err)
	return addrs
}

func TestLedger_InitAndSwap(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	addrs := f.initMarket()

	vault, err := f.client.FetchVault(ctx, f.mintX, f.mintY)
	require.NoError(t, err)
	assert.Equal(t, amm.Vault{TokenXAmount: 1000, TokenYAmount: 1000}, vault)
	require.Len(t, f.bus.byType(events.MarketInitialized), 1)

	trader := f.trader(100)
	receipt, err := f.client.Swap(ctx, trader, f.mintX, f.mintY, f.mintX, 100, 91)
	require.NoError(t, err)
	assert.Equal(t, uint64(91), receipt.AmountOut)
	assert.Equal(t, amm.Vault{TokenXAmount: 1100, TokenYAmount: 909}, receipt.Vault)

	traderY, err := trader.GetATA(f.mintY)
	require.NoError(t, err)
	balance, err := f.bank.TokenBalance(traderY)
	require.NoError(t, err)
	assert.Equal(t, uint64(91), balance)

	report, err := f.client.Audit(ctx, f.mintX, f.mintY)
	require.NoError(t, err)
	assert.True(t, report.Balanced())
	assert.Equal(t, uint64(1100), report.HolderX)
	assert.Equal(t, addrs.Vault, report.Addresses.Vault)

	// обратный свап полученных токенов
	back, err := f.client.Swap(ctx, trader, f.mintX, f.mintY, f.mintY, 91, 0)
	require.NoError(t, err)
	assert.Equal(t, amm.YToX, back.Direction)
	assert.Equal(t, back.Quoted.AmountOut, back.AmountOut)
	assert.LessOrEqual(t, back.AmountOut, uint64(100))

	executed := f.bus.byType(events.SwapExecuted)
	require.Len(t, executed, 2)
	assert.Equal(t, uint64(909), executed[0].(events.SwapExecutedEvent).ReserveY)
}

func TestLedger_InitMarketTwice(t *testing.T) {
	f := newLedgerFixture(t)
	f.initMarket()

	_, err := f.bank.MintTo(f.mintX, f.lp.PublicKey, 10)
	require.NoError(t, err)
	_, err = f.bank.MintTo(f.mintY, f.lp.PublicKey, 10)
	require.NoError(t, err)

	_, err = f.client.InitMarket(context.Background(), f.lp, f.lp, f.lp, f.mintX, f.mintY, 10, 10)
	code, ok := amm.CodeOf(err)
	require.True(t, ok, "unexpected error: %v", err)
	assert.Equal(t, amm.AccountAlreadyInitialized, code)
	assert.Len(t, f.bus.byType(events.MarketInitialized), 1)
}

func TestLedger_AuditFindings(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	addrs := f.initMarket()

	// прямой перевод в держатель пула не учитывается хранилищем
	holder, err := f.bank.MintTo(f.mintY, addrs.OwnerY, 5)
	require.NoError(t, err)
	require.Equal(t, addrs.HolderY, holder)

	report, err := f.client.Audit(ctx, f.mintX, f.mintY)
	require.NoError(t, err)
	assert.False(t, report.Balanced())
	assert.False(t, report.Deficit())
	assert.Equal(t, uint64(5), report.SurplusY())
	assert.Zero(t, report.SurplusX())
	assert.Contains(t, report.String(), "surplus")

	require.NoError(t, f.bank.SetTokenAccount(addrs.HolderX, f.mintX, addrs.OwnerX, 10))
	report, err = f.client.Audit(ctx, f.mintX, f.mintY)
	require.NoError(t, err)
	assert.True(t, report.Deficit())
	assert.Contains(t, report.String(), "deficit")

	audits := f.bus.byType(events.AuditCompleted)
	require.Len(t, audits, 2)
	assert.False(t, audits[1].(events.AuditCompletedEvent).Balanced)
}

func TestLedger_SwapFailures(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.initMarket()

	poor := f.trader(0)
	before, ok := f.bank.Account(poor.PublicKey)
	require.True(t, ok)

	_, err := f.client.Swap(ctx, poor, f.mintX, f.mintY, f.mintX, 50, 0)
	require.ErrorIs(t, err, blockchain.ErrInsufficientFunds)

	after, ok := f.bank.Account(poor.PublicKey)
	require.True(t, ok)
	assert.Less(t, after.Lamports, before.Lamports, "fee is charged for failed transactions")

	vault, err := f.client.FetchVault(ctx, f.mintX, f.mintY)
	require.NoError(t, err)
	assert.Equal(t, amm.Vault{TokenXAmount: 1000, TokenYAmount: 1000}, vault)

	failed := f.bus.byType(events.SwapFailed)
	require.Len(t, failed, 1)
	assert.Empty(t, failed[0].(events.SwapFailedEvent).Code)

	_, err = f.client.Swap(ctx, f.trader(10), f.mintX, solana.NewWallet().PublicKey(), f.mintX, 10, 0)
	assert.ErrorIs(t, err, ErrMarketNotFound)
}

func TestLedger_EnsureAssociatedAccount(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()

	ata, err := f.client.EnsureAssociatedAccount(ctx, f.lp, owner, f.mintX)
	require.NoError(t, err)
	expected, _, err := solana.FindAssociatedTokenAddress(owner, f.mintX)
	require.NoError(t, err)
	assert.Equal(t, expected, ata)

	balance, err := f.bank.TokenBalance(ata)
	require.NoError(t, err)
	assert.Zero(t, balance)

	slot := f.bank.Slot()
	again, err := f.client.EnsureAssociatedAccount(ctx, f.lp, owner, f.mintX)
	require.NoError(t, err)
	assert.Equal(t, ata, again)
	assert.Equal(t, slot, f.bank.Slot(), "existing account must not trigger a transaction")
}
