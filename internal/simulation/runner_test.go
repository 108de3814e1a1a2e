package simulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain/localnet"
	"github.com/rovshanmuradov/solana-amm/internal/config"
	"github.com/rovshanmuradov/solana-amm/internal/events"
	"github.com/rovshanmuradov/solana-amm/internal/market"
	"github.com/rovshanmuradov/solana-amm/internal/monitor"
)

func newRunner(t *testing.T, cfg config.SimulationConfig, bus events.Publisher) (*Runner, *localnet.Bank) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	bank := localnet.NewBank(logger)
	bank.RegisterProgram(amm.ProgramID, amm.NewProcessor(logger))
	client := market.New(bank, amm.ProgramID, logger, bus)
	return NewRunner(bank, client, cfg, logger), bank
}

func TestRunner_Run(t *testing.T) {
	cfg := config.SimulationConfig{
		Traders:        3,
		SwapsPerTrader: 10,
		SeedX:          100_000,
		SeedY:          100_000,
		TraderBalance:  10_000,
		MaxSwap:        2_000,
		RandomSeed:     42,
	}
	runner, bank := newRunner(t, cfg, nil)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 30, report.Swaps)
	assert.True(t, report.ProductHeld(), report.String())
	assert.True(t, report.StartProduct.Sign() > 0)
	assert.True(t, report.Audit.Balanced(), report.Audit.String())
	assert.Equal(t, amm.Vault{TokenXAmount: 100_000, TokenYAmount: 100_000}, report.StartVault)

	holderX, err := bank.TokenBalance(report.Market.Addresses.HolderX)
	require.NoError(t, err)
	assert.Equal(t, report.EndVault.TokenXAmount, holderX)

	failed := 0
	for _, code := range report.FailureCodes() {
		failed += report.Failures[code]
	}
	assert.Equal(t, report.Failed, failed)
}

func TestRunner_DrainedTradersAreCounted(t *testing.T) {
	cfg := config.SimulationConfig{
		Traders:        2,
		SwapsPerTrader: 8,
		SeedX:          1_000,
		SeedY:          1_000,
		TraderBalance:  300,
		MaxSwap:        300,
		RandomSeed:     7,
	}
	runner, _ := newRunner(t, cfg, nil)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16, report.Swaps)
	assert.True(t, report.ProductHeld(), report.String())
	for _, code := range report.FailureCodes() {
		assert.Contains(t, []string{"InsufficientFunds", "InsufficientLiquidity"}, code)
	}
}

func TestRunner_FeedsMonitor(t *testing.T) {
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, 256)
	history, err := monitor.NewHistory(100, "", logger)
	require.NoError(t, err)
	mon := monitor.NewInvariantMonitor(bus, history, logger)
	mon.Start()
	defer mon.Stop()

	cfg := config.SimulationConfig{
		Traders:        2,
		SwapsPerTrader: 5,
		SeedX:          50_000,
		SeedY:          50_000,
		TraderBalance:  5_000,
		MaxSwap:        1_000,
		RandomSeed:     3,
	}
	runner, _ := newRunner(t, cfg, bus)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))

	snap := mon.Snapshot()
	require.Len(t, snap.Markets, 1)
	ms := snap.Markets[0]
	assert.Equal(t, report.Market.Addresses.Vault, ms.Vault)
	assert.Equal(t, report.EndVault.TokenXAmount, ms.ReserveX)
	assert.Equal(t, report.EndVault.TokenYAmount, ms.ReserveY)
	assert.Equal(t, report.Swaps, ms.Stats.TotalSwaps)
	assert.True(t, ms.Audited)
	assert.True(t, ms.Balanced)
	assert.Empty(t, snap.Alerts)
}

func TestRunner_Cancelled(t *testing.T) {
	cfg := config.SimulationConfig{
		Traders:        2,
		SwapsPerTrader: 5,
		SeedX:          1_000,
		SeedY:          1_000,
		TraderBalance:  100,
		MaxSwap:        10,
	}
	runner, _ := newRunner(t, cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx)
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		wantFatal bool
	}{
		{name: "success"},
		{name: "program error", err: &blockchain.TransactionError{Index: 1, Err: amm.InsufficientLiquidity}, wantCode: "InsufficientLiquidity"},
		{name: "slippage", err: &market.SlippageExceededError{Quoted: 1, MinAmountOut: 2}, wantCode: "SlippageExceeded"},
		{name: "drained", err: &blockchain.TransactionError{Index: 1, Err: blockchain.ErrInsufficientFunds}, wantCode: "InsufficientFunds"},
		{name: "host error", err: errors.New("connection refused"), wantFatal: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, fatal := classify(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantFatal, fatal != nil)
		})
	}
}
