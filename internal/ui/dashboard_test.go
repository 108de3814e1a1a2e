package ui

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
	"github.com/rovshanmuradov/solana-amm/internal/events"
	"github.com/rovshanmuradov/solana-amm/internal/logger"
	"github.com/rovshanmuradov/solana-amm/internal/monitor"
	"github.com/rovshanmuradov/solana-amm/internal/simulation"
)

type dashboardFixture struct {
	bus      *events.Bus
	services *Services
	feed     *Feed
	dash     *Dashboard
	vault    solana.PublicKey
	mintX    solana.PublicKey
	mintY    solana.PublicKey
}

func newDashboardFixture(t *testing.T) *dashboardFixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	bus := events.NewBus(log, 64)
	history, err := monitor.NewHistory(50, "", log)
	require.NoError(t, err)
	mon := monitor.NewInvariantMonitor(bus, history, log)
	mon.Start()

	buffer := logger.NewLogBuffer(10)
	buffer.Add("info", "market seeded", nil)
	buffer.Add("debug", "hidden by default", nil)

	services := &Services{
		ProgramID: amm.ProgramID,
		Mode:      "simulate",
		Monitor:   mon,
		History:   history,
		Logs:      buffer,
		Refresh:   time.Millisecond,
	}
	feed := NewFeed(16, log)
	t.Cleanup(func() {
		mon.Stop()
		feed.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	})

	f := &dashboardFixture{
		bus:      bus,
		services: services,
		feed:     feed,
		dash:     NewDashboard(services, feed, nil),
		vault:    solana.NewWallet().PublicKey(),
		mintX:    solana.NewWallet().PublicKey(),
		mintY:    solana.NewWallet().PublicKey(),
	}
	f.dash.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	return f
}

func (f *dashboardFixture) publish(t *testing.T, e events.Event) {
	t.Helper()
	require.NoError(t, f.bus.PublishSync(context.Background(), e))
}

func (f *dashboardFixture) seed(t *testing.T) {
	f.publish(t, events.MarketInitializedEvent{
		BaseEvent: events.NewBase(events.MarketInitialized),
		Vault:     f.vault, MintX: f.mintX, MintY: f.mintY,
		AmountX: 1000, AmountY: 1000,
	})
	f.publish(t, events.SwapExecutedEvent{
		BaseEvent: events.NewBase(events.SwapExecuted),
		Vault:     f.vault, Trader: solana.NewWallet().PublicKey(), MintIn: f.mintX,
		AmountIn: 100, AmountOut: 91, ReserveX: 1100, ReserveY: 909,
	})
	f.publish(t, events.SwapFailedEvent{
		BaseEvent: events.NewBase(events.SwapFailed),
		Vault:     f.vault, Trader: solana.NewWallet().PublicKey(), MintIn: f.mintY,
		Amount: 5, Code: "InsufficientLiquidity",
	})
}

func TestDashboard_WaitingForMarket(t *testing.T) {
	f := newDashboardFixture(t)
	view := f.dash.View()
	assert.Contains(t, view, "waiting for market")
	assert.Contains(t, view, "simulate")
}

func TestDashboard_Snapshot(t *testing.T) {
	f := newDashboardFixture(t)
	f.seed(t)

	_, cmd := f.dash.Update(f.services.Snapshot())
	assert.NotNil(t, cmd, "dashboard keeps listening to the feed")

	view := f.dash.View()
	assert.Contains(t, view, "1100")
	assert.Contains(t, view, "909")
	assert.Contains(t, view, "999_900")
	assert.Contains(t, view, "X→Y ok")
	assert.Contains(t, view, "InsufficientLiquidity")
	assert.Contains(t, view, "swaps 2")
	assert.Contains(t, view, "not audited")
	assert.Equal(t, 2, f.dash.swaps.RowCount())
}

func TestDashboard_AuditAlert(t *testing.T) {
	f := newDashboardFixture(t)
	f.seed(t)
	f.publish(t, events.AuditCompletedEvent{
		BaseEvent: events.NewBase(events.AuditCompleted),
		Vault:     f.vault, VaultX: 1100, VaultY: 909, HolderX: 1100, HolderY: 914,
	})

	f.dash.Update(f.services.Snapshot())
	view := f.dash.View()
	assert.Contains(t, view, "unbalanced")
	assert.Contains(t, view, string(monitor.AlertVaultSurplus))
	assert.Contains(t, view, "1 alerts")
}

func TestDashboard_Keys(t *testing.T) {
	f := newDashboardFixture(t)
	f.seed(t)
	f.dash.Update(f.services.Snapshot())

	f.dash.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusLogs, f.dash.focus)
	f.dash.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	f.dash.Update(tickMsg(time.Now()))
	assert.Contains(t, f.dash.View(), "hidden by default")

	f.dash.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 0, f.dash.selected, "single market")

	_, cmd := f.dash.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestDashboard_SimulationDone(t *testing.T) {
	f := newDashboardFixture(t)
	f.seed(t)

	report := &simulation.Report{
		RunID:        "run",
		Swaps:        2,
		Failed:       1,
		Failures:     map[string]int{"InsufficientLiquidity": 1},
		StartProduct: big.NewInt(1_000_000),
		EndProduct:   big.NewInt(999_900),
	}
	f.dash.Update(SimulationDoneMsg{Report: report})
	view := f.dash.View()
	assert.False(t, f.dash.header.Running)
	assert.Contains(t, view, "finished")
	assert.Contains(t, view, "K held")
	assert.Contains(t, view, "InsufficientLiquidity=1")

	f.dash.Update(SimulationDoneMsg{Err: errors.New("boom")})
	assert.Contains(t, f.dash.View(), "boom")
}

func TestFormatProduct(t *testing.T) {
	assert.Equal(t, "-", formatProduct(nil))
	assert.Equal(t, "999", formatProduct(big.NewInt(999)))
	assert.Equal(t, "1_000_000", formatProduct(big.NewInt(1_000_000)))
}
