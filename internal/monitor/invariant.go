package monitor

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/events"
)

type marketState struct {
	mintX    solana.PublicKey
	mintY    solana.PublicKey
	reserveX uint64
	reserveY uint64
	product  *big.Int
	audited  bool
	balanced bool
}

// MarketSnapshot is the monitor's view of one market.
type MarketSnapshot struct {
	Vault    solana.PublicKey
	MintX    solana.PublicKey
	MintY    solana.PublicKey
	ReserveX uint64
	ReserveY uint64
	Product  *big.Int
	Stats    Statistics
	Audited  bool
	Balanced bool
}

// Snapshot состояние монитора для отображения.
type Snapshot struct {
	Markets []MarketSnapshot
	Alerts  []Alert
}

// InvariantMonitor follows market events, checks that the reserve product
// never rises across swaps and turns unbalanced audits into alerts.
type InvariantMonitor struct {
	bus     *events.Bus
	history *History
	alerts  *AlertManager
	logger  *zap.Logger

	mu      sync.RWMutex
	markets map[solana.PublicKey]*marketState
	subs    []events.Subscription
}

// NewInvariantMonitor создаёт монитор. Подписка выполняется в Start.
func NewInvariantMonitor(bus *events.Bus, history *History, logger *zap.Logger) *InvariantMonitor {
	named := logger.Named("invariant_monitor")
	return &InvariantMonitor{
		bus:     bus,
		history: history,
		alerts:  NewAlertManager(100, named),
		logger:  named,
		markets: make(map[solana.PublicKey]*marketState),
	}
}

// Start subscribes the monitor to market events.
func (m *InvariantMonitor) Start() {
	m.subs = append(m.subs,
		m.bus.SubscribeFunc(events.MarketInitialized, m.onMarketInitialized),
		m.bus.SubscribeFunc(events.SwapExecuted, m.onSwapExecuted),
		m.bus.SubscribeFunc(events.SwapFailed, m.onSwapFailed),
		m.bus.SubscribeFunc(events.AuditCompleted, m.onAuditCompleted),
	)
	m.logger.Debug("Invariant monitor started")
}

// Stop отписывает монитор от шины.
func (m *InvariantMonitor) Stop() {
	for _, sub := range m.subs {
		sub.Unsubscribe()
	}
	m.subs = nil
}

// Alerts returns the alert manager of the monitor.
func (m *InvariantMonitor) Alerts() *AlertManager {
	return m.alerts
}

func (m *InvariantMonitor) market(vault solana.PublicKey) *marketState {
	st, ok := m.markets[vault]
	if !ok {
		st = &marketState{}
		m.markets[vault] = st
	}
	return st
}

func (m *InvariantMonitor) onMarketInitialized(_ context.Context, e events.Event) error {
	ev, ok := e.(events.MarketInitializedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", e)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.market(ev.Vault)
	st.mintX, st.mintY = ev.MintX, ev.MintY
	st.reserveX, st.reserveY = ev.AmountX, ev.AmountY
	st.product = product(ev.AmountX, ev.AmountY)
	return nil
}

func (m *InvariantMonitor) onSwapExecuted(_ context.Context, e events.Event) error {
	ev, ok := e.(events.SwapExecutedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", e)
	}

	k := product(ev.ReserveX, ev.ReserveY)

	m.mu.Lock()
	st := m.market(ev.Vault)
	prev := st.product
	st.reserveX, st.reserveY, st.product = ev.ReserveX, ev.ReserveY, k
	mintX := st.mintX
	m.mu.Unlock()

	if err := m.history.Record(SwapRecord{
		Timestamp: ev.Timestamp(),
		Vault:     ev.Vault,
		Trader:    ev.Trader,
		MintIn:    ev.MintIn,
		AmountIn:  ev.AmountIn,
		AmountOut: ev.AmountOut,
		ReserveX:  ev.ReserveX,
		ReserveY:  ev.ReserveY,
		Success:   true,
		Signature: ev.Signature,
	}, mintX); err != nil {
		m.logger.Warn("Failed to record swap", zap.Error(err))
	}

	if prev != nil && k.Cmp(prev) > 0 {
		m.violation(ev.Vault, AlertProductIncreased, SeverityCritical,
			fmt.Sprintf("reserve product rose from %s to %s", prev, k))
	}
	return nil
}

func (m *InvariantMonitor) onSwapFailed(_ context.Context, e events.Event) error {
	ev, ok := e.(events.SwapFailedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", e)
	}

	m.mu.RLock()
	var mintX solana.PublicKey
	if st, ok := m.markets[ev.Vault]; ok {
		mintX = st.mintX
	}
	m.mu.RUnlock()

	code := ev.Code
	if code == "" {
		code = "host"
	}
	return m.history.Record(SwapRecord{
		Timestamp: ev.Timestamp(),
		Vault:     ev.Vault,
		Trader:    ev.Trader,
		MintIn:    ev.MintIn,
		AmountIn:  ev.Amount,
		Code:      code,
	}, mintX)
}

func (m *InvariantMonitor) onAuditCompleted(_ context.Context, e events.Event) error {
	ev, ok := e.(events.AuditCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", e)
	}

	m.mu.Lock()
	st := m.market(ev.Vault)
	st.audited, st.balanced = true, ev.Balanced
	m.mu.Unlock()

	switch {
	case ev.Balanced:
	case ev.HolderX < ev.VaultX || ev.HolderY < ev.VaultY:
		m.violation(ev.Vault, AlertVaultDeficit, SeverityCritical,
			fmt.Sprintf("holders x=%d y=%d below vault x=%d y=%d", ev.HolderX, ev.HolderY, ev.VaultX, ev.VaultY))
	default:
		m.violation(ev.Vault, AlertVaultSurplus, SeverityWarning,
			fmt.Sprintf("holders x=%d y=%d above vault x=%d y=%d", ev.HolderX, ev.HolderY, ev.VaultX, ev.VaultY))
	}
	return nil
}

func (m *InvariantMonitor) violation(vault solana.PublicKey, typ AlertType, severity, detail string) {
	alert := m.alerts.Trigger(typ, vault, severity, detail)
	if err := m.bus.Publish(events.InvariantViolatedEvent{
		BaseEvent: events.NewBase(events.InvariantViolated),
		Vault:     vault,
		Reason:    string(alert.Type),
		Detail:    detail,
	}); err != nil {
		m.logger.Warn("Failed to publish invariant violation", zap.Error(err))
	}
}

// Snapshot returns markets sorted by vault address and the recent alerts.
func (m *InvariantMonitor) Snapshot() Snapshot {
	m.mu.RLock()
	markets := make([]MarketSnapshot, 0, len(m.markets))
	for vault, st := range m.markets {
		ms := MarketSnapshot{
			Vault:    vault,
			MintX:    st.mintX,
			MintY:    st.mintY,
			ReserveX: st.reserveX,
			ReserveY: st.reserveY,
			Audited:  st.audited,
			Balanced: st.balanced,
		}
		if st.product != nil {
			ms.Product = new(big.Int).Set(st.product)
		}
		markets = append(markets, ms)
	}
	m.mu.RUnlock()

	for i := range markets {
		markets[i].Stats = m.history.Statistics(markets[i].Vault)
	}
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].Vault.String() < markets[j].Vault.String()
	})
	return Snapshot{Markets: markets, Alerts: m.alerts.GetRecentAlerts(20)}
}

func product(x, y uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(x), new(big.Int).SetUint64(y))
}
