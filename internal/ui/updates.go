package ui

import (
	"context"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/events"
)

// Feed доставляет сообщения в программу bubbletea, не блокируя отправителя.
type Feed struct {
	msgChan        chan tea.Msg
	droppedUpdates uint64
	sentUpdates    uint64
	logger         *zap.Logger
	statsInterval  time.Duration
	stopStats      chan struct{}
	subs           []events.Subscription
}

// NewFeed creates a feed with the given buffer size.
func NewFeed(buffer int, logger *zap.Logger) *Feed {
	f := &Feed{
		msgChan:       make(chan tea.Msg, buffer),
		logger:        logger.Named("ui_feed"),
		statsInterval: 30 * time.Second,
		stopStats:     make(chan struct{}),
	}
	go f.logStats()
	return f
}

// Send ставит сообщение в очередь. При полном буфере сообщение отбрасывается.
func (f *Feed) Send(msg tea.Msg) bool {
	select {
	case f.msgChan <- msg:
		atomic.AddUint64(&f.sentUpdates, 1)
		return true
	default:
		atomic.AddUint64(&f.droppedUpdates, 1)
		return false
	}
}

// Listen returns a command that waits for the next feed message.
func (f *Feed) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-f.msgChan
	}
}

// Attach подписывает throttler на события рынка: каждое событие помечает
// снимок устаревшим.
func (f *Feed) Attach(bus *events.Bus, throttler *SnapshotThrottler) {
	notify := func(_ context.Context, _ events.Event) error {
		throttler.Notify()
		return nil
	}
	for _, t := range []events.EventType{
		events.MarketInitialized,
		events.SwapExecuted,
		events.SwapFailed,
		events.AuditCompleted,
		events.InvariantViolated,
	} {
		f.subs = append(f.subs, bus.SubscribeFunc(t, notify))
	}
}

// GetStats returns current statistics
func (f *Feed) GetStats() (sent, dropped uint64) {
	return atomic.LoadUint64(&f.sentUpdates), atomic.LoadUint64(&f.droppedUpdates)
}

func (f *Feed) logStats() {
	ticker := time.NewTicker(f.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sent, dropped := f.GetStats()
			if dropped > 0 {
				f.logger.Warn("UI update statistics",
					zap.Uint64("sent", sent),
					zap.Uint64("dropped", dropped),
					zap.Float64("drop_rate", float64(dropped)/float64(sent+dropped)*100))
			}
		case <-f.stopStats:
			return
		}
	}
}

// Close отписывается от шины и останавливает статистику.
func (f *Feed) Close() {
	for _, sub := range f.subs {
		sub.Unsubscribe()
	}
	f.subs = nil
	close(f.stopStats)
}
