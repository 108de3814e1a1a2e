package ui

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// SnapshotThrottler ограничивает частоту снимков для UI. События между
// снимками схлопываются в один отложенный снимок, который отправляет
// FlushPending.
type SnapshotThrottler struct {
	mu         sync.Mutex
	interval   time.Duration
	lastUpdate time.Time
	pending    bool
	build      func() SnapshotMsg
	feed       *Feed
	logger     *zap.Logger

	coalesced uint64
	sent      uint64
}

// NewSnapshotThrottler creates a throttler sending at most one snapshot per
// interval to feed.
func NewSnapshotThrottler(interval time.Duration, build func() SnapshotMsg, feed *Feed, logger *zap.Logger) *SnapshotThrottler {
	return &SnapshotThrottler{
		interval: interval,
		build:    build,
		feed:     feed,
		logger:   logger.Named("snapshot_throttler"),
	}
}

// Notify сообщает об изменении состояния. Снимок отправляется сразу, если
// интервал истёк, иначе откладывается.
func (st *SnapshotThrottler) Notify() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if time.Since(st.lastUpdate) < st.interval {
		st.pending = true
		st.coalesced++
		return
	}
	st.sendLocked()
}

// FlushPending sends the deferred snapshot once the interval has passed.
// The dashboard calls it on every tick.
func (st *SnapshotThrottler) FlushPending() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.pending || time.Since(st.lastUpdate) < st.interval {
		return
	}
	st.sendLocked()
}

func (st *SnapshotThrottler) sendLocked() {
	if !st.feed.Send(st.build()) {
		st.pending = true
		st.logger.Debug("Feed full, snapshot kept pending")
		return
	}
	st.lastUpdate = time.Now()
	st.pending = false
	st.sent++
}

// HasPendingUpdate reports whether a snapshot is waiting for the interval.
func (st *SnapshotThrottler) HasPendingUpdate() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.pending
}

// GetStats returns sent and coalesced counters.
func (st *SnapshotThrottler) GetStats() (sent, coalesced uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sent, st.coalesced
}
