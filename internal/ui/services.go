package ui

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-amm/internal/logger"
	"github.com/rovshanmuradov/solana-amm/internal/monitor"
)

// swapRows сколько последних свапов рынка держит снимок.
const swapRows = 200

// Services даёт дашборду доступ к монитору, истории и логам процесса.
type Services struct {
	ProgramID solana.PublicKey
	Mode      string
	Monitor   *monitor.InvariantMonitor
	History   *monitor.History
	Logs      *logger.LogBuffer
	Refresh   time.Duration
}

// Snapshot собирает SnapshotMsg из текущего состояния монитора.
func (s *Services) Snapshot() SnapshotMsg {
	snap := s.Monitor.Snapshot()
	swaps := make(map[solana.PublicKey][]monitor.SwapRecord, len(snap.Markets))
	for _, m := range snap.Markets {
		swaps[m.Vault] = s.History.Recent(m.Vault, swapRows)
	}
	return SnapshotMsg{Snapshot: snap, Swaps: swaps, Taken: time.Now()}
}
