package ui

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-amm/internal/monitor"
	"github.com/rovshanmuradov/solana-amm/internal/simulation"
)

// Tea message types for UI communication

// SnapshotMsg состояние монитора и последние свапы по каждому рынку.
type SnapshotMsg struct {
	Snapshot monitor.Snapshot
	Swaps    map[solana.PublicKey][]monitor.SwapRecord
	Taken    time.Time
}

// SimulationDoneMsg приходит, когда прогон симуляции завершился.
type SimulationDoneMsg struct {
	Report *simulation.Report
	Err    error
}

// ErrorMsg represents error conditions
type ErrorMsg struct {
	Error error
	Title string
}

type tickMsg time.Time
