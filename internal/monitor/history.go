package monitor

import (
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/logger"
)

// SwapRecord одна запись истории свапов рынка.
type SwapRecord struct {
	Timestamp time.Time
	Vault     solana.PublicKey
	Trader    solana.PublicKey
	MintIn    solana.PublicKey
	AmountIn  uint64
	AmountOut uint64
	ReserveX  uint64
	ReserveY  uint64
	Success   bool
	Code      string
	Signature solana.Signature
}

// Product returns ReserveX*ReserveY of a successful record.
func (r SwapRecord) Product() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(r.ReserveX), new(big.Int).SetUint64(r.ReserveY))
}

// CSVHeaders заголовок файла экспорта.
func CSVHeaders() []string {
	return []string{"timestamp", "vault", "trader", "mint_in", "amount_in", "amount_out", "reserve_x", "reserve_y", "success", "code", "signature"}
}

// ToCSV converts the record to a CSV row matching CSVHeaders.
func (r SwapRecord) ToCSV() []string {
	return []string{
		r.Timestamp.Format(time.RFC3339Nano),
		r.Vault.String(),
		r.Trader.String(),
		r.MintIn.String(),
		strconv.FormatUint(r.AmountIn, 10),
		strconv.FormatUint(r.AmountOut, 10),
		strconv.FormatUint(r.ReserveX, 10),
		strconv.FormatUint(r.ReserveY, 10),
		strconv.FormatBool(r.Success),
		r.Code,
		r.Signature.String(),
	}
}

// Statistics агрегаты истории одного рынка.
type Statistics struct {
	TotalSwaps     int
	FailedSwaps    int
	VolumeX        uint64
	VolumeY        uint64
	FailuresByCode map[string]int
}

type marketHistory struct {
	records []SwapRecord
	stats   Statistics
}

// History keeps the most recent swaps per market in memory and optionally
// appends every record to a CSV file.
type History struct {
	mu         sync.RWMutex
	markets    map[solana.PublicKey]*marketHistory
	maxRecords int
	csvWriter  *logger.SafeCSVWriter
	logger     *zap.Logger
}

// NewHistory создаёт историю. csvPath может быть пустым.
func NewHistory(maxRecords int, csvPath string, log *zap.Logger) (*History, error) {
	if maxRecords <= 0 {
		maxRecords = 1
	}
	h := &History{
		markets:    make(map[solana.PublicKey]*marketHistory),
		maxRecords: maxRecords,
		logger:     log.Named("history"),
	}
	if csvPath != "" {
		w, err := logger.NewSafeCSVWriter(csvPath, CSVHeaders(), 30*time.Second, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create CSV writer: %w", err)
		}
		h.csvWriter = w
	}
	return h, nil
}

// Record добавляет запись, вытесняя самую старую запись рынка.
func (h *History) Record(rec SwapRecord, mintX solana.PublicKey) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.markets[rec.Vault]
	if !ok {
		m = &marketHistory{stats: Statistics{FailuresByCode: make(map[string]int)}}
		h.markets[rec.Vault] = m
	}
	if len(m.records) >= h.maxRecords {
		m.records = m.records[1:]
	}
	m.records = append(m.records, rec)

	m.stats.TotalSwaps++
	if !rec.Success {
		m.stats.FailedSwaps++
		m.stats.FailuresByCode[rec.Code]++
	} else if rec.MintIn.Equals(mintX) {
		m.stats.VolumeX += rec.AmountIn
	} else {
		m.stats.VolumeY += rec.AmountIn
	}

	if h.csvWriter != nil {
		if err := h.csvWriter.WriteRecord(rec.ToCSV()); err != nil {
			h.logger.Error("Failed to write swap to CSV", zap.Error(err))
			return err
		}
	}
	return nil
}

// Recent returns up to limit most recent records of a market, oldest first.
func (h *History) Recent(vault solana.PublicKey, limit int) []SwapRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m, ok := h.markets[vault]
	if !ok {
		return nil
	}
	if limit <= 0 || limit > len(m.records) {
		limit = len(m.records)
	}
	out := make([]SwapRecord, limit)
	copy(out, m.records[len(m.records)-limit:])
	return out
}

// All returns every retained record of every market.
func (h *History) All() []SwapRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []SwapRecord
	for _, m := range h.markets {
		out = append(out, m.records...)
	}
	return out
}

// Statistics возвращает копию агрегатов рынка.
func (h *History) Statistics(vault solana.PublicKey) Statistics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m, ok := h.markets[vault]
	if !ok {
		return Statistics{FailuresByCode: map[string]int{}}
	}
	stats := m.stats
	stats.FailuresByCode = make(map[string]int, len(m.stats.FailuresByCode))
	for code, n := range m.stats.FailuresByCode {
		stats.FailuresByCode[code] = n
	}
	return stats
}

// Close flushes the CSV export.
func (h *History) Close() error {
	if h.csvWriter == nil {
		return nil
	}
	return h.csvWriter.Close()
}
