package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/monitor"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options configures the export behavior
type Options struct {
	Format      Format
	StartTime   time.Time
	EndTime     time.Time
	Vault       solana.PublicKey // zero value: all markets
	MintIn      solana.PublicKey // zero value: both directions
	OnlySuccess bool
	OutputDir   string
}

// SwapExporter выгружает историю свапов в CSV или JSON.
type SwapExporter struct {
	logger *zap.Logger
}

// NewSwapExporter creates a new swap exporter
func NewSwapExporter(logger *zap.Logger) *SwapExporter {
	return &SwapExporter{logger: logger.Named("export")}
}

// ExportSwaps фильтрует записи, сортирует по времени и пишет файл в
// OutputDir. Возвращает путь к файлу.
func (se *SwapExporter) ExportSwaps(records []monitor.SwapRecord, options Options) (string, error) {
	filtered := se.filterSwaps(records, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no swaps match the export criteria")
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	outputPath := filepath.Join(options.OutputDir, se.generateFilename(options))
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = se.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = se.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	se.logger.Info("Swaps exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func (se *SwapExporter) filterSwaps(records []monitor.SwapRecord, options Options) []monitor.SwapRecord {
	var filtered []monitor.SwapRecord
	for _, r := range records {
		if !options.StartTime.IsZero() && r.Timestamp.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && r.Timestamp.After(options.EndTime) {
			continue
		}
		if !options.Vault.IsZero() && !r.Vault.Equals(options.Vault) {
			continue
		}
		if !options.MintIn.IsZero() && !r.MintIn.Equals(options.MintIn) {
			continue
		}
		if options.OnlySuccess && !r.Success {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func (se *SwapExporter) generateFilename(options Options) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "swaps_all"
	if !options.Vault.IsZero() {
		prefix = "swaps_" + options.Vault.String()[:8]
	}
	if options.OnlySuccess {
		prefix += "_ok"
	}
	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

func (se *SwapExporter) exportToCSV(records []monitor.SwapRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(monitor.CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(r.ToCSV()); err != nil {
			return fmt.Errorf("failed to write swap: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// SwapJSON запись свапа в JSON экспорте.
type SwapJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Vault     string    `json:"vault"`
	Trader    string    `json:"trader"`
	MintIn    string    `json:"mint_in"`
	AmountIn  uint64    `json:"amount_in"`
	AmountOut uint64    `json:"amount_out"`
	ReserveX  uint64    `json:"reserve_x"`
	ReserveY  uint64    `json:"reserve_y"`
	Success   bool      `json:"success"`
	Code      string    `json:"code,omitempty"`
	Signature string    `json:"signature"`
}

func toJSON(r monitor.SwapRecord) SwapJSON {
	return SwapJSON{
		Timestamp: r.Timestamp,
		Vault:     r.Vault.String(),
		Trader:    r.Trader.String(),
		MintIn:    r.MintIn.String(),
		AmountIn:  r.AmountIn,
		AmountOut: r.AmountOut,
		ReserveX:  r.ReserveX,
		ReserveY:  r.ReserveY,
		Success:   r.Success,
		Code:      r.Code,
		Signature: r.Signature.String(),
	}
}

func (se *SwapExporter) exportToJSON(records []monitor.SwapRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	swaps := make([]SwapJSON, 0, len(records))
	for _, r := range records {
		swaps = append(swaps, toJSON(r))
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	exportData := struct {
		ExportTime time.Time  `json:"export_time"`
		SwapCount  int        `json:"swap_count"`
		Swaps      []SwapJSON `json:"swaps"`
		Summary    Summary    `json:"summary"`
	}{
		ExportTime: time.Now(),
		SwapCount:  len(swaps),
		Swaps:      swaps,
		Summary:    se.calculateSummary(records),
	}
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary агрегаты выгруженных свапов. Объём считается по входному
// минту успешных свапов, K по первой и последней успешной записи.
type Summary struct {
	TotalSwaps      int               `json:"total_swaps"`
	SuccessfulSwaps int               `json:"successful_swaps"`
	FailedSwaps     int               `json:"failed_swaps"`
	FailuresByCode  map[string]int    `json:"failures_by_code"`
	Markets         int               `json:"markets"`
	VolumeByMint    map[string]uint64 `json:"volume_by_mint"`
	StartProduct    string            `json:"start_product,omitempty"`
	EndProduct      string            `json:"end_product,omitempty"`
	StartDate       time.Time         `json:"start_date"`
	EndDate         time.Time         `json:"end_date"`
}

// calculateSummary expects records sorted by time.
func (se *SwapExporter) calculateSummary(records []monitor.SwapRecord) Summary {
	summary := Summary{
		TotalSwaps:     len(records),
		FailuresByCode: make(map[string]int),
		VolumeByMint:   make(map[string]uint64),
	}
	if len(records) == 0 {
		return summary
	}
	summary.StartDate = records[0].Timestamp
	summary.EndDate = records[len(records)-1].Timestamp

	vaults := make(map[solana.PublicKey]struct{})
	var first, last *big.Int
	for _, r := range records {
		vaults[r.Vault] = struct{}{}
		if !r.Success {
			summary.FailedSwaps++
			summary.FailuresByCode[r.Code]++
			continue
		}
		summary.SuccessfulSwaps++
		summary.VolumeByMint[r.MintIn.String()] += r.AmountIn
		if first == nil {
			first = r.Product()
		}
		last = r.Product()
	}
	summary.Markets = len(vaults)
	// K сопоставим только в пределах одного рынка
	if summary.Markets == 1 && first != nil {
		summary.StartProduct = first.String()
		summary.EndProduct = last.String()
	}
	return summary
}

// HourlyStats статистика свапов за час.
type HourlyStats struct {
	Hour      int `json:"hour"`
	SwapCount int `json:"swap_count"`
	Failed    int `json:"failed"`
}

// DailyReport сводка свапов за сутки.
type DailyReport struct {
	Date            time.Time     `json:"date"`
	SwapCount       int           `json:"swap_count"`
	Summary         Summary       `json:"summary"`
	HourlyBreakdown []HourlyStats `json:"hourly_breakdown"`
	Swaps           []SwapJSON    `json:"swaps"`
}

// ExportDailyReport пишет daily_report_YYYYMMDD.json. Пустой путь без
// ошибки означает, что за день свапов не было.
func (se *SwapExporter) ExportDailyReport(records []monitor.SwapRecord, date time.Time, outputDir string) (string, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	filtered := se.filterSwaps(records, Options{
		StartTime: startOfDay,
		EndTime:   startOfDay.Add(24 * time.Hour),
	})
	if len(filtered) == 0 {
		se.logger.Info("No swaps for daily report", zap.Time("date", startOfDay))
		return "", nil
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	swaps := make([]SwapJSON, 0, len(filtered))
	for _, r := range filtered {
		swaps = append(swaps, toJSON(r))
	}
	report := DailyReport{
		Date:            startOfDay,
		SwapCount:       len(filtered),
		Summary:         se.calculateSummary(filtered),
		HourlyBreakdown: calculateHourlyBreakdown(filtered),
		Swaps:           swaps,
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102")))
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	se.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("swaps", len(filtered)))
	return outputPath, nil
}

func calculateHourlyBreakdown(records []monitor.SwapRecord) []HourlyStats {
	hourly := make(map[int]*HourlyStats)
	for _, r := range records {
		hour := r.Timestamp.Hour()
		stats, ok := hourly[hour]
		if !ok {
			stats = &HourlyStats{Hour: hour}
			hourly[hour] = stats
		}
		stats.SwapCount++
		if !r.Success {
			stats.Failed++
		}
	}

	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, ok := hourly[hour]; ok {
			breakdown = append(breakdown, *stats)
		}
	}
	return breakdown
}
