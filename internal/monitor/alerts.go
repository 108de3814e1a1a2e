package monitor

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertType вид нарушения.
type AlertType string

const (
	AlertProductIncreased AlertType = "product_increased"
	AlertVaultDeficit     AlertType = "vault_deficit"
	AlertVaultSurplus     AlertType = "vault_surplus"
	AlertReserveMismatch  AlertType = "reserve_mismatch"
)

// Severity of an alert.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is a triggered invariant finding.
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Vault     string    `json:"vault"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
}

// AlertHandler вызывается синхронно для каждого нового алерта.
type AlertHandler func(alert Alert)

// AlertManager keeps a bounded list of alerts and fans them out to handlers.
type AlertManager struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	alerts    []Alert
	maxAlerts int
	handlers  []AlertHandler
}

// NewAlertManager creates a manager keeping at most maxAlerts alerts.
func NewAlertManager(maxAlerts int, logger *zap.Logger) *AlertManager {
	if maxAlerts <= 0 {
		maxAlerts = 1
	}
	return &AlertManager{
		logger:    logger,
		alerts:    make([]Alert, 0, maxAlerts),
		maxAlerts: maxAlerts,
	}
}

// AddHandler adds an alert handler.
func (am *AlertManager) AddHandler(handler AlertHandler) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.handlers = append(am.handlers, handler)
}

// Trigger регистрирует алерт, логирует его по уровню и вызывает обработчики.
func (am *AlertManager) Trigger(typ AlertType, vault solana.PublicKey, severity, message string) Alert {
	alert := Alert{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: time.Now(),
		Vault:     vault.String(),
		Message:   message,
		Severity:  severity,
	}

	am.mu.Lock()
	if len(am.alerts) >= am.maxAlerts {
		am.alerts = am.alerts[1:]
	}
	am.alerts = append(am.alerts, alert)
	handlers := append([]AlertHandler(nil), am.handlers...)
	am.mu.Unlock()

	fields := []zap.Field{
		zap.String("type", string(alert.Type)),
		zap.String("vault", alert.Vault),
		zap.String("message", alert.Message),
	}
	switch severity {
	case SeverityCritical:
		am.logger.Error("Alert triggered", fields...)
	case SeverityWarning:
		am.logger.Warn("Alert triggered", fields...)
	default:
		am.logger.Info("Alert triggered", fields...)
	}

	for _, handler := range handlers {
		handler(alert)
	}
	return alert
}

// GetRecentAlerts returns recent alerts, oldest first.
func (am *AlertManager) GetRecentAlerts(limit int) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	if limit <= 0 || limit > len(am.alerts) {
		limit = len(am.alerts)
	}
	result := make([]Alert, limit)
	copy(result, am.alerts[len(am.alerts)-limit:])
	return result
}
