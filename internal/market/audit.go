// =============================
// File: internal/market/audit.go
// =============================
package market

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
	"github.com/rovshanmuradov/solana-amm/internal/events"
)

// AuditReport сравнение хранилища с реальными балансами держателей пула.
type AuditReport struct {
	Addresses *Addresses
	Vault     amm.Vault
	HolderX   uint64
	HolderY   uint64
}

// Balanced reports whether both holders match the vault exactly.
func (r *AuditReport) Balanced() bool {
	return r.HolderX == r.Vault.TokenXAmount && r.HolderY == r.Vault.TokenYAmount
}

// Deficit сообщает, что у держателя меньше токенов, чем учтено в хранилище.
// Это фатальная находка: пул не сможет выплатить учтённые резервы.
func (r *AuditReport) Deficit() bool {
	return r.HolderX < r.Vault.TokenXAmount || r.HolderY < r.Vault.TokenYAmount
}

// SurplusX returns the unaccounted X tokens, e.g. direct transfers to the holder.
func (r *AuditReport) SurplusX() uint64 {
	if r.HolderX > r.Vault.TokenXAmount {
		return r.HolderX - r.Vault.TokenXAmount
	}
	return 0
}

// SurplusY returns the unaccounted Y tokens.
func (r *AuditReport) SurplusY() uint64 {
	if r.HolderY > r.Vault.TokenYAmount {
		return r.HolderY - r.Vault.TokenYAmount
	}
	return 0
}

func (r *AuditReport) String() string {
	status := "balanced"
	switch {
	case r.Deficit():
		status = "deficit"
	case !r.Balanced():
		status = fmt.Sprintf("surplus x=%d y=%d", r.SurplusX(), r.SurplusY())
	}
	return fmt.Sprintf("vault %s holders x=%d y=%d: %s", r.Vault, r.HolderX, r.HolderY, status)
}

// Audit читает хранилище и балансы держателей пула и публикует результат.
// Расхождение не исправляется, только сообщается.
func (c *Client) Audit(ctx context.Context, mintX, mintY solana.PublicKey) (*AuditReport, error) {
	addrs, err := c.Addresses(mintX, mintY)
	if err != nil {
		return nil, err
	}

	unlock := c.lockMarket(addrs.Vault)
	defer unlock()

	vault, err := c.fetchVault(ctx, addrs)
	if err != nil {
		return nil, err
	}
	holderX, err := c.TokenBalance(ctx, addrs.HolderX)
	if err != nil {
		return nil, err
	}
	holderY, err := c.TokenBalance(ctx, addrs.HolderY)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{Addresses: addrs, Vault: vault, HolderX: holderX, HolderY: holderY}
	log := c.logger.With(addrs.Fields()...)
	switch {
	case report.Deficit():
		log.Error("Audit found vault deficit", zap.Stringer("report", report))
	case !report.Balanced():
		log.Warn("Audit found unaccounted tokens", zap.Stringer("report", report))
	default:
		log.Debug("Audit balanced", zap.Stringer("vault_state", vault))
	}

	c.publish(events.AuditCompletedEvent{
		BaseEvent: events.NewBase(events.AuditCompleted),
		Vault:     addrs.Vault,
		VaultX:    vault.TokenXAmount,
		VaultY:    vault.TokenYAmount,
		HolderX:   holderX,
		HolderY:   holderY,
		Balanced:  report.Balanced(),
	})
	return report, nil
}
