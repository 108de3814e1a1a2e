// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType тип события рынка.
type EventType string

const (
	MarketInitialized EventType = "market.initialized"
	SwapExecuted      EventType = "swap.executed"
	SwapFailed        EventType = "swap.failed"
	InvariantViolated EventType = "invariant.violated"
	AuditCompleted    EventType = "audit.completed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase заполняет тип и время события.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

func (e BaseEvent) Type() EventType {
	return e.EventType
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// MarketInitializedEvent публикуется после успешного InitMarket.
type MarketInitializedEvent struct {
	BaseEvent
	Vault     solana.PublicKey
	MintX     solana.PublicKey
	MintY     solana.PublicKey
	AmountX   uint64
	AmountY   uint64
	Signature solana.Signature
}

// SwapExecutedEvent is emitted after a confirmed swap. Reserves are the
// vault fields read back after the transaction.
type SwapExecutedEvent struct {
	BaseEvent
	Vault       solana.PublicKey
	Trader      solana.PublicKey
	MintIn      solana.PublicKey
	AmountIn    uint64
	AmountOut   uint64
	ReserveX    uint64
	ReserveY    uint64
	Signature   solana.Signature
	OperationID string
}

// SwapFailedEvent is emitted when a swap is rejected by the client or the
// program. Code is empty for host errors.
type SwapFailedEvent struct {
	BaseEvent
	Vault       solana.PublicKey
	Trader      solana.PublicKey
	MintIn      solana.PublicKey
	Amount      uint64
	Code        string
	Err         error
	OperationID string
}

// InvariantViolatedEvent сообщает о нарушении инварианта пула.
type InvariantViolatedEvent struct {
	BaseEvent
	Vault  solana.PublicKey
	Reason string
	Detail string
}

// AuditCompletedEvent carries the outcome of a vault versus holders audit.
type AuditCompletedEvent struct {
	BaseEvent
	Vault    solana.PublicKey
	VaultX   uint64
	VaultY   uint64
	HolderX  uint64
	HolderY  uint64
	Balanced bool
}
