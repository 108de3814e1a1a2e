// =============================
// File: internal/market/client.go
// =============================
package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
	"github.com/rovshanmuradov/solana-amm/internal/events"
)

const tokenAccountSize = 165

// Client собирает, подписывает и отправляет инструкции программы AMM
// и читает состояние рынков.
type Client struct {
	chain     blockchain.Client
	programID solana.PublicKey
	logger    *zap.Logger
	bus       events.Publisher

	retries       int
	retryInterval time.Duration
	maxElapsed    time.Duration
	computeUnits  uint32

	addresses sync.Map // pairKey -> *Addresses
	locks     sync.Map // vault -> *sync.Mutex
}

// Option настраивает Client.
type Option func(*Client)

// WithRetries задаёт число повторов при временных ошибках.
func WithRetries(retries int) Option {
	return func(c *Client) { c.retries = retries }
}

// WithRetryInterval задаёт начальный интервал экспоненциального повтора.
func WithRetryInterval(interval time.Duration) Option {
	return func(c *Client) { c.retryInterval = interval }
}

// WithMaxElapsedTime ограничивает общее время повторов одной операции.
func WithMaxElapsedTime(d time.Duration) Option {
	return func(c *Client) { c.maxElapsed = d }
}

// WithComputeUnitLimit prepends a compute budget instruction to every
// transaction. Zero disables it.
func WithComputeUnitLimit(units uint32) Option {
	return func(c *Client) { c.computeUnits = units }
}

// New создаёт клиента. bus может быть nil.
func New(chain blockchain.Client, programID solana.PublicKey, logger *zap.Logger, bus events.Publisher, opts ...Option) *Client {
	c := &Client{
		chain:         chain,
		programID:     programID,
		logger:        logger.Named("market"),
		bus:           bus,
		retries:       3,
		retryInterval: 50 * time.Millisecond,
		maxElapsed:    15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProgramID возвращает адрес программы клиента.
func (c *Client) ProgramID() solana.PublicKey {
	return c.programID
}

// Addresses возвращает адреса рынка, вычисленные один раз на пару минтов.
func (c *Client) Addresses(mintX, mintY solana.PublicKey) (*Addresses, error) {
	key := newPairKey(mintX, mintY)
	if cached, ok := c.addresses.Load(key); ok {
		return cached.(*Addresses), nil
	}
	addrs, err := DeriveAddresses(c.programID, mintX, mintY)
	if err != nil {
		return nil, err
	}
	actual, _ := c.addresses.LoadOrStore(key, addrs)
	return actual.(*Addresses), nil
}

// lockMarket сериализует операции клиента над одним рынком, чтобы
// события публиковались в порядке исполнения.
func (c *Client) lockMarket(vault solana.PublicKey) func() {
	mu, _ := c.locks.LoadOrStore(vault, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// FetchVault читает и декодирует хранилище рынка.
func (c *Client) FetchVault(ctx context.Context, mintX, mintY solana.PublicKey) (amm.Vault, error) {
	addrs, err := c.Addresses(mintX, mintY)
	if err != nil {
		return amm.Vault{}, err
	}
	return c.fetchVault(ctx, addrs)
}

func (c *Client) fetchVault(ctx context.Context, addrs *Addresses) (amm.Vault, error) {
	acc, err := c.chain.GetAccountInfo(ctx, addrs.Vault)
	if errors.Is(err, blockchain.ErrAccountNotFound) {
		return amm.Vault{}, ErrMarketNotFound
	}
	if err != nil {
		return amm.Vault{}, fmt.Errorf("failed to fetch vault %s: %w", addrs.Vault, err)
	}
	if acc.IsEmpty() {
		return amm.Vault{}, ErrMarketNotFound
	}
	if !acc.Owner.Equals(c.programID) {
		return amm.Vault{}, amm.InvalidVault
	}
	return amm.DecodeVault(acc.Data)
}

// Quote рассчитывает свап по текущему состоянию хранилища без отправки
// транзакции.
func (c *Client) Quote(ctx context.Context, mintX, mintY, mintIn solana.PublicKey, amount uint64) (amm.SwapResult, error) {
	addrs, err := c.Addresses(mintX, mintY)
	if err != nil {
		return amm.SwapResult{}, err
	}
	return c.quote(ctx, addrs, mintIn, amount)
}

func (c *Client) quote(ctx context.Context, addrs *Addresses, mintIn solana.PublicKey, amount uint64) (amm.SwapResult, error) {
	if addrs.MintX.Equals(addrs.MintY) {
		return amm.SwapResult{}, amm.IdenticalMinter
	}
	direction, ok := amm.NewSwapDirection(mintIn, addrs.MintX, addrs.MintY)
	if !ok {
		return amm.SwapResult{}, amm.UnknownMint
	}
	vault, err := c.fetchVault(ctx, addrs)
	if err != nil {
		return amm.SwapResult{}, err
	}
	reserveIn, reserveOut := vault.Reserves(direction)
	return amm.CalcSwap(reserveIn, reserveOut, amount)
}

// TokenBalance возвращает баланс держателя. Отсутствующий держатель
// считается пустым.
func (c *Client) TokenBalance(ctx context.Context, holder solana.PublicKey) (uint64, error) {
	acc, err := c.chain.GetAccountInfo(ctx, holder)
	if errors.Is(err, blockchain.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if acc.IsEmpty() {
		return 0, nil
	}
	state, err := decodeTokenAccount(acc)
	if err != nil {
		return 0, fmt.Errorf("holder %s: %w", holder, err)
	}
	return state.Amount, nil
}

func decodeTokenAccount(acc *blockchain.Account) (*token.Account, error) {
	if !acc.Owner.Equals(solana.TokenProgramID) || len(acc.Data) != tokenAccountSize {
		return nil, blockchain.ErrInvalidAccountData
	}
	var state token.Account
	if err := bin.NewBinDecoder(acc.Data).Decode(&state); err != nil {
		return nil, fmt.Errorf("%w: %v", blockchain.ErrInvalidAccountData, err)
	}
	return &state, nil
}

func (c *Client) publish(event events.Event) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(event); err != nil {
		c.logger.Warn("Failed to publish event",
			zap.String("type", string(event.Type())),
			zap.Error(err))
	}
}
