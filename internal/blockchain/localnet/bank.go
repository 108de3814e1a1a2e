// =============================
// File: internal/blockchain/localnet/bank.go
// =============================
package localnet

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

const (
	// DefaultLamportsPerSignature комиссия за одну подпись.
	DefaultLamportsPerSignature = 5000
	// maxRecentBlockhashes сколько последних blockhash принимаются в транзакциях.
	maxRecentBlockhashes = 150
)

var (
	// NativeLoaderID владелец встроенных программ.
	NativeLoaderID = solana.MustPublicKeyFromBase58("NativeLoader1111111111111111111111111111111")
	// SysvarOwnerID владелец sysvar-аккаунтов.
	SysvarOwnerID = solana.MustPublicKeyFromBase58("Sysvar1111111111111111111111111111111111111")
)

// Bank is an in-memory ledger that executes transactions atomically.
type Bank struct {
	mu        sync.Mutex
	accounts  map[solana.PublicKey]*blockchain.Account
	programs  map[solana.PublicKey]blockchain.Program
	writeLock map[solana.PublicKey]struct{}
	readLock  map[solana.PublicKey]int
	processed map[solana.Signature]*TransactionResult

	slot      uint64
	blockhash solana.Hash
	recent    []solana.Hash
	rent      blockchain.Rent
	feePerSig uint64
	maxDepth  int
	logger    *zap.Logger
}

var _ blockchain.Client = (*Bank)(nil)

// Option настраивает Bank.
type Option func(*Bank)

// WithRent задаёт параметры ренты.
func WithRent(r blockchain.Rent) Option {
	return func(b *Bank) { b.rent = r }
}

// WithLamportsPerSignature задаёт комиссию за подпись.
func WithLamportsPerSignature(lamports uint64) Option {
	return func(b *Bank) { b.feePerSig = lamports }
}

// WithMaxInvokeDepth ограничивает глубину вложенных вызовов программ.
func WithMaxInvokeDepth(depth int) Option {
	return func(b *Bank) { b.maxDepth = depth }
}

// NewBank создаёт леджер со встроенными программами system, token,
// associated token account, compute budget и sysvar-аккаунтом ренты.
func NewBank(logger *zap.Logger, opts ...Option) *Bank {
	b := &Bank{
		accounts:  make(map[solana.PublicKey]*blockchain.Account),
		programs:  make(map[solana.PublicKey]blockchain.Program),
		writeLock: make(map[solana.PublicKey]struct{}),
		readLock:  make(map[solana.PublicKey]int),
		processed: make(map[solana.Signature]*TransactionResult),
		rent:      blockchain.DefaultRent(),
		feePerSig: DefaultLamportsPerSignature,
		maxDepth:  4,
		logger:    logger.Named("localnet"),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.blockhash = solana.Hash(sha256.Sum256([]byte("localnet genesis")))
	b.recent = []solana.Hash{b.blockhash}

	b.registerBuiltin(solana.SystemProgramID, systemProgram{})
	b.registerBuiltin(solana.TokenProgramID, tokenProgram{})
	b.registerBuiltin(solana.SPLAssociatedTokenAccountProgramID, associatedTokenProgram{})
	b.registerBuiltin(solana.ComputeBudget, computeBudgetProgram{})

	rentData, err := b.rent.Encode()
	if err != nil {
		// кодирование фиксированной структуры не падает
		panic(fmt.Sprintf("encode rent sysvar: %v", err))
	}
	b.accounts[solana.SysVarRentPubkey] = &blockchain.Account{
		Lamports: b.rent.MinimumBalance(uint64(len(rentData))),
		Data:     rentData,
		Owner:    SysvarOwnerID,
	}
	return b
}

func (b *Bank) registerBuiltin(id solana.PublicKey, program blockchain.Program) {
	b.programs[id] = program
	b.accounts[id] = &blockchain.Account{Lamports: 1, Owner: NativeLoaderID, Executable: true}
}

// RegisterProgram deploys program under id.
func (b *Bank) RegisterProgram(id solana.PublicKey, program blockchain.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.programs[id] = program
	b.accounts[id] = &blockchain.Account{
		Lamports:   b.rent.MinimumBalance(0),
		Owner:      solana.BPFLoaderUpgradeableProgramID,
		Executable: true,
	}
	b.logger.Info("Program deployed", zap.String("program_id", id.String()))
}

func (b *Bank) program(id solana.PublicKey) (blockchain.Program, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.programs[id]
	return p, ok
}

// Rent возвращает параметры ренты леджера.
func (b *Bank) Rent() blockchain.Rent {
	return b.rent
}

// Slot возвращает номер текущего слота.
func (b *Bank) Slot() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.slot
}

// Account returns a copy of the account stored under key.
func (b *Bank) Account(key solana.PublicKey) (*blockchain.Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[key]
	if !ok {
		return nil, false
	}
	return acc.Clone(), true
}

// SetAccount overwrites an account outside of any transaction.
func (b *Bank) SetAccount(key solana.PublicKey, acc *blockchain.Account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[key] = acc.Clone()
}

// GetRecentBlockhash возвращает последний blockhash.
func (b *Bank) GetRecentBlockhash(_ context.Context) (solana.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blockhash, nil
}

// GetAccountInfo возвращает копию аккаунта или ErrAccountNotFound.
func (b *Bank) GetAccountInfo(_ context.Context, pubkey solana.PublicKey) (*blockchain.Account, error) {
	acc, ok := b.Account(pubkey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", blockchain.ErrAccountNotFound, pubkey)
	}
	return acc, nil
}

// GetMinimumBalanceForRentExemption считает минимальный баланс по ренте леджера.
func (b *Bank) GetMinimumBalanceForRentExemption(_ context.Context, size uint64) (uint64, error) {
	return b.rent.MinimumBalance(size), nil
}

// SendTransaction исполняет транзакцию и возвращает её подпись.
func (b *Bank) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	res, err := b.ProcessTransaction(ctx, tx)
	if res != nil {
		return res.Signature, err
	}
	return solana.Signature{}, err
}

// Transaction returns the result of an already processed transaction.
func (b *Bank) Transaction(sig solana.Signature) (*TransactionResult, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	res, ok := b.processed[sig]
	return res, ok
}

// advance переводит леджер на следующий слот. Вызывается под b.mu.
func (b *Bank) advance() {
	b.slot++
	var seed [40]byte
	copy(seed[:32], b.blockhash[:])
	binary.LittleEndian.PutUint64(seed[32:], b.slot)
	b.blockhash = solana.Hash(sha256.Sum256(seed[:]))

	b.recent = append(b.recent, b.blockhash)
	if len(b.recent) > maxRecentBlockhashes {
		b.recent = b.recent[len(b.recent)-maxRecentBlockhashes:]
	}
}

func (b *Bank) isRecent(hash solana.Hash) bool {
	for _, h := range b.recent {
		if h.Equals(hash) {
			return true
		}
	}
	return false
}
