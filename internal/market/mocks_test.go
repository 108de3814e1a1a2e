// internal/market/mocks_test.go
package market

import (
	"bytes"
	"context"
	"sync"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
	"github.com/rovshanmuradov/solana-amm/internal/events"
)

// MockChain реализует интерфейс blockchain.Client.
type MockChain struct {
	mock.Mock
}

func (m *MockChain) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	args := m.Called(ctx)
	return args.Get(0).(solana.Hash), args.Error(1)
}

func (m *MockChain) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockChain) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*blockchain.Account, error) {
	args := m.Called(ctx, pubkey)
	acc, _ := args.Get(0).(*blockchain.Account)
	return acc, args.Error(1)
}

func (m *MockChain) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	args := m.Called(ctx, size)
	return args.Get(0).(uint64), args.Error(1)
}

var _ blockchain.Client = (*MockChain)(nil)

// recorder собирает опубликованные события.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) byType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

func vaultAccount(t *testing.T, owner solana.PublicKey, x, y uint64) *blockchain.Account {
	t.Helper()
	data, err := amm.Vault{TokenXAmount: x, TokenYAmount: y}.Encode()
	require.NoError(t, err)
	return &blockchain.Account{Lamports: 1, Owner: owner, Data: data}
}

func tokenAccount(t *testing.T, mint, owner solana.PublicKey, amount uint64) *blockchain.Account {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, bin.NewBinEncoder(buf).Encode(&token.Account{
		Mint:   mint,
		Owner:  owner,
		Amount: amount,
		State:  token.Initialized,
	}))
	require.Equal(t, tokenAccountSize, buf.Len())
	return &blockchain.Account{Lamports: 1, Owner: solana.TokenProgramID, Data: buf.Bytes()}
}
