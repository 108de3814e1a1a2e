package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
	"github.com/rovshanmuradov/solana-amm/internal/events"
	"github.com/rovshanmuradov/solana-amm/internal/wallet"
)

type mockSetup struct {
	chain  *MockChain
	bus    *recorder
	client *Client
	user   *wallet.Wallet
	mintX  solana.PublicKey
	mintY  solana.PublicKey
	addrs  *Addresses
	userY  solana.PublicKey
}

func newMockSetup(t *testing.T, opts ...Option) *mockSetup {
	t.Helper()
	chain := new(MockChain)
	bus := &recorder{}
	opts = append([]Option{WithRetryInterval(time.Millisecond)}, opts...)
	client := New(chain, amm.ProgramID, zaptest.NewLogger(t), bus, opts...)

	s := &mockSetup{
		chain:  chain,
		bus:    bus,
		client: client,
		user:   wallet.NewRandom(),
		mintX:  solana.NewWallet().PublicKey(),
		mintY:  solana.NewWallet().PublicKey(),
	}
	var err error
	s.addrs, err = client.Addresses(s.mintX, s.mintY)
	require.NoError(t, err)
	s.userY, err = s.user.GetATA(s.mintY)
	require.NoError(t, err)

	chain.On("GetRecentBlockhash", mock.Anything).Return(solana.Hash{1}, nil)
	chain.On("GetAccountInfo", mock.Anything, s.addrs.Vault).Return(vaultAccount(t, amm.ProgramID, 1000, 1000), nil)
	return s
}

func TestClient_Addresses(t *testing.T) {
	s := newMockSetup(t)
	pda, err := amm.GeneratePda(amm.ProgramID, s.mintX, s.mintY)
	require.NoError(t, err)

	assert.Equal(t, pda.Vault, s.addrs.Vault)
	assert.Equal(t, pda.TokenX, s.addrs.HolderX)
	assert.Equal(t, pda.OwnerTokenY, s.addrs.OwnerY)

	again, err := s.client.Addresses(s.mintX, s.mintY)
	require.NoError(t, err)
	assert.Same(t, s.addrs, again)

	holder, ok := s.addrs.Holder(s.mintY)
	assert.True(t, ok)
	assert.Equal(t, s.addrs.HolderY, holder)
	_, ok = s.addrs.Holder(solana.NewWallet().PublicKey())
	assert.False(t, ok)
}

func TestClient_FetchVault(t *testing.T) {
	tests := []struct {
		name    string
		account *blockchain.Account
		err     error
		wantErr error
	}{
		{name: "missing", err: blockchain.ErrAccountNotFound, wantErr: ErrMarketNotFound},
		{name: "empty", account: &blockchain.Account{}, wantErr: ErrMarketNotFound},
		{name: "foreign owner", account: vaultAccount(t, solana.SystemProgramID, 1, 1), wantErr: amm.InvalidVault},
		{name: "host error", err: blockchain.ErrAccountInUse, wantErr: blockchain.ErrAccountInUse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := new(MockChain)
			client := New(chain, amm.ProgramID, zaptest.NewLogger(t), nil)
			mintX, mintY := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
			addrs, err := client.Addresses(mintX, mintY)
			require.NoError(t, err)
			chain.On("GetAccountInfo", mock.Anything, addrs.Vault).Return(tt.account, tt.err)

			_, err = client.FetchVault(context.Background(), mintX, mintY)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	s := newMockSetup(t)
	vault, err := s.client.FetchVault(context.Background(), s.mintX, s.mintY)
	require.NoError(t, err)
	assert.Equal(t, amm.Vault{TokenXAmount: 1000, TokenYAmount: 1000}, vault)
}

func TestClient_Quote(t *testing.T) {
	s := newMockSetup(t)
	ctx := context.Background()

	quote, err := s.client.Quote(ctx, s.mintX, s.mintY, s.mintX, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(91), quote.AmountOut)
	assert.Equal(t, uint64(1100), quote.NewReserveIn)
	assert.Equal(t, uint64(909), quote.NewReserveOut)

	_, err = s.client.Quote(ctx, s.mintX, s.mintY, solana.NewWallet().PublicKey(), 100)
	assert.ErrorIs(t, err, amm.UnknownMint)

	_, err = s.client.Quote(ctx, s.mintX, s.mintY, s.mintY, 0)
	assert.ErrorIs(t, err, amm.InvalidAmount)

	_, err = s.client.Quote(ctx, s.mintX, s.mintX, s.mintX, 10)
	assert.ErrorIs(t, err, amm.IdenticalMinter)
}

func TestClient_SwapRetriesTransientErrors(t *testing.T) {
	s := newMockSetup(t, WithRetries(3))
	sig := solana.Signature{9}

	s.chain.On("GetAccountInfo", mock.Anything, s.userY).Return(nil, blockchain.ErrAccountNotFound).Once()
	s.chain.On("GetAccountInfo", mock.Anything, s.userY).Return(tokenAccount(t, s.mintY, s.user.PublicKey, 91), nil)
	s.chain.On("SendTransaction", mock.Anything, mock.Anything).Return(sig, blockchain.ErrAccountInUse).Once()
	s.chain.On("SendTransaction", mock.Anything, mock.Anything).Return(sig, blockchain.ErrBlockhashNotFound).Once()
	s.chain.On("SendTransaction", mock.Anything, mock.Anything).Return(sig, nil).Once()

	receipt, err := s.client.Swap(context.Background(), s.user, s.mintX, s.mintY, s.mintX, 100, 90)
	require.NoError(t, err)

	s.chain.AssertNumberOfCalls(t, "SendTransaction", 3)
	s.chain.AssertNumberOfCalls(t, "GetRecentBlockhash", 3)
	assert.Equal(t, sig, receipt.Signature)
	assert.Equal(t, amm.XToY, receipt.Direction)
	assert.Equal(t, uint64(91), receipt.AmountOut)
	assert.Equal(t, uint64(91), receipt.Quoted.AmountOut)
	assert.NotEmpty(t, receipt.OperationID)

	executed := s.bus.byType(events.SwapExecuted)
	require.Len(t, executed, 1)
	ev := executed[0].(events.SwapExecutedEvent)
	assert.Equal(t, s.addrs.Vault, ev.Vault)
	assert.Equal(t, receipt.OperationID, ev.OperationID)
	assert.Equal(t, uint64(91), ev.AmountOut)
}

func TestClient_SwapProgramErrorIsPermanent(t *testing.T) {
	s := newMockSetup(t, WithRetries(5))
	programErr := &blockchain.TransactionError{Index: 1, Err: amm.InsufficientLiquidity}

	s.chain.On("GetAccountInfo", mock.Anything, s.userY).Return(nil, blockchain.ErrAccountNotFound)
	s.chain.On("SendTransaction", mock.Anything, mock.Anything).Return(solana.Signature{3}, programErr)

	_, err := s.client.Swap(context.Background(), s.user, s.mintX, s.mintY, s.mintX, 100, 0)
	require.Error(t, err)
	code, ok := amm.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, amm.InsufficientLiquidity, code)
	s.chain.AssertNumberOfCalls(t, "SendTransaction", 1)

	failed := s.bus.byType(events.SwapFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "InsufficientLiquidity", failed[0].(events.SwapFailedEvent).Code)
	assert.Empty(t, s.bus.byType(events.SwapExecuted))
}

func TestClient_SwapRetriesExhausted(t *testing.T) {
	s := newMockSetup(t, WithRetries(2))
	s.chain.On("GetAccountInfo", mock.Anything, s.userY).Return(nil, blockchain.ErrAccountNotFound)
	s.chain.On("SendTransaction", mock.Anything, mock.Anything).Return(solana.Signature{}, blockchain.ErrAccountInUse)

	_, err := s.client.Swap(context.Background(), s.user, s.mintX, s.mintY, s.mintX, 100, 0)
	assert.ErrorIs(t, err, blockchain.ErrAccountInUse)
	s.chain.AssertNumberOfCalls(t, "SendTransaction", 3)

	failed := s.bus.byType(events.SwapFailed)
	require.Len(t, failed, 1)
	assert.Empty(t, failed[0].(events.SwapFailedEvent).Code)
}

func TestClient_SwapSlippageRejectedBeforeSending(t *testing.T) {
	s := newMockSetup(t)

	_, err := s.client.Swap(context.Background(), s.user, s.mintX, s.mintY, s.mintX, 100, 92)
	require.ErrorIs(t, err, ErrSlippageExceeded)
	var slip *SlippageExceededError
	require.True(t, errors.As(err, &slip))
	assert.Equal(t, uint64(91), slip.Quoted)
	assert.Equal(t, uint64(92), slip.MinAmountOut)

	s.chain.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
	failed := s.bus.byType(events.SwapFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "SlippageExceeded", failed[0].(events.SwapFailedEvent).Code)
}

func TestClient_SwapQuoteErrorsSkipChain(t *testing.T) {
	s := newMockSetup(t)

	_, err := s.client.Swap(context.Background(), s.user, s.mintX, s.mintY, solana.NewWallet().PublicKey(), 100, 0)
	assert.ErrorIs(t, err, amm.UnknownMint)
	s.chain.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
	assert.Equal(t, "UnknownMint", s.bus.byType(events.SwapFailed)[0].(events.SwapFailedEvent).Code)
}

func TestClient_ComputeUnitLimit(t *testing.T) {
	s := newMockSetup(t, WithComputeUnitLimit(200_000))
	s.chain.On("GetAccountInfo", mock.Anything, s.userY).Return(nil, blockchain.ErrAccountNotFound).Once()
	s.chain.On("GetAccountInfo", mock.Anything, s.userY).Return(tokenAccount(t, s.mintY, s.user.PublicKey, 91), nil)

	var programs []solana.PublicKey
	s.chain.On("SendTransaction", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			tx := args.Get(1).(*solana.Transaction)
			for _, ix := range tx.Message.Instructions {
				programs = append(programs, tx.Message.AccountKeys[ix.ProgramIDIndex])
			}
		}).
		Return(solana.Signature{1}, nil)

	_, err := s.client.Swap(context.Background(), s.user, s.mintX, s.mintY, s.mintX, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, []solana.PublicKey{
		solana.ComputeBudget,
		solana.SPLAssociatedTokenAccountProgramID,
		amm.ProgramID,
	}, programs)
}

func TestClient_BlockhashFailureIsPermanent(t *testing.T) {
	chain := new(MockChain)
	client := New(chain, amm.ProgramID, zaptest.NewLogger(t), nil, WithRetries(4), WithRetryInterval(time.Millisecond))
	payer := wallet.NewRandom()
	chain.On("GetAccountInfo", mock.Anything, mock.Anything).Return(nil, blockchain.ErrAccountNotFound)
	chain.On("GetRecentBlockhash", mock.Anything).Return(solana.Hash{}, errors.New("node down"))

	_, err := client.EnsureAssociatedAccount(context.Background(), payer, payer.PublicKey, solana.NewWallet().PublicKey())
	assert.ErrorContains(t, err, "node down")
	chain.AssertNumberOfCalls(t, "GetRecentBlockhash", 1)
	chain.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}
