package localnet

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

type runtimeFixture struct {
	bank      *Bank
	payer     solana.PrivateKey
	programID solana.PublicKey
}

func newRuntimeFixture(t *testing.T, program blockchain.ProgramFunc) *runtimeFixture {
	t.Helper()
	bank := newTestBank(t)
	programID := solana.NewWallet().PublicKey()
	bank.RegisterProgram(programID, program)
	return &runtimeFixture{
		bank:      bank,
		payer:     newFundedKey(t, bank, 10_000_000_000),
		programID: programID,
	}
}

func (f *runtimeFixture) run(t *testing.T, metas ...*solana.AccountMeta) (*TransactionResult, error) {
	t.Helper()
	ix := solana.NewInstruction(f.programID, metas, nil)
	return f.bank.ProcessTransaction(context.Background(), buildTx(t, f.bank, []solana.PrivateKey{f.payer}, ix))
}

func TestRuntime_OwnershipRules(t *testing.T) {
	foreignOwner := solana.NewWallet().PublicKey()

	tests := []struct {
		name     string
		owner    func(programID solana.PublicKey) solana.PublicKey
		writable bool
		mutate   func(accounts []*blockchain.AccountInfo)
		wantErr  error
	}{
		{
			name:     "foreign data write",
			owner:    func(solana.PublicKey) solana.PublicKey { return foreignOwner },
			writable: true,
			mutate:   func(a []*blockchain.AccountInfo) { a[0].Data[0] = 9 },
			wantErr:  blockchain.ErrExternalAccountDataModified,
		},
		{
			name:     "read-only data write",
			owner:    func(id solana.PublicKey) solana.PublicKey { return id },
			writable: false,
			mutate:   func(a []*blockchain.AccountInfo) { a[0].Data[0] = 9 },
			wantErr:  blockchain.ErrReadonlyDataModified,
		},
		{
			name:     "foreign lamport spend",
			owner:    func(solana.PublicKey) solana.PublicKey { return foreignOwner },
			writable: true,
			mutate: func(a []*blockchain.AccountInfo) {
				a[0].Lamports--
				a[1].Lamports++
			},
			wantErr: blockchain.ErrExternalLamportSpend,
		},
		{
			name:     "lamports created from nothing",
			owner:    func(id solana.PublicKey) solana.PublicKey { return id },
			writable: true,
			mutate:   func(a []*blockchain.AccountInfo) { a[0].Lamports++ },
			wantErr:  blockchain.ErrUnbalancedInstruction,
		},
		{
			name:     "owner reassignment with data",
			owner:    func(id solana.PublicKey) solana.PublicKey { return id },
			writable: true,
			mutate:   func(a []*blockchain.AccountInfo) { a[0].Owner = foreignOwner },
			wantErr:  blockchain.ErrModifiedProgramID,
		},
		{
			name:     "executable flip",
			owner:    func(id solana.PublicKey) solana.PublicKey { return id },
			writable: true,
			mutate:   func(a []*blockchain.AccountInfo) { a[0].Executable = true },
			wantErr:  blockchain.ErrExecutableModified,
		},
		{
			name:     "own data write",
			owner:    func(id solana.PublicKey) solana.PublicKey { return id },
			writable: true,
			mutate:   func(a []*blockchain.AccountInfo) { a[0].Data[0] = 9 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRuntimeFixture(t, func(_ context.Context, _ blockchain.Invoker, _ solana.PublicKey, accounts []*blockchain.AccountInfo, _ []byte) error {
				tt.mutate(accounts)
				return nil
			})

			target := solana.NewWallet().PublicKey()
			sink := solana.NewWallet().PublicKey()
			f.bank.SetAccount(target, &blockchain.Account{Lamports: 1000, Data: []byte{1, 2, 3}, Owner: tt.owner(f.programID)})
			f.bank.SetAccount(sink, &blockchain.Account{Lamports: 1000, Owner: f.programID})

			meta := solana.Meta(target)
			if tt.writable {
				meta.WRITE()
			}
			_, err := f.run(t, meta, solana.Meta(sink).WRITE())

			after, ok := f.bank.Account(target)
			require.True(t, ok)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, byte(9), after.Data[0])
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, []byte{1, 2, 3}, after.Data, "failed instruction must not be committed")
			assert.Equal(t, uint64(1000), after.Lamports)
		})
	}
}

func TestRuntime_InvokeSignedWithProgramAddress(t *testing.T) {
	seeds := [][]byte{[]byte("treasury")}
	recipient := solana.NewWallet().PublicKey()

	var (
		pda, other      solana.PublicKey
		bump, otherBump uint8
	)
	f := newRuntimeFixture(t, func(ctx context.Context, invoker blockchain.Invoker, programID solana.PublicKey, accounts []*blockchain.AccountInfo, data []byte) error {
		ix := system.NewTransferInstruction(500, pda, recipient).Build()
		if len(data) > 0 && data[0] == 1 {
			return invoker.InvokeSigned(ctx, ix, [][]byte{[]byte("other"), {otherBump}})
		}
		return invoker.InvokeSigned(ctx, ix, append(seeds, []byte{bump}))
	})

	var err error
	pda, bump, err = solana.FindProgramAddress(seeds, f.programID)
	require.NoError(t, err)
	other, otherBump, err = solana.FindProgramAddress([][]byte{[]byte("other")}, f.programID)
	require.NoError(t, err)
	require.NotEqual(t, pda, other)
	f.bank.Airdrop(pda, 10_000)

	metas := solana.AccountMetaSlice{
		solana.Meta(pda).WRITE(),
		solana.Meta(recipient).WRITE(),
		solana.Meta(solana.SystemProgramID),
	}
	_, err = f.bank.ProcessTransaction(context.Background(),
		buildTx(t, f.bank, []solana.PrivateKey{f.payer}, solana.NewInstruction(f.programID, metas, nil)))
	require.NoError(t, err)
	assert.Equal(t, uint64(500), lamportsOf(f.bank, recipient))
	assert.Equal(t, uint64(9_500), lamportsOf(f.bank, pda))

	_, err = f.bank.ProcessTransaction(context.Background(),
		buildTx(t, f.bank, []solana.PrivateKey{f.payer}, solana.NewInstruction(f.programID, metas, []byte{1})))
	assert.ErrorIs(t, err, blockchain.ErrPrivilegeEscalation)
	assert.Equal(t, uint64(500), lamportsOf(f.bank, recipient))
}

func TestRuntime_PrivilegeEscalation(t *testing.T) {
	victim := solana.NewWallet().PrivateKey
	recipient := solana.NewWallet().PublicKey()

	f := newRuntimeFixture(t, func(ctx context.Context, invoker blockchain.Invoker, _ solana.PublicKey, _ []*blockchain.AccountInfo, _ []byte) error {
		return invoker.Invoke(ctx, system.NewTransferInstruction(1, victim.PublicKey(), recipient).Build())
	})
	f.bank.Airdrop(victim.PublicKey(), 1_000)

	_, err := f.run(t,
		solana.Meta(victim.PublicKey()).WRITE(),
		solana.Meta(recipient).WRITE(),
		solana.Meta(solana.SystemProgramID))
	assert.ErrorIs(t, err, blockchain.ErrPrivilegeEscalation)
	assert.Equal(t, uint64(1_000), lamportsOf(f.bank, victim.PublicKey()))
}

func TestRuntime_MissingAccountInCall(t *testing.T) {
	outsider := solana.NewWallet().PublicKey()
	f := newRuntimeFixture(t, func(ctx context.Context, invoker blockchain.Invoker, _ solana.PublicKey, accounts []*blockchain.AccountInfo, _ []byte) error {
		return invoker.Invoke(ctx, system.NewTransferInstruction(1, accounts[0].Key, outsider).Build())
	})

	_, err := f.run(t, solana.Meta(f.payer.PublicKey()).WRITE().SIGNER(), solana.Meta(solana.SystemProgramID))
	assert.ErrorIs(t, err, blockchain.ErrMissingAccount)
}

func TestRuntime_CallDepth(t *testing.T) {
	calls := 0
	f := newRuntimeFixture(t, func(ctx context.Context, invoker blockchain.Invoker, programID solana.PublicKey, _ []*blockchain.AccountInfo, _ []byte) error {
		calls++
		return invoker.Invoke(ctx, solana.NewInstruction(programID, solana.AccountMetaSlice{solana.Meta(programID)}, nil))
	})

	_, err := f.run(t, solana.Meta(f.programID))
	assert.ErrorIs(t, err, blockchain.ErrCallDepth)
	assert.Equal(t, f.bank.maxDepth, calls)
}

func TestRuntime_FailureRollsBackNestedCalls(t *testing.T) {
	recipient := solana.NewWallet().PublicKey()
	boom := errors.New("boom")
	f := newRuntimeFixture(t, func(ctx context.Context, invoker blockchain.Invoker, _ solana.PublicKey, accounts []*blockchain.AccountInfo, _ []byte) error {
		if err := invoker.Invoke(ctx, system.NewTransferInstruction(700, accounts[0].Key, recipient).Build()); err != nil {
			return err
		}
		return boom
	})
	before := lamportsOf(f.bank, f.payer.PublicKey())

	res, err := f.run(t,
		solana.Meta(f.payer.PublicKey()).WRITE().SIGNER(),
		solana.Meta(recipient).WRITE(),
		solana.Meta(solana.SystemProgramID))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before-res.Fee, lamportsOf(f.bank, f.payer.PublicKey()))
	assert.Zero(t, lamportsOf(f.bank, recipient))
	assert.Contains(t, res.Logs, "Program 11111111111111111111111111111111 success")
}

func TestRuntime_LogsAreRecorded(t *testing.T) {
	f := newRuntimeFixture(t, func(_ context.Context, invoker blockchain.Invoker, _ solana.PublicKey, _ []*blockchain.AccountInfo, _ []byte) error {
		invoker.Log("hello %d", 42)
		return nil
	})

	res, err := f.run(t)
	require.NoError(t, err)
	assert.Contains(t, res.Logs, "Program log: hello 42")
	assert.Contains(t, res.Logs, "Program "+f.programID.String()+" invoke [1]")
}
