package localnet

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

func TestTokenProgram_InitializeMintAndMintTo(t *testing.T) {
	ctx := context.Background()
	bank := newTestBank(t)
	authority := newFundedKey(t, bank, 10_000_000_000)
	mintKey := solana.NewWallet().PrivateKey
	mint := mintKey.PublicKey()

	tx := buildTx(t, bank, []solana.PrivateKey{authority, mintKey},
		system.NewCreateAccountInstruction(bank.Rent().MinimumBalance(MintSize), MintSize, solana.TokenProgramID, authority.PublicKey(), mint).Build(),
		token.NewInitializeMintInstruction(6, authority.PublicKey(), solana.PublicKey{}, mint, solana.SysVarRentPubkey).Build(),
		associatedtokenaccount.NewCreateInstruction(authority.PublicKey(), authority.PublicKey(), mint).Build(),
	)
	_, err := bank.ProcessTransaction(ctx, tx)
	require.NoError(t, err)

	holder, _, err := solana.FindAssociatedTokenAddress(authority.PublicKey(), mint)
	require.NoError(t, err)

	tx = buildTx(t, bank, []solana.PrivateKey{authority},
		token.NewMintToInstruction(1_500, mint, holder, authority.PublicKey(), nil).Build())
	_, err = bank.ProcessTransaction(ctx, tx)
	require.NoError(t, err)

	balance, err := bank.TokenBalance(holder)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500), balance)

	acc, ok := bank.Account(mint)
	require.True(t, ok)
	state, err := DecodeMint(acc.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500), state.Supply)
	assert.Equal(t, uint8(6), state.Decimals)
	assert.Nil(t, state.FreezeAuthority)

	intruder := newFundedKey(t, bank, 1_000_000_000)
	tx = buildTx(t, bank, []solana.PrivateKey{intruder},
		token.NewMintToInstruction(1, mint, holder, intruder.PublicKey(), nil).Build())
	_, err = bank.ProcessTransaction(ctx, tx)
	assert.ErrorIs(t, err, blockchain.ErrOwnerMismatch)
}

func TestTokenProgram_Transfer(t *testing.T) {
	ctx := context.Background()
	bank := newTestBank(t)
	alice := newFundedKey(t, bank, 1_000_000_000)
	bob := newFundedKey(t, bank, 1_000_000_000)

	mint, err := bank.CreateMint(alice.PublicKey(), 0)
	require.NoError(t, err)
	otherMint, err := bank.CreateMint(alice.PublicKey(), 0)
	require.NoError(t, err)

	aliceHolder, err := bank.MintTo(mint, alice.PublicKey(), 1_000)
	require.NoError(t, err)
	bobHolder, err := bank.MintTo(mint, bob.PublicKey(), 0)
	require.NoError(t, err)
	bobOther, err := bank.MintTo(otherMint, bob.PublicKey(), 0)
	require.NoError(t, err)

	tests := []struct {
		name    string
		signer  solana.PrivateKey
		dst     solana.PublicKey
		amount  uint64
		wantErr error
	}{
		{"owner transfers", alice, bobHolder, 400, nil},
		{"wrong authority", bob, bobHolder, 1, blockchain.ErrOwnerMismatch},
		{"mint mismatch", alice, bobOther, 1, blockchain.ErrMintMismatch},
		{"insufficient balance", alice, bobHolder, 10_000, blockchain.ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := buildTx(t, bank, []solana.PrivateKey{tt.signer},
				token.NewTransferInstruction(tt.amount, aliceHolder, tt.dst, tt.signer.PublicKey(), nil).Build())
			_, err := bank.ProcessTransaction(ctx, tx)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	aliceBalance, err := bank.TokenBalance(aliceHolder)
	require.NoError(t, err)
	bobBalance, err := bank.TokenBalance(bobHolder)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), aliceBalance)
	assert.Equal(t, uint64(400), bobBalance)
}

func TestAssociatedTokenProgram_Create(t *testing.T) {
	ctx := context.Background()
	bank := newTestBank(t)
	payer := newFundedKey(t, bank, 10_000_000_000)
	wallet := solana.NewWallet().PublicKey()
	mint, err := bank.CreateMint(payer.PublicKey(), 9)
	require.NoError(t, err)

	create := associatedtokenaccount.NewCreateInstruction(payer.PublicKey(), wallet, mint).Build()
	_, err = bank.ProcessTransaction(ctx, buildTx(t, bank, []solana.PrivateKey{payer}, create))
	require.NoError(t, err)

	ata, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	require.NoError(t, err)
	acc, ok := bank.Account(ata)
	require.True(t, ok)
	assert.Equal(t, solana.TokenProgramID, acc.Owner)
	assert.Equal(t, bank.Rent().MinimumBalance(TokenAccountSize), acc.Lamports)

	state, err := DecodeTokenAccount(acc.Data)
	require.NoError(t, err)
	assert.Equal(t, wallet, state.Owner)
	assert.Equal(t, mint, state.Mint)
	assert.Equal(t, token.Initialized, state.State)

	_, err = bank.ProcessTransaction(ctx, buildTx(t, bank, []solana.PrivateKey{payer}, create))
	assert.ErrorIs(t, err, blockchain.ErrAccountAlreadyInUse)

	idempotent := solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, create.Accounts(), []byte{ataInstructionCreateIdempotent})
	_, err = bank.ProcessTransaction(ctx, buildTx(t, bank, []solana.PrivateKey{payer}, idempotent))
	assert.NoError(t, err)
}

func TestAssociatedTokenProgram_PrefundedAddress(t *testing.T) {
	ctx := context.Background()
	bank := newTestBank(t)
	payer := newFundedKey(t, bank, 10_000_000_000)
	wallet := solana.NewWallet().PublicKey()
	mint, err := bank.CreateMint(payer.PublicKey(), 9)
	require.NoError(t, err)

	ata, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	require.NoError(t, err)
	bank.Airdrop(ata, 1_000)

	create := associatedtokenaccount.NewCreateInstruction(payer.PublicKey(), wallet, mint).Build()
	_, err = bank.ProcessTransaction(ctx, buildTx(t, bank, []solana.PrivateKey{payer}, create))
	require.NoError(t, err)

	acc, ok := bank.Account(ata)
	require.True(t, ok)
	assert.Equal(t, solana.TokenProgramID, acc.Owner)
	assert.Equal(t, bank.Rent().MinimumBalance(TokenAccountSize), acc.Lamports)
}

func TestAssociatedTokenProgram_WrongAddress(t *testing.T) {
	ctx := context.Background()
	bank := newTestBank(t)
	payer := newFundedKey(t, bank, 10_000_000_000)
	mint, err := bank.CreateMint(payer.PublicKey(), 9)
	require.NoError(t, err)

	metas := associatedtokenaccount.NewCreateInstruction(payer.PublicKey(), payer.PublicKey(), mint).Build().Accounts()
	metas[1] = solana.Meta(solana.NewWallet().PublicKey()).WRITE()
	ix := solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, metas, nil)

	_, err = bank.ProcessTransaction(ctx, buildTx(t, bank, []solana.PrivateKey{payer}, ix))
	assert.ErrorIs(t, err, blockchain.ErrInvalidSeeds)
}

func TestGenesis_TokenBalanceErrors(t *testing.T) {
	bank := newTestBank(t)

	_, err := bank.TokenBalance(solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, blockchain.ErrAccountNotFound)

	plain := solana.NewWallet().PublicKey()
	bank.Airdrop(plain, 10)
	_, err = bank.TokenBalance(plain)
	assert.ErrorIs(t, err, blockchain.ErrIncorrectProgramID)

	_, err = bank.MintTo(solana.NewWallet().PublicKey(), plain, 1)
	assert.ErrorIs(t, err, blockchain.ErrAccountNotFound)
}
