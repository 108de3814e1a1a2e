// internal/amm/accounts.go
package amm

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
)

// marketAccounts аккаунты рынка, которыми владеет программа.
type marketAccounts struct {
	tokenX *blockchain.AccountInfo
	tokenY *blockchain.AccountInfo
	ownerX *blockchain.AccountInfo
	ownerY *blockchain.AccountInfo
	vault  *blockchain.AccountInfo
}

// validate recomputes every program-owned address from the mint pair and
// compares it with the supplied account.
func (m marketAccounts) validate(invoker blockchain.Invoker, pda *Pda) error {
	checks := []struct {
		name     string
		expected solana.PublicKey
		info     *blockchain.AccountInfo
	}{
		{"owner token X", pda.OwnerTokenX, m.ownerX},
		{"owner token Y", pda.OwnerTokenY, m.ownerY},
		{"token X holder", pda.TokenX, m.tokenX},
		{"token Y holder", pda.TokenY, m.tokenY},
		{"vault", pda.Vault, m.vault},
	}
	for _, c := range checks {
		if err := ValidatePda(c.expected, c.info.Key); err != nil {
			invoker.Log("Error: %s address does not match seed derivation", c.name)
			return err
		}
	}
	return nil
}

func requireSigner(invoker blockchain.Invoker, name string, info *blockchain.AccountInfo) error {
	if !info.IsSigner {
		invoker.Log("Error: required signature for %s", name)
		return blockchain.ErrMissingRequiredSignature
	}
	return nil
}

func requireProgram(info *blockchain.AccountInfo, id solana.PublicKey) error {
	if !info.Key.Equals(id) {
		return blockchain.ErrIncorrectProgramID
	}
	return nil
}
