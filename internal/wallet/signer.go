// Package wallet provides transaction signers and the adapters that connect them.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/types"

	"solana-token-exchange/internal/solana"
)

var (
	// ErrSignatureDeclined is returned when the wallet refuses to sign.
	ErrSignatureDeclined = errors.New("signature declined")

	// ErrNotRequiredSigner is returned when the signer is not among the transaction's signers.
	ErrNotRequiredSigner = errors.New("signer is not required by transaction")
)

// Signer signs transactions on behalf of one account.
// Private key material never leaves the implementation.
type Signer interface {
	// PublicKey returns the account the signer controls.
	PublicKey() solana.PublicKey

	// SignTransaction returns tx with this signer's signature slot filled.
	SignTransaction(ctx context.Context, tx types.Transaction) (types.Transaction, error)
}

// KeypairSigner signs with an in-process ed25519 keypair.
type KeypairSigner struct {
	account types.Account
}

// Compile-time interface check.
var _ Signer = (*KeypairSigner)(nil)

// NewKeypairSigner wraps an SDK account.
func NewKeypairSigner(account types.Account) *KeypairSigner {
	return &KeypairSigner{account: account}
}

// PublicKey returns the keypair's public key.
func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.account.PublicKey
}

// SignTransaction signs the serialized message and stores the signature at
// the signer's position among the required signers.
func (s *KeypairSigner) SignTransaction(ctx context.Context, tx types.Transaction) (types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return tx, err
	}

	msg, err := tx.Message.Serialize()
	if err != nil {
		return tx, fmt.Errorf("serialize message: %w", err)
	}

	idx, err := signerIndex(tx, s.account.PublicKey)
	if err != nil {
		return tx, err
	}

	required := int(tx.Message.Header.NumRequireSignatures)
	sigs := make([]types.Signature, required)
	copy(sigs, tx.Signatures)
	sigs[idx] = s.account.Sign(msg)
	tx.Signatures = sigs
	return tx, nil
}

// signerIndex locates key among the leading signer accounts of the message.
func signerIndex(tx types.Transaction, key solana.PublicKey) (int, error) {
	required := int(tx.Message.Header.NumRequireSignatures)
	for i := 0; i < required && i < len(tx.Message.Accounts); i++ {
		if tx.Message.Accounts[i] == key {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNotRequiredSigner, key.ToBase58())
}

// Approver decides whether a transaction may be signed. summary describes the
// transaction for a human.
type Approver func(ctx context.Context, summary string) (bool, error)

// ApprovalSigner asks an Approver before delegating to the wrapped signer,
// the way a browser wallet shows a confirmation prompt.
type ApprovalSigner struct {
	Signer
	approve Approver
}

// NewApprovalSigner wraps signer with an approval step.
func NewApprovalSigner(signer Signer, approve Approver) *ApprovalSigner {
	return &ApprovalSigner{Signer: signer, approve: approve}
}

// SignTransaction returns ErrSignatureDeclined unless the approver agrees.
func (s *ApprovalSigner) SignTransaction(ctx context.Context, tx types.Transaction) (types.Transaction, error) {
	ok, err := s.approve(ctx, Summarize(tx))
	if err != nil {
		return tx, fmt.Errorf("%w: %v", ErrSignatureDeclined, err)
	}
	if !ok {
		return tx, ErrSignatureDeclined
	}
	return s.Signer.SignTransaction(ctx, tx)
}

// Summarize describes a transaction by its fee payer and instruction count.
func Summarize(tx types.Transaction) string {
	payer := "unknown"
	if len(tx.Message.Accounts) > 0 {
		payer = solana.ShortAddress(tx.Message.Accounts[0].ToBase58())
	}
	return fmt.Sprintf("%d instruction(s), %d signer(s), fee payer %s",
		len(tx.Message.Instructions), tx.Message.Header.NumRequireSignatures, payer)
}
