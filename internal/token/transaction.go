package token

import (
	"context"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"

	"solana-token-exchange/internal/observability"
	"solana-token-exchange/internal/solana"
	"solana-token-exchange/internal/wallet"
)

// PendingTransaction is an ordered instruction list awaiting signatures.
// It is built fresh per operation, submitted once and discarded.
type PendingTransaction struct {
	FeePayer     solana.PublicKey
	Instructions []types.Instruction
	// CoSigners sign in-process before the wallet signs (e.g. a fresh mint keypair).
	CoSigners []types.Account
}

// Build compiles the instructions into a transaction carrying the co-signatures.
// The fee payer's slot is left empty for the wallet.
func (p PendingTransaction) Build(blockhash string) (types.Transaction, error) {
	tx, err := types.NewTransaction(types.NewTransactionParam{
		Signers: p.CoSigners,
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        p.FeePayer,
			RecentBlockhash: blockhash,
			Instructions:    p.Instructions,
		}),
	})
	if err != nil {
		return types.Transaction{}, fmt.Errorf("build transaction: %w", err)
	}
	return tx, nil
}

// submit obtains a blockhash, collects signatures, broadcasts once and waits
// for confirmation. Nothing is retried.
func (s *Service) submit(ctx context.Context, conn solana.Connection, signer wallet.Signer, kind string, p PendingTransaction) (sig string, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		observability.RecordOperation(kind, status, time.Since(start).Seconds())
	}()

	blockhash, err := conn.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("get blockhash: %w", err)
	}

	tx, err := p.Build(blockhash)
	if err != nil {
		return "", err
	}

	signed, err := signer.SignTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	raw, err := signed.Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}

	sig, err = conn.SendRawTransaction(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	if err := conn.ConfirmTransaction(ctx, sig); err != nil {
		return sig, fmt.Errorf("confirm transaction %s: %w", sig, err)
	}
	return sig, nil
}

// createTokenTx orders: create mint account, initialize mint, create the payer's ATA.
func createTokenTx(payer solana.PublicKey, mint types.Account, ata solana.PublicKey, rent uint64, decimals uint8) PendingTransaction {
	authority := payer
	return PendingTransaction{
		FeePayer: payer,
		Instructions: []types.Instruction{
			system.CreateAccount(system.CreateAccountParam{
				From:     payer,
				New:      mint.PublicKey,
				Owner:    solana.TokenProgramID,
				Lamports: rent,
				Space:    token.MintAccountSize,
			}),
			token.InitializeMint(token.InitializeMintParam{
				Decimals:   decimals,
				Mint:       mint.PublicKey,
				MintAuth:   authority,
				FreezeAuth: &authority,
			}),
			associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
				Funder:                 payer,
				Owner:                  payer,
				Mint:                   mint.PublicKey,
				AssociatedTokenAccount: ata,
			}),
		},
		CoSigners: []types.Account{mint},
	}
}

func mintToTx(authority, mint, destination solana.PublicKey, raw uint64) PendingTransaction {
	return PendingTransaction{
		FeePayer: authority,
		Instructions: []types.Instruction{
			token.MintTo(token.MintToParam{
				Mint:   mint,
				To:     destination,
				Auth:   authority,
				Amount: raw,
			}),
		},
	}
}

// transferTx prepends creation of the destination ATA only when it is missing.
func transferTx(owner, source, destinationOwner, destinationATA, mint solana.PublicKey, raw uint64, createATA bool) PendingTransaction {
	var ixs []types.Instruction
	if createATA {
		ixs = append(ixs, associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
			Funder:                 owner,
			Owner:                  destinationOwner,
			Mint:                   mint,
			AssociatedTokenAccount: destinationATA,
		}))
	}
	ixs = append(ixs, token.Transfer(token.TransferParam{
		From:   source,
		To:     destinationATA,
		Auth:   owner,
		Amount: raw,
	}))
	return PendingTransaction{FeePayer: owner, Instructions: ixs}
}
