package solana

import "context"

// Connection defines the Solana RPC surface used by the application.
// Read methods return (nil, nil) when an account does not exist.
type Connection interface {
	// GetBalance returns the lamport balance of an account.
	GetBalance(ctx context.Context, account PublicKey) (uint64, error)

	// GetAccountInfo returns raw (base64-decoded) account data.
	GetAccountInfo(ctx context.Context, account PublicKey) (*AccountInfo, error)

	// GetParsedAccountInfo returns account data in jsonParsed encoding.
	GetParsedAccountInfo(ctx context.Context, account PublicKey) (*ParsedAccountInfo, error)

	// GetParsedTokenAccountsByOwner lists token accounts owned by owner under a token program.
	GetParsedTokenAccountsByOwner(ctx context.Context, owner, programID PublicKey) ([]ParsedTokenAccount, error)

	// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for an account of size bytes.
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)

	// GetLatestBlockhash returns a recent blockhash for transaction assembly.
	GetLatestBlockhash(ctx context.Context) (string, error)

	// SendRawTransaction broadcasts a signed, serialized transaction and returns its signature.
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)

	// ConfirmTransaction blocks until the signature reaches the configured commitment.
	ConfirmTransaction(ctx context.Context, signature string) error

	// RequestAirdrop asks the cluster faucet for lamports.
	RequestAirdrop(ctx context.Context, to PublicKey, lamports uint64) (string, error)
}
