package solana

import "context"

// WSClient defines the Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature waits for a single notification about signature at commitment.
	SubscribeSignature(ctx context.Context, signature, commitment string) (<-chan SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification is the one-shot result of a signatureSubscribe.
// Err is the on-chain error, nil when the transaction succeeded.
type SignatureNotification struct {
	Signature string
	Slot      uint64
	Err       interface{}
}
