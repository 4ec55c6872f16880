package domain

import "time"

// ActivityKind names a mutating wallet operation.
type ActivityKind string

const (
	ActivityCreate   ActivityKind = "create"
	ActivityMint     ActivityKind = "mint"
	ActivityTransfer ActivityKind = "transfer"
	ActivityAirdrop  ActivityKind = "airdrop"
)

// ActivityStatus is the final outcome of an operation.
type ActivityStatus string

const (
	ActivitySucceeded ActivityStatus = "succeeded"
	ActivityFailed    ActivityStatus = "failed"
)

// Activity records the outcome of one mutating operation.
// Signature is empty when the operation failed before broadcast.
type Activity struct {
	ID        string         `json:"id"`
	Kind      ActivityKind   `json:"kind"`
	Status    ActivityStatus `json:"status"`
	Signature string         `json:"signature,omitempty"`
	Mint      string         `json:"mint,omitempty"`
	Owner     string         `json:"owner"`
	Amount    string         `json:"amount,omitempty"`
	Error     string         `json:"error,omitempty"`
	Network   string         `json:"network"`
	CreatedAt time.Time      `json:"created_at"`
}
