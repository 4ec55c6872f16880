// Package stub provides an in-memory solana.Connection for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-token-exchange/internal/solana"
)

// Connection implements solana.Connection for testing.
// Accounts that were never added read as missing. Err* fields inject failures.
type Connection struct {
	mu sync.Mutex

	Balances       map[solana.PublicKey]uint64
	Accounts       map[solana.PublicKey]*solana.AccountInfo
	ParsedAccounts map[solana.PublicKey]*solana.ParsedAccountInfo
	TokenAccounts  map[solana.PublicKey][]solana.ParsedTokenAccount
	RentExempt     uint64
	Blockhash      string

	ErrBalance       error
	ErrAccountInfo   error
	ErrParsedAccount error
	ErrTokenAccounts error
	ErrRent          error
	ErrBlockhash     error
	ErrSend          error
	ErrConfirm       error
	ErrAirdrop       error

	// Sent holds every raw transaction passed to SendRawTransaction.
	Sent [][]byte
	// Confirmed holds every signature passed to ConfirmTransaction.
	Confirmed []string
	// Airdrops holds the lamports of every airdrop request, in order.
	Airdrops []uint64
	// Calls counts invocations per method name.
	Calls map[string]int
}

// Compile-time interface check.
var _ solana.Connection = (*Connection)(nil)

// NewConnection creates a new stub connection.
func NewConnection() *Connection {
	return &Connection{
		Balances:       make(map[solana.PublicKey]uint64),
		Accounts:       make(map[solana.PublicKey]*solana.AccountInfo),
		ParsedAccounts: make(map[solana.PublicKey]*solana.ParsedAccountInfo),
		TokenAccounts:  make(map[solana.PublicKey][]solana.ParsedTokenAccount),
		RentExempt:     1_461_600,
		Blockhash:      "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
		Calls:          make(map[string]int),
	}
}

func (c *Connection) count(method string) {
	c.Calls[method]++
}

// CallCount returns how many times method was invoked.
func (c *Connection) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[method]
}

// SentCount returns the number of broadcast transactions.
func (c *Connection) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

// SetBalance sets the lamport balance of account.
func (c *Connection) SetBalance(account solana.PublicKey, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[account] = lamports
}

// AddAccount registers a raw account.
func (c *Connection) AddAccount(account solana.PublicKey, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[account] = info
}

// AddParsedAccount registers a jsonParsed account.
func (c *Connection) AddParsedAccount(account solana.PublicKey, info *solana.ParsedAccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ParsedAccounts[account] = info
}

// AddTokenAccounts registers the token accounts owned by owner.
func (c *Connection) AddTokenAccounts(owner solana.PublicKey, accounts ...solana.ParsedTokenAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TokenAccounts[owner] = append(c.TokenAccounts[owner], accounts...)
}

// GetBalance returns the stored balance, zero when unknown.
func (c *Connection) GetBalance(_ context.Context, account solana.PublicKey) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("getBalance")
	if c.ErrBalance != nil {
		return 0, c.ErrBalance
	}
	return c.Balances[account], nil
}

// GetAccountInfo returns the stored account or nil.
func (c *Connection) GetAccountInfo(_ context.Context, account solana.PublicKey) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("getAccountInfo")
	if c.ErrAccountInfo != nil {
		return nil, c.ErrAccountInfo
	}
	return c.Accounts[account], nil
}

// GetParsedAccountInfo returns the stored parsed account or nil.
func (c *Connection) GetParsedAccountInfo(_ context.Context, account solana.PublicKey) (*solana.ParsedAccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("getParsedAccountInfo")
	if c.ErrParsedAccount != nil {
		return nil, c.ErrParsedAccount
	}
	return c.ParsedAccounts[account], nil
}

// GetParsedTokenAccountsByOwner returns the stored token accounts of owner.
func (c *Connection) GetParsedTokenAccountsByOwner(_ context.Context, owner, _ solana.PublicKey) ([]solana.ParsedTokenAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("getTokenAccountsByOwner")
	if c.ErrTokenAccounts != nil {
		return nil, c.ErrTokenAccounts
	}
	out := make([]solana.ParsedTokenAccount, len(c.TokenAccounts[owner]))
	copy(out, c.TokenAccounts[owner])
	return out, nil
}

// GetMinimumBalanceForRentExemption returns RentExempt for any size.
func (c *Connection) GetMinimumBalanceForRentExemption(_ context.Context, _ uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("getMinimumBalanceForRentExemption")
	if c.ErrRent != nil {
		return 0, c.ErrRent
	}
	return c.RentExempt, nil
}

// GetLatestBlockhash returns Blockhash.
func (c *Connection) GetLatestBlockhash(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("getLatestBlockhash")
	if c.ErrBlockhash != nil {
		return "", c.ErrBlockhash
	}
	return c.Blockhash, nil
}

// SendRawTransaction records raw and returns a synthetic signature.
func (c *Connection) SendRawTransaction(_ context.Context, raw []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("sendTransaction")
	if c.ErrSend != nil {
		return "", c.ErrSend
	}
	c.Sent = append(c.Sent, append([]byte(nil), raw...))
	return fmt.Sprintf("sig-%d", len(c.Sent)), nil
}

// ConfirmTransaction records signature and returns ErrConfirm.
func (c *Connection) ConfirmTransaction(_ context.Context, signature string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("confirmTransaction")
	c.Confirmed = append(c.Confirmed, signature)
	return c.ErrConfirm
}

// RequestAirdrop credits lamports to the stored balance of to.
func (c *Connection) RequestAirdrop(_ context.Context, to solana.PublicKey, lamports uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count("requestAirdrop")
	if c.ErrAirdrop != nil {
		return "", c.ErrAirdrop
	}
	c.Airdrops = append(c.Airdrops, lamports)
	c.Balances[to] += lamports
	return fmt.Sprintf("airdrop-%d", len(c.Airdrops)), nil
}
