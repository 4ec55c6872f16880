package session

import (
	"context"
	"fmt"

	"solana-token-exchange/internal/domain"
	"solana-token-exchange/internal/notify"
	"solana-token-exchange/internal/observability"
	"solana-token-exchange/internal/solana"
)

// AirdropLamports is the amount requested by AirdropSol: exactly 1 SOL.
const AirdropLamports = solana.LamportsPerSOL

// User-facing messages.
const (
	msgBalanceFailed  = "Failed to fetch wallet balance"
	msgConnectFirst   = "Please connect your wallet first"
	msgAirdropOK      = "Airdrop of 1 SOL successful!"
	msgAirdropFailed  = "Failed to airdrop SOL"
	msgAirdropMainnet = "Airdrop is not available on mainnet-beta"
)

// FetchBalance refreshes the cached SOL balance. Without a wallet the
// balance is reset to zero. On failure, or after Close, the previous balance
// is kept.
func (p *Provider) FetchBalance(ctx context.Context) {
	p.mu.Lock()
	if p.state.Account == nil {
		p.state.Balance = 0
		p.mu.Unlock()
		return
	}
	account := *p.state.Account
	conn := p.conn
	if conn == nil {
		p.mu.Unlock()
		return
	}
	p.state.Loading.Balance = true
	p.mu.Unlock()

	lamports, err := conn.GetBalance(ctx, account)

	p.mu.Lock()
	p.state.Loading.Balance = false
	// Drop results for an account or connection that changed meanwhile.
	current := p.state.Account != nil && *p.state.Account == account && p.conn == conn
	var sol float64
	if err == nil && current {
		sol = float64(lamports) / float64(solana.LamportsPerSOL)
		p.state.Balance = sol
	}
	p.mu.Unlock()

	observability.RecordBalance(sol, err)
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("account", solana.MaskAddress(account.ToBase58())).
			Msg("failed to fetch balance")
		notify.Error(ctx, p.notifier, msgBalanceFailed)
	}
}

// AirdropSol requests 1 SOL from the cluster faucet for the connected
// wallet, waits for confirmation and refreshes the balance.
func (p *Provider) AirdropSol(ctx context.Context) error {
	p.mu.Lock()
	if p.state.Account == nil || p.conn == nil {
		p.mu.Unlock()
		notify.Error(ctx, p.notifier, msgConnectFirst)
		return ErrNotConnected
	}
	network := p.state.Network
	if !network.AirdropAllowed() {
		p.mu.Unlock()
		notify.Error(ctx, p.notifier, msgAirdropMainnet)
		return fmt.Errorf("%w: %s", ErrAirdropUnavailable, network)
	}
	if p.state.Loading.Airdrop {
		p.mu.Unlock()
		return ErrAirdropInProgress
	}
	account := *p.state.Account
	conn := p.conn
	p.state.Loading.Airdrop = true
	p.mu.Unlock()

	defer p.Update(func(s *State) { s.Loading.Airdrop = false })

	activity := domain.Activity{
		Kind:    domain.ActivityAirdrop,
		Owner:   account.ToBase58(),
		Amount:  "1",
		Network: string(network),
	}

	sig, err := conn.RequestAirdrop(ctx, account, AirdropLamports)
	if err == nil {
		activity.Signature = sig
		err = conn.ConfirmTransaction(ctx, sig)
	}
	if err != nil {
		observability.RecordAirdrop("error")
		activity.Status = domain.ActivityFailed
		activity.Error = err.Error()
		p.journal.Record(ctx, activity)

		p.logger.Error().
			Err(err).
			Str("account", solana.MaskAddress(account.ToBase58())).
			Msg("airdrop failed")
		notify.Error(ctx, p.notifier, msgAirdropFailed)
		return fmt.Errorf("airdrop: %w", err)
	}

	observability.RecordAirdrop("success")
	activity.Status = domain.ActivitySucceeded
	p.journal.Record(ctx, activity)

	p.logger.Info().
		Str("account", solana.MaskAddress(account.ToBase58())).
		Str("signature", sig).
		Msg("airdrop confirmed")
	notify.Success(ctx, p.notifier, msgAirdropOK)

	p.FetchBalance(ctx)
	return nil
}

func setWalletConnected(connected bool) {
	observability.SetWalletConnected(connected)
}
