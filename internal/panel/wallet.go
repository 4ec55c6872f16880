package panel

import (
	"context"
	"fmt"

	"solana-token-exchange/internal/session"
	"solana-token-exchange/internal/solana"
)

// WalletInfoView is the observable state of the wallet info panel.
type WalletInfoView struct {
	Connected    bool            `json:"connected"`
	Address      string          `json:"address,omitempty"`
	ShortAddress string          `json:"short_address,omitempty"`
	Balance      string          `json:"balance"`
	Network      string          `json:"network"`
	Loading      session.Loading `json:"loading"`
}

// WalletInfoPanel shows the connected account and its SOL balance.
type WalletInfoPanel struct {
	deps *Deps
}

// NewWalletInfoPanel creates a wallet info panel.
func NewWalletInfoPanel(deps *Deps) *WalletInfoPanel {
	return &WalletInfoPanel{deps: deps}
}

// View renders the session for display.
func (p *WalletInfoPanel) View() WalletInfoView {
	return walletInfo(p.deps.Session.Snapshot())
}

func walletInfo(s session.State) WalletInfoView {
	v := WalletInfoView{
		Connected: s.Connected(),
		Balance:   fmt.Sprintf("%.4f SOL", s.Balance),
		Network:   string(s.Network),
		Loading:   s.Loading,
	}
	if v.Connected {
		v.Address = s.Address()
		v.ShortAddress = solana.ShortAddress(v.Address)
	}
	return v
}

// Airdrop requests 1 SOL for the connected wallet.
func (p *WalletInfoPanel) Airdrop(ctx context.Context) error {
	return p.deps.Session.AirdropSol(ctx)
}

// Refresh re-reads the SOL balance.
func (p *WalletInfoPanel) Refresh(ctx context.Context) WalletInfoView {
	p.deps.Session.FetchBalance(ctx)
	return p.View()
}
