package panel

import (
	"context"
	"sync"

	"solana-token-exchange/internal/token"
)

// BalancesView is the observable state of the balances panel.
type BalancesView struct {
	Tokens  []token.Descriptor `json:"tokens"`
	Loading bool               `json:"loading"`
}

// BalancesPanel lists the tokens held by the connected wallet. The list is
// only shown for the account and network it was read for.
type BalancesPanel struct {
	deps *Deps

	mu      sync.Mutex
	tokens  []token.Descriptor
	scope   string
	loading bool
}

// NewBalancesPanel creates an empty balances panel.
func NewBalancesPanel(deps *Deps) *BalancesPanel {
	return &BalancesPanel{deps: deps, tokens: []token.Descriptor{}}
}

// Refresh reloads the token list. Without a wallet the list is emptied.
func (p *BalancesPanel) Refresh(ctx context.Context) []token.Descriptor {
	state := p.deps.Session.Snapshot()
	conn := p.deps.Session.Connection()
	if !state.Connected() || conn == nil {
		p.mu.Lock()
		p.tokens = []token.Descriptor{}
		p.scope = ""
		p.mu.Unlock()
		return []token.Descriptor{}
	}

	p.mu.Lock()
	p.loading = true
	p.mu.Unlock()

	tokens := p.deps.Tokens.GetAllTokensForWallet(ctx, conn, *state.Account)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	p.tokens = tokens
	p.scope = state.Scope()
	return append([]token.Descriptor{}, tokens...)
}

// View returns the panel state. Tokens read for another account or network,
// or while disconnected, are not shown.
func (p *BalancesPanel) View() BalancesView {
	state := p.deps.Session.Snapshot()

	p.mu.Lock()
	defer p.mu.Unlock()
	v := BalancesView{Tokens: []token.Descriptor{}, Loading: p.loading}
	if state.Connected() && p.scope == state.Scope() {
		v.Tokens = append(v.Tokens, p.tokens...)
	}
	return v
}
