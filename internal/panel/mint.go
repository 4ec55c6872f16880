package panel

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"solana-token-exchange/internal/domain"
	"solana-token-exchange/internal/solana"
	"solana-token-exchange/internal/token"
	"solana-token-exchange/internal/wallet"
)

// MintForm holds the inputs of the mint panel.
type MintForm struct {
	TokenAddress string          `json:"token_address"`
	Amount       decimal.Decimal `json:"amount"`
}

// DefaultMintForm returns the initial mint form.
func DefaultMintForm() MintForm {
	return MintForm{Amount: decimal.NewFromInt(100)}
}

// MintView is the observable state of the mint panel.
type MintView struct {
	Status    Status   `json:"status"`
	Error     string   `json:"error,omitempty"`
	Form      MintForm `json:"form"`
	Signature string   `json:"signature,omitempty"`
}

// MintPanel mints supply of an existing token into the connected wallet's
// associated token account.
type MintPanel struct {
	deps    *Deps
	machine *Machine

	mu        sync.Mutex
	form      MintForm
	signature string
}

// NewMintPanel creates an idle mint panel.
func NewMintPanel(deps *Deps) *MintPanel {
	return &MintPanel{
		deps:    deps,
		machine: NewMachine(deps.SuccessDisplay, false),
		form:    DefaultMintForm(),
	}
}

// Submit mints form.Amount of form.TokenAddress to the connected wallet.
func (p *MintPanel) Submit(ctx context.Context, form MintForm) (string, error) {
	form.TokenAddress = strings.TrimSpace(form.TokenAddress)

	signer, state, err := p.deps.signer(ctx)
	if err != nil {
		return "", err
	}
	if form.TokenAddress == "" {
		return "", p.deps.missing(ctx, "Please enter a token address")
	}
	if err := p.machine.Begin(); err != nil {
		return "", err
	}

	p.mu.Lock()
	p.form = form
	p.signature = ""
	p.mu.Unlock()

	owner := signer.PublicKey()
	sig, err := p.mint(ctx, form, owner, signer)

	o := outcome{
		activity: domain.Activity{
			Kind:    domain.ActivityMint,
			Mint:    form.TokenAddress,
			Owner:   owner.ToBase58(),
			Amount:  form.Amount.String(),
			Network: string(state.Network),
		},
		successMsg: "Tokens minted successfully!",
		failureMsg: "Failed to mint tokens",
	}
	if err := p.deps.finish(ctx, p.machine, o, sig, err); err != nil {
		return "", err
	}

	p.mu.Lock()
	p.signature = sig
	p.mu.Unlock()
	return sig, nil
}

func (p *MintPanel) mint(ctx context.Context, form MintForm, owner solana.PublicKey, signer wallet.Signer) (string, error) {
	mint, err := token.ParseAddress("token address", form.TokenAddress)
	if err != nil {
		return "", err
	}
	destination, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return "", err
	}
	return p.deps.Tokens.MintToken(ctx, p.deps.Session.Connection(), signer, token.MintTokenParams{
		Mint:        form.TokenAddress,
		Destination: destination.ToBase58(),
		Amount:      form.Amount,
	})
}

// View returns the panel state.
func (p *MintPanel) View() MintView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return MintView{
		Status:    p.machine.Status(),
		Error:     p.machine.Err(),
		Form:      p.form,
		Signature: p.signature,
	}
}
