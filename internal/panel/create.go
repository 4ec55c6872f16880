package panel

import (
	"context"
	"strings"
	"sync"

	"solana-token-exchange/internal/domain"
	"solana-token-exchange/internal/token"
)

// CreateForm holds the inputs of the create panel.
type CreateForm struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// DefaultCreateForm returns the initial create form.
func DefaultCreateForm() CreateForm {
	return CreateForm{Decimals: token.DefaultDecimals}
}

// CreateView is the observable state of the create panel.
type CreateView struct {
	Status Status                   `json:"status"`
	Error  string                   `json:"error,omitempty"`
	Form   CreateForm               `json:"form"`
	Result *token.CreateTokenResult `json:"result,omitempty"`
}

// CreatePanel creates new fungible tokens. A success stays visible, with the
// new mint address, until Reset.
type CreatePanel struct {
	deps    *Deps
	machine *Machine

	mu     sync.Mutex
	form   CreateForm
	result *token.CreateTokenResult
}

// NewCreatePanel creates an idle create panel.
func NewCreatePanel(deps *Deps) *CreatePanel {
	return &CreatePanel{
		deps:    deps,
		machine: NewMachine(deps.SuccessDisplay, true),
		form:    DefaultCreateForm(),
	}
}

// Submit creates a token described by form.
func (p *CreatePanel) Submit(ctx context.Context, form CreateForm) (*token.CreateTokenResult, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Symbol = strings.TrimSpace(form.Symbol)

	signer, state, err := p.deps.signer(ctx)
	if err != nil {
		return nil, err
	}
	if form.Name == "" || form.Symbol == "" {
		return nil, p.deps.missing(ctx, "Please fill in all fields")
	}
	if err := p.machine.Begin(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.form = form
	p.result = nil
	p.mu.Unlock()

	res, err := p.deps.Tokens.CreateToken(ctx, p.deps.Session.Connection(), signer, token.CreateTokenParams{
		Name:     form.Name,
		Symbol:   form.Symbol,
		Decimals: form.Decimals,
	})

	o := outcome{
		activity: domain.Activity{
			Kind:    domain.ActivityCreate,
			Owner:   signer.PublicKey().ToBase58(),
			Network: string(state.Network),
		},
		successMsg: "Token created successfully!",
		failureMsg: "Failed to create token",
	}
	var sig string
	if res != nil {
		sig = res.Signature
		o.activity.Mint = res.MintAddress
		p.mu.Lock()
		p.result = res
		p.mu.Unlock()
	}
	if err := p.deps.finish(ctx, p.machine, o, sig, err); err != nil {
		return nil, err
	}
	return res, nil
}

// Reset clears the form and the created token.
func (p *CreatePanel) Reset() error {
	if err := p.machine.Reset(); err != nil {
		return err
	}
	p.mu.Lock()
	p.form = DefaultCreateForm()
	p.result = nil
	p.mu.Unlock()
	return nil
}

// View returns the panel state.
func (p *CreatePanel) View() CreateView {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := CreateView{
		Status: p.machine.Status(),
		Error:  p.machine.Err(),
		Form:   p.form,
	}
	if p.result != nil {
		r := *p.result
		v.Result = &r
	}
	return v
}
