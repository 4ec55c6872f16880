package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"solana-token-exchange/internal/domain"
	"solana-token-exchange/internal/notify"
	"solana-token-exchange/internal/session"
	"solana-token-exchange/internal/solana"
	"solana-token-exchange/internal/token"
	"solana-token-exchange/internal/wallet"
)

// ErrInsufficientBalance is returned when the last checked balance cannot
// cover the amount.
var ErrInsufficientBalance = errors.New("insufficient token balance")

// SendForm holds the inputs of the send panel.
type SendForm struct {
	TokenAddress     string          `json:"token_address"`
	RecipientAddress string          `json:"recipient_address"`
	Amount           decimal.Decimal `json:"amount"`
}

// DefaultSendForm returns the initial send form.
func DefaultSendForm() SendForm {
	return SendForm{Amount: decimal.NewFromInt(10)}
}

// SendView is the observable state of the send panel. Balance is nil while
// unknown.
type SendView struct {
	Status    Status           `json:"status"`
	Error     string           `json:"error,omitempty"`
	Form      SendForm         `json:"form"`
	Signature string           `json:"signature,omitempty"`
	Balance   *decimal.Decimal `json:"balance"`
	Checking  bool             `json:"checking"`
}

// SendPanel transfers tokens from the connected wallet's associated token
// account to a recipient.
type SendPanel struct {
	deps    *Deps
	machine *Machine

	mu        sync.Mutex
	form      SendForm
	signature string
	checking  bool

	// The last checked balance, with the mint and session scope it was
	// read for.
	balance      *decimal.Decimal
	balanceMint  string
	balanceScope string
}

// NewSendPanel creates an idle send panel.
func NewSendPanel(deps *Deps) *SendPanel {
	return &SendPanel{
		deps:    deps,
		machine: NewMachine(deps.SuccessDisplay, false),
		form:    DefaultSendForm(),
	}
}

// CheckBalance reads the connected wallet's balance of tokenAddress. On
// failure the balance becomes unknown and the error is returned.
func (p *SendPanel) CheckBalance(ctx context.Context, tokenAddress string) (decimal.Decimal, error) {
	tokenAddress = strings.TrimSpace(tokenAddress)
	state := p.deps.Session.Snapshot()
	conn := p.deps.Session.Connection()
	if !state.Connected() || conn == nil {
		return decimal.Zero, session.ErrNotConnected
	}
	if tokenAddress == "" {
		return decimal.Zero, ErrMissingField
	}

	p.mu.Lock()
	p.checking = true
	p.form.TokenAddress = tokenAddress
	p.mu.Unlock()

	balance, err := p.deps.Tokens.CheckTokenBalance(ctx, conn, *state.Account, tokenAddress)

	p.mu.Lock()
	p.checking = false
	if err != nil {
		p.balance = nil
		p.balanceMint = ""
		p.balanceScope = ""
	} else {
		p.balance = &balance
		p.balanceMint = tokenAddress
		p.balanceScope = state.Scope()
	}
	p.mu.Unlock()

	if err != nil {
		p.deps.log.Warn().Err(err).Str("mint", solana.MaskAddress(tokenAddress)).Msg("balance check failed")
		notify.Error(ctx, p.deps.Notifier, "Failed to check token balance")
		return decimal.Zero, err
	}
	if balance.IsZero() {
		notify.Error(ctx, p.deps.Notifier, "You don't have any tokens of this type")
	}
	return balance, nil
}

// Submit sends form.Amount of form.TokenAddress to form.RecipientAddress.
// After the success display delay the balance is checked again.
func (p *SendPanel) Submit(ctx context.Context, form SendForm) (string, error) {
	form.TokenAddress = strings.TrimSpace(form.TokenAddress)
	form.RecipientAddress = strings.TrimSpace(form.RecipientAddress)

	signer, state, err := p.deps.signer(ctx)
	if err != nil {
		return "", err
	}
	if form.TokenAddress == "" || form.RecipientAddress == "" {
		return "", p.deps.missing(ctx, "Please fill in all fields")
	}
	if err := p.coveredByBalance(form, state.Scope()); err != nil {
		notify.Error(ctx, p.deps.Notifier, "You don't have enough tokens of this type")
		return "", err
	}
	if err := p.machine.Begin(); err != nil {
		return "", err
	}

	p.mu.Lock()
	p.form = form
	p.signature = ""
	p.mu.Unlock()

	owner := signer.PublicKey()
	sig, err := p.send(ctx, form, owner, signer)

	tokenAddress := form.TokenAddress
	o := outcome{
		activity: domain.Activity{
			Kind:    domain.ActivityTransfer,
			Mint:    form.TokenAddress,
			Owner:   owner.ToBase58(),
			Amount:  form.Amount.String(),
			Network: string(state.Network),
		},
		successMsg: "Tokens sent successfully!",
		failureMsg: "Failed to send tokens",
		onRevert: func() {
			p.CheckBalance(context.Background(), tokenAddress)
		},
	}
	if err := p.deps.finish(ctx, p.machine, o, sig, err); err != nil {
		return "", err
	}

	p.mu.Lock()
	p.signature = sig
	p.mu.Unlock()
	return sig, nil
}

// coveredByBalance refuses amounts above a balance checked for the same
// token, account and network.
func (p *SendPanel) coveredByBalance(form SendForm, scope string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.balance == nil || p.balanceMint != form.TokenAddress || p.balanceScope != scope {
		return nil
	}
	if p.balance.IsZero() || p.balance.LessThan(form.Amount) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, p.balance, form.Amount)
	}
	return nil
}

func (p *SendPanel) send(ctx context.Context, form SendForm, owner solana.PublicKey, signer wallet.Signer) (string, error) {
	mint, err := token.ParseAddress("token address", form.TokenAddress)
	if err != nil {
		return "", err
	}
	if _, err := token.ParseAddress("recipient address", form.RecipientAddress); err != nil {
		return "", err
	}
	source, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return "", err
	}
	return p.deps.Tokens.TransferToken(ctx, p.deps.Session.Connection(), signer, token.TransferTokenParams{
		Source:    source.ToBase58(),
		Recipient: form.RecipientAddress,
		Mint:      form.TokenAddress,
		Amount:    form.Amount,
	})
}

// View returns the panel state. A balance read for another account or
// network is shown as unknown.
func (p *SendPanel) View() SendView {
	scope := p.deps.Session.Snapshot().Scope()

	p.mu.Lock()
	defer p.mu.Unlock()
	v := SendView{
		Status:    p.machine.Status(),
		Error:     p.machine.Err(),
		Form:      p.form,
		Signature: p.signature,
		Checking:  p.checking,
	}
	if p.balance != nil && p.balanceScope == scope {
		b := *p.balance
		v.Balance = &b
	}
	return v
}
