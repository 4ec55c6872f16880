// Package panel implements the interactive panels of the token page: create,
// mint, send, balances and wallet info. Each mutating panel serializes its own
// submissions and reports every outcome to the user and the activity journal.
package panel

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"solana-token-exchange/internal/domain"
	"solana-token-exchange/internal/logging"
	"solana-token-exchange/internal/notify"
	"solana-token-exchange/internal/session"
	"solana-token-exchange/internal/storage"
	"solana-token-exchange/internal/token"
	"solana-token-exchange/internal/wallet"
)

// ErrMissingField is returned when a required form field is empty.
var ErrMissingField = errors.New("missing required field")

const msgConnectFirst = "Please connect your wallet first"

// Deps are the collaborators shared by all panels.
type Deps struct {
	Session        *session.Provider
	Tokens         *token.Service
	Notifier       notify.Notifier
	Journal        *storage.Journal
	SuccessDisplay time.Duration
	// Logger defaults to the panel component logger.
	Logger *zerolog.Logger

	log zerolog.Logger
}

func (d *Deps) normalize() {
	if d.Notifier == nil {
		d.Notifier = notify.Discard{}
	}
	if d.SuccessDisplay <= 0 {
		d.SuccessDisplay = DefaultSuccessDisplay
	}
	d.log = logging.Panel
	if d.Logger != nil {
		d.log = *d.Logger
	}
}

// signer returns the connected wallet or notifies the user and fails.
func (d *Deps) signer(ctx context.Context) (wallet.Signer, session.State, error) {
	state := d.Session.Snapshot()
	s, err := d.Session.Signer()
	if err == nil && d.Session.Connection() == nil {
		err = session.ErrNotConnected
	}
	if err != nil {
		notify.Error(ctx, d.Notifier, msgConnectFirst)
		return nil, state, err
	}
	return s, state, nil
}

// missing notifies about empty required fields.
func (d *Deps) missing(ctx context.Context, message string) error {
	notify.Error(ctx, d.Notifier, message)
	return ErrMissingField
}

// outcome describes how to report one submission.
type outcome struct {
	activity   domain.Activity
	successMsg string
	failureMsg string
	onRevert   func()
}

// finish moves m to its final state and reports the result. It must follow
// a successful m.Begin.
func (d *Deps) finish(ctx context.Context, m *Machine, o outcome, sig string, err error) error {
	o.activity.Signature = sig
	if err != nil {
		m.Fail(err)
		o.activity.Status = domain.ActivityFailed
		o.activity.Error = err.Error()
		d.Journal.Record(ctx, o.activity)

		d.log.Error().
			Err(err).
			Str("kind", string(o.activity.Kind)).
			Str("signature", sig).
			Msg("operation failed")
		notify.Error(ctx, d.Notifier, o.failureMsg)
		return err
	}

	m.Succeed(o.onRevert)
	o.activity.Status = domain.ActivitySucceeded
	d.Journal.Record(ctx, o.activity)

	d.log.Info().
		Str("kind", string(o.activity.Kind)).
		Str("signature", sig).
		Msg("operation succeeded")
	notify.Success(ctx, d.Notifier, o.successMsg)
	return nil
}

// Panels groups every panel of the page.
type Panels struct {
	Create   *CreatePanel
	Mint     *MintPanel
	Send     *SendPanel
	Balances *BalancesPanel
	Wallet   *WalletInfoPanel
}

// New builds all panels over deps.
func New(deps Deps) *Panels {
	deps.normalize()
	d := &deps
	return &Panels{
		Create:   NewCreatePanel(d),
		Mint:     NewMintPanel(d),
		Send:     NewSendPanel(d),
		Balances: NewBalancesPanel(d),
		Wallet:   NewWalletInfoPanel(d),
	}
}
