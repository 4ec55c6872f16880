// Package session holds the connected wallet, the active cluster connection
// and the cached SOL balance shared by every panel.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-token-exchange/internal/logging"
	"solana-token-exchange/internal/notify"
	"solana-token-exchange/internal/solana"
	"solana-token-exchange/internal/storage"
	"solana-token-exchange/internal/wallet"
)

// DefaultRefreshInterval is the period of the background balance refresh.
const DefaultRefreshInterval = 30 * time.Second

var (
	// ErrNotConnected is returned when an operation needs a wallet and none is connected.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrAirdropUnavailable is returned when the active cluster has no faucet.
	ErrAirdropUnavailable = errors.New("airdrop not available on this network")

	// ErrAirdropInProgress is returned while a previous airdrop is still pending.
	ErrAirdropInProgress = errors.New("airdrop already in progress")
)

// Loading flags in-flight session requests.
type Loading struct {
	Balance bool `json:"balance"`
	Airdrop bool `json:"airdrop"`
}

// State is the session as observed by readers. Account is nil while no
// wallet is connected.
type State struct {
	Network solana.Cluster
	Account *solana.PublicKey
	Balance float64
	Loading Loading
}

// Connected reports whether a wallet is connected.
func (s State) Connected() bool {
	return s.Account != nil
}

// Address returns the base58 account address, empty when disconnected.
func (s State) Address() string {
	if s.Account == nil {
		return ""
	}
	return s.Account.ToBase58()
}

// Scope identifies the account and network that data was read for. It is
// empty while disconnected.
func (s State) Scope() string {
	if s.Account == nil {
		return ""
	}
	return string(s.Network) + "/" + s.Account.ToBase58()
}

// ConnectionFactory builds the connection for a cluster.
type ConnectionFactory func(cluster solana.Cluster) (solana.Connection, error)

// Provider owns the session state. State changes go through Update; readers
// get copies from Snapshot.
type Provider struct {
	mu     sync.RWMutex
	state  State
	signer wallet.Signer
	conn   solana.Connection

	factory  ConnectionFactory
	notifier notify.Notifier
	journal  *storage.Journal
	interval time.Duration
	logger   zerolog.Logger

	refresh chan struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures Provider.
type Option func(*Provider)

// WithNotifier sets where user notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(p *Provider) { p.notifier = n }
}

// WithJournal sets the activity journal for airdrops.
func WithJournal(j *storage.Journal) Option {
	return func(p *Provider) { p.journal = j }
}

// WithRefreshInterval sets the background refresh period.
func WithRefreshInterval(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the provider logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// NewProvider creates a disconnected session on cluster.
func NewProvider(cluster solana.Cluster, factory ConnectionFactory, opts ...Option) (*Provider, error) {
	p := &Provider{
		factory:  factory,
		notifier: notify.Discard{},
		interval: DefaultRefreshInterval,
		logger:   logging.Session,
		refresh:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}

	conn, err := factory(cluster)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cluster, err)
	}
	p.conn = conn
	p.state.Network = cluster
	return p, nil
}

// Update applies fn to the state under the lock.
func (p *Provider) Update(fn func(*State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
}

// Snapshot returns a copy of the current state.
func (p *Provider) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.state
	if s.Account != nil {
		acc := *s.Account
		s.Account = &acc
	}
	return s
}

// Connection returns the connection of the active cluster, nil after Close.
func (p *Provider) Connection() solana.Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn
}

// Signer returns the connected signer or ErrNotConnected.
func (p *Provider) Signer() (wallet.Signer, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.signer == nil {
		return nil, ErrNotConnected
	}
	return p.signer, nil
}

// Connect connects a wallet through adapter, replacing any previous one.
func (p *Provider) Connect(ctx context.Context, adapter wallet.Adapter, params wallet.ConnectParams) (State, error) {
	signer, err := adapter.Connect(ctx, params)
	if err != nil {
		return p.Snapshot(), fmt.Errorf("connect %s wallet: %w", adapter.Name(), err)
	}

	account := signer.PublicKey()
	p.mu.Lock()
	p.signer = signer
	p.state.Account = &account
	p.state.Balance = 0
	p.mu.Unlock()

	setWalletConnected(true)
	p.logger.Info().
		Str("adapter", adapter.Name()).
		Str("account", solana.MaskAddress(account.ToBase58())).
		Msg("wallet connected")

	p.signalRefresh()
	return p.Snapshot(), nil
}

// Disconnect forgets the wallet and resets the balance.
func (p *Provider) Disconnect() {
	p.mu.Lock()
	wasConnected := p.signer != nil
	p.signer = nil
	p.state.Account = nil
	p.state.Balance = 0
	p.mu.Unlock()

	if wasConnected {
		setWalletConnected(false)
		p.logger.Info().Msg("wallet disconnected")
	}
	p.signalRefresh()
}

// SetNetwork switches the session to cluster with a fresh connection.
func (p *Provider) SetNetwork(cluster solana.Cluster) error {
	p.mu.RLock()
	same := p.state.Network == cluster
	p.mu.RUnlock()
	if same {
		return nil
	}

	conn, err := p.factory(cluster)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cluster, err)
	}

	p.mu.Lock()
	old := p.conn
	p.conn = conn
	p.state.Network = cluster
	p.state.Balance = 0
	p.mu.Unlock()

	closeConnection(old)
	p.logger.Info().Str("network", string(cluster)).Msg("network changed")
	p.signalRefresh()
	return nil
}

// Close releases the active connection.
func (p *Provider) Close() error {
	p.Stop()
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()
	closeConnection(conn)
	return nil
}

func closeConnection(conn solana.Connection) {
	if c, ok := conn.(io.Closer); ok {
		c.Close()
	}
}

func (p *Provider) signalRefresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}
