package panel

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-exchange/internal/domain"
	"solana-token-exchange/internal/notify"
	"solana-token-exchange/internal/session"
	"solana-token-exchange/internal/solana"
	"solana-token-exchange/internal/solana/stub"
	"solana-token-exchange/internal/storage"
	"solana-token-exchange/internal/storage/memory"
	tokensvc "solana-token-exchange/internal/token"
	"solana-token-exchange/internal/wallet"
)

type keyAdapter struct{ account types.Account }

func (keyAdapter) Name() string { return "test" }

func (a keyAdapter) Connect(context.Context, wallet.ConnectParams) (wallet.Signer, error) {
	return wallet.NewKeypairSigner(a.account), nil
}

type notes struct {
	mu    sync.Mutex
	items []notify.Notification
}

func (n *notes) Send(_ context.Context, item notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
	return nil
}

func (n *notes) last() notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.items) == 0 {
		return notify.Notification{}
	}
	return n.items[len(n.items)-1]
}

type env struct {
	panels  *Panels
	session *session.Provider
	conn    *stub.Connection
	notes   *notes
	store   *memory.ActivityStore
	account types.Account
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		conn:    stub.NewConnection(),
		notes:   &notes{},
		store:   memory.NewActivityStore(),
		account: types.NewAccount(),
	}

	quiet := zerolog.New(io.Discard)
	provider, err := session.NewProvider(solana.Devnet,
		func(solana.Cluster) (solana.Connection, error) { return e.conn, nil },
		session.WithLogger(quiet),
		session.WithNotifier(e.notes),
	)
	require.NoError(t, err)
	e.session = provider

	e.panels = New(Deps{
		Session:        provider,
		Tokens:         tokensvc.NewService(tokensvc.WithLogger(quiet)),
		Notifier:       e.notes,
		Journal:        storage.NewJournal(e.store),
		SuccessDisplay: 30 * time.Millisecond,
		Logger:         &quiet,
	})
	return e
}

func (e *env) connect(t *testing.T) {
	t.Helper()
	_, err := e.session.Connect(context.Background(), keyAdapter{account: e.account}, wallet.ConnectParams{})
	require.NoError(t, err)
}

func (e *env) journal(t *testing.T) []*domain.Activity {
	t.Helper()
	items, err := e.store.List(context.Background(), 50)
	require.NoError(t, err)
	return items
}

// holdTokens gives the connected wallet raw units of mint in its ATA.
func (e *env) holdTokens(t *testing.T, mint solana.PublicKey, decimals uint8, raw uint64) {
	t.Helper()
	info, _ := json.Marshal(map[string]interface{}{"decimals": decimals, "supply": "0"})
	e.conn.AddParsedAccount(mint, &solana.ParsedAccountInfo{
		Parsed: &solana.ParsedData{Program: "spl-token", Type: "mint", Info: info},
	})

	ata, err := solana.FindAssociatedTokenAddress(e.account.PublicKey, mint)
	require.NoError(t, err)
	data := make([]byte, token.TokenAccountSize)
	copy(data[0:32], mint[:])
	copy(data[32:64], e.account.PublicKey[:])
	binary.LittleEndian.PutUint64(data[64:72], raw)
	data[108] = 1
	e.conn.AddAccount(ata, &solana.AccountInfo{Data: data})
}

func TestPanels_RequireConnection(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.panels.Create.Submit(ctx, CreateForm{Name: "A", Symbol: "A"})
	assert.ErrorIs(t, err, session.ErrNotConnected)
	_, err = e.panels.Mint.Submit(ctx, MintForm{TokenAddress: "x", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, session.ErrNotConnected)
	_, err = e.panels.Send.Submit(ctx, SendForm{TokenAddress: "x", RecipientAddress: "y", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, session.ErrNotConnected)

	assert.Equal(t, "Please connect your wallet first", e.notes.last().Message)
	assert.Equal(t, StatusIdle, e.panels.Create.View().Status)
	assert.Zero(t, e.conn.SentCount())
}

func TestPanels_MissingFields(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	ctx := context.Background()

	_, err := e.panels.Create.Submit(ctx, CreateForm{Name: "Only name"})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Equal(t, "Please fill in all fields", e.notes.last().Message)

	_, err = e.panels.Mint.Submit(ctx, MintForm{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Equal(t, "Please enter a token address", e.notes.last().Message)

	_, err = e.panels.Send.Submit(ctx, SendForm{TokenAddress: "abc", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrMissingField)

	assert.Equal(t, StatusIdle, e.panels.Send.View().Status)
	assert.Empty(t, e.journal(t))
}

func TestPanels_BroadcastFailureNeverSucceeds(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	e.conn.ErrSend = errors.New("node unavailable")
	ctx := context.Background()
	mint := types.NewAccount().PublicKey.ToBase58()
	recipient := types.NewAccount().PublicKey.ToBase58()

	_, err := e.panels.Create.Submit(ctx, CreateForm{Name: "Test", Symbol: "TST", Decimals: 9})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, e.panels.Create.View().Status)
	assert.Nil(t, e.panels.Create.View().Result)
	assert.Equal(t, "Failed to create token", e.notes.last().Message)

	_, err = e.panels.Mint.Submit(ctx, MintForm{TokenAddress: mint, Amount: decimal.NewFromInt(100)})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, e.panels.Mint.View().Status)
	assert.Equal(t, "Failed to mint tokens", e.notes.last().Message)

	_, err = e.panels.Send.Submit(ctx, SendForm{TokenAddress: mint, RecipientAddress: recipient, Amount: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, e.panels.Send.View().Status)
	assert.Equal(t, "Failed to send tokens", e.notes.last().Message)

	// Still failed after the success display delay would have elapsed.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StatusFailed, e.panels.Mint.View().Status)
	assert.Equal(t, StatusFailed, e.panels.Send.View().Status)

	journal := e.journal(t)
	require.Len(t, journal, 3)
	for _, a := range journal {
		assert.Equal(t, domain.ActivityFailed, a.Status)
		assert.Contains(t, a.Error, "node unavailable")
	}
}

func TestCreatePanel_StickyUntilReset(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	ctx := context.Background()

	res, err := e.panels.Create.Submit(ctx, CreateForm{Name: "Gold", Symbol: "GLD", Decimals: 6})
	require.NoError(t, err)
	assert.NotEmpty(t, res.MintAddress)
	assert.Equal(t, "Token created successfully!", e.notes.last().Message)

	time.Sleep(60 * time.Millisecond)
	v := e.panels.Create.View()
	assert.Equal(t, StatusSucceeded, v.Status)
	require.NotNil(t, v.Result)
	assert.Equal(t, res.MintAddress, v.Result.MintAddress)

	require.NoError(t, e.panels.Create.Reset())
	v = e.panels.Create.View()
	assert.Equal(t, StatusIdle, v.Status)
	assert.Nil(t, v.Result)
	assert.Equal(t, DefaultCreateForm(), v.Form)

	journal := e.journal(t)
	require.Len(t, journal, 1)
	assert.Equal(t, domain.ActivityCreate, journal[0].Kind)
	assert.Equal(t, res.MintAddress, journal[0].Mint)
}

func TestMintPanel_SuccessRevertsToIdle(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	sig, err := e.panels.Mint.Submit(context.Background(), MintForm{
		TokenAddress: types.NewAccount().PublicKey.ToBase58(),
		Amount:       decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "sig-1", sig)
	assert.Equal(t, StatusSucceeded, e.panels.Mint.View().Status)
	assert.Equal(t, "Tokens minted successfully!", e.notes.last().Message)

	require.Eventually(t, func() bool {
		return e.panels.Mint.View().Status == StatusIdle
	}, time.Second, 5*time.Millisecond)
}

func TestMintPanel_InvalidAddressFails(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	_, err := e.panels.Mint.Submit(context.Background(), MintForm{TokenAddress: "not-base58!", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, tokensvc.ErrInvalidAddress)
	assert.Equal(t, StatusFailed, e.panels.Mint.View().Status)
	assert.Zero(t, e.conn.SentCount())
}

func TestSendPanel_CheckBalance(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	ctx := context.Background()
	mint := types.NewAccount().PublicKey

	e.holdTokens(t, mint, 2, 1250)
	balance, err := e.panels.Send.CheckBalance(ctx, mint.ToBase58())
	require.NoError(t, err)
	assert.Equal(t, "12.5", balance.String())
	require.NotNil(t, e.panels.Send.View().Balance)

	empty := types.NewAccount().PublicKey
	balance, err = e.panels.Send.CheckBalance(ctx, empty.ToBase58())
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	assert.Equal(t, "You don't have any tokens of this type", e.notes.last().Message)

	e.conn.ErrAccountInfo = errors.New("rpc down")
	_, err = e.panels.Send.CheckBalance(ctx, mint.ToBase58())
	assert.Error(t, err)
	assert.Nil(t, e.panels.Send.View().Balance, "unknown after a failed check")
	assert.Equal(t, "Failed to check token balance", e.notes.last().Message)
}

func TestSendPanel_RefusesAboveCheckedBalance(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	ctx := context.Background()
	mint := types.NewAccount().PublicKey
	e.holdTokens(t, mint, 0, 5)

	_, err := e.panels.Send.CheckBalance(ctx, mint.ToBase58())
	require.NoError(t, err)

	_, err = e.panels.Send.Submit(ctx, SendForm{
		TokenAddress:     mint.ToBase58(),
		RecipientAddress: types.NewAccount().PublicKey.ToBase58(),
		Amount:           decimal.NewFromInt(6),
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, StatusIdle, e.panels.Send.View().Status)
	assert.Zero(t, e.conn.SentCount())
}

func TestSendPanel_SuccessRechecksBalance(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	ctx := context.Background()
	mint := types.NewAccount().PublicKey
	e.holdTokens(t, mint, 0, 50)

	sig, err := e.panels.Send.Submit(ctx, SendForm{
		TokenAddress:     mint.ToBase58(),
		RecipientAddress: types.NewAccount().PublicKey.ToBase58(),
		Amount:           decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.Equal(t, "sig-1", sig)
	assert.Equal(t, "Tokens sent successfully!", e.notes.last().Message)

	require.Eventually(t, func() bool {
		v := e.panels.Send.View()
		return v.Status == StatusIdle && v.Balance != nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "50", e.panels.Send.View().Balance.String())

	journal := e.journal(t)
	require.Len(t, journal, 1)
	assert.Equal(t, domain.ActivityTransfer, journal[0].Kind)
	assert.Equal(t, "sig-1", journal[0].Signature)
	assert.Equal(t, "10", journal[0].Amount)
}

func TestBalancesPanel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.Empty(t, e.panels.Balances.Refresh(ctx))

	e.connect(t)
	e.conn.AddTokenAccounts(e.account.PublicKey,
		solana.ParsedTokenAccount{Mint: types.NewAccount().PublicKey.ToBase58(), Amount: "0"},
		solana.ParsedTokenAccount{Mint: types.NewAccount().PublicKey.ToBase58(), Amount: "5", UIAmount: 5},
	)

	tokens := e.panels.Balances.Refresh(ctx)
	require.Len(t, tokens, 1)
	require.Len(t, e.panels.Balances.View().Tokens, 1)

	e.session.Disconnect()
	assert.Empty(t, e.panels.Balances.View().Tokens)
}

func TestWalletInfoPanel(t *testing.T) {
	e := newEnv(t)

	v := e.panels.Wallet.View()
	assert.False(t, v.Connected)
	assert.Equal(t, "0.0000 SOL", v.Balance)
	assert.Equal(t, "devnet", v.Network)

	e.connect(t)
	e.conn.SetBalance(e.account.PublicKey, 1_234_567_890)
	v = e.panels.Wallet.Refresh(context.Background())

	addr := e.account.PublicKey.ToBase58()
	assert.True(t, v.Connected)
	assert.Equal(t, addr, v.Address)
	assert.Equal(t, addr[:6]+"..."+addr[len(addr)-4:], v.ShortAddress)
	assert.Equal(t, "1.2346 SOL", v.Balance)

	require.NoError(t, e.panels.Wallet.Airdrop(context.Background()))
	assert.Equal(t, "2.2346 SOL", e.panels.Wallet.View().Balance)
}

func TestBalancesPanel_ScopedToWalletAndNetwork(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.connect(t)
	e.conn.AddTokenAccounts(e.account.PublicKey,
		solana.ParsedTokenAccount{Mint: types.NewAccount().PublicKey.ToBase58(), Amount: "5", UIAmount: 5},
	)
	require.Len(t, e.panels.Balances.Refresh(ctx), 1)

	other := keyAdapter{account: types.NewAccount()}
	_, err := e.session.Connect(ctx, other, wallet.ConnectParams{})
	require.NoError(t, err)
	assert.Empty(t, e.panels.Balances.View().Tokens, "tokens of the previous wallet")
	assert.Empty(t, e.panels.Balances.Refresh(ctx))

	e.connect(t)
	require.Len(t, e.panels.Balances.Refresh(ctx), 1)
	require.Len(t, e.panels.Balances.View().Tokens, 1)

	require.NoError(t, e.session.SetNetwork(solana.Testnet))
	assert.Empty(t, e.panels.Balances.View().Tokens, "tokens of the previous network")
}

func TestSendPanel_CheckedBalanceScopedToWalletAndNetwork(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.connect(t)
	mint := types.NewAccount().PublicKey
	e.holdTokens(t, mint, 0, 5)

	_, err := e.panels.Send.CheckBalance(ctx, mint.ToBase58())
	require.NoError(t, err)
	require.NotNil(t, e.panels.Send.View().Balance)

	other := keyAdapter{account: types.NewAccount()}
	_, err = e.session.Connect(ctx, other, wallet.ConnectParams{})
	require.NoError(t, err)
	assert.Nil(t, e.panels.Send.View().Balance, "balance of the previous wallet")

	// The previous wallet's balance of 5 must not block this send.
	_, err = e.panels.Send.Submit(ctx, SendForm{
		TokenAddress:     mint.ToBase58(),
		RecipientAddress: types.NewAccount().PublicKey.ToBase58(),
		Amount:           decimal.NewFromInt(6),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, e.conn.SentCount())
	require.Eventually(t, func() bool {
		v := e.panels.Send.View()
		return v.Status == StatusIdle && v.Balance != nil
	}, time.Second, 5*time.Millisecond)
	assert.True(t, e.panels.Send.View().Balance.IsZero())

	e.connect(t)
	_, err = e.panels.Send.CheckBalance(ctx, mint.ToBase58())
	require.NoError(t, err)
	require.NoError(t, e.session.SetNetwork(solana.Testnet))
	assert.Nil(t, e.panels.Send.View().Balance, "balance of the previous network")
}

func TestPanels_AfterSessionClose(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.connect(t)
	require.NoError(t, e.session.Close())

	_, err := e.panels.Mint.Submit(ctx, MintForm{TokenAddress: types.NewAccount().PublicKey.ToBase58(), Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, session.ErrNotConnected)
	_, err = e.panels.Send.CheckBalance(ctx, types.NewAccount().PublicKey.ToBase58())
	assert.ErrorIs(t, err, session.ErrNotConnected)
	assert.Empty(t, e.panels.Balances.Refresh(ctx))
	assert.Zero(t, e.conn.SentCount())
}
