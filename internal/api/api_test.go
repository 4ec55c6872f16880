package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-exchange/internal/notify"
	"solana-token-exchange/internal/page"
	"solana-token-exchange/internal/panel"
	"solana-token-exchange/internal/session"
	"solana-token-exchange/internal/solana"
	"solana-token-exchange/internal/solana/stub"
	"solana-token-exchange/internal/storage"
	"solana-token-exchange/internal/storage/memory"
	"solana-token-exchange/internal/token"
	"solana-token-exchange/internal/wallet"
)

type testEnv struct {
	app     *fiber.App
	conn    *stub.Connection
	feed    *notify.MemoryFeed
	session *session.Provider
	account types.Account
	keyPath string
}

func newTestEnv(t *testing.T, cache *redis.Client) *testEnv {
	t.Helper()
	e := &testEnv{
		conn:    stub.NewConnection(),
		feed:    notify.NewMemoryFeed(time.Minute),
		account: types.NewAccount(),
	}

	data, err := wallet.EncodeKeypairJSON(e.account)
	require.NoError(t, err)
	e.keyPath = filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(e.keyPath, data, 0o600))

	quiet := zerolog.New(io.Discard)
	journal := storage.NewJournal(memory.NewActivityStore())

	provider, err := session.NewProvider(solana.Devnet,
		func(solana.Cluster) (solana.Connection, error) { return e.conn, nil },
		session.WithLogger(quiet),
		session.WithNotifier(e.feed),
		session.WithJournal(journal),
	)
	require.NoError(t, err)
	e.session = provider

	panels := panel.New(panel.Deps{
		Session:        provider,
		Tokens:         token.NewService(token.WithLogger(quiet)),
		Notifier:       e.feed,
		Journal:        journal,
		SuccessDisplay: time.Minute,
		Logger:         &quiet,
	})

	srv, err := New(Config{}, Deps{
		Session: provider,
		Panels:  panels,
		Feed:    e.feed,
		Journal: journal,
		Cache:   cache,
		Wallet:  wallet.ConnectParams{KeypairPath: e.keyPath},
	})
	require.NoError(t, err)
	e.app = srv.App()
	return e
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (e *testEnv) connect(t *testing.T) {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/session/connect", fiber.Map{})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
}

func TestNew_RequiresSessionAndPanels(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "devnet", body["network"])
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestHealth_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	e := newTestEnv(t, client)
	resp, _ := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	mr.Close()
	resp, body := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "redis_unavailable", body["status"])
}

func TestRequestID_Preserved(t *testing.T) {
	e := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(requestIDHeader))
}

func TestMetrics(t *testing.T) {
	e := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPage_FollowsConnection(t *testing.T) {
	e := newTestEnv(t, nil)

	_, body := e.do(t, http.MethodGet, "/api/page", nil)
	assert.Equal(t, false, body["connected"])
	assert.NotNil(t, body["prompt"])

	e.connect(t)

	_, body = e.do(t, http.MethodGet, "/api/page", nil)
	assert.Equal(t, true, body["connected"])
	assert.Nil(t, body["prompt"])
	sections := body["sections"].([]interface{})
	require.Len(t, sections, 2)
	panels := sections[1].(map[string]interface{})["panels"].([]interface{})
	assert.Contains(t, panels, page.PanelSend)
}

func TestSession_ConnectAndDisconnect(t *testing.T) {
	e := newTestEnv(t, nil)
	e.conn.SetBalance(e.account.PublicKey, 2*solana.LamportsPerSOL)

	resp, body := e.do(t, http.MethodPost, "/api/session/connect", fiber.Map{"adapter": "keypair"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, e.account.PublicKey.ToBase58(), body["address"])

	_, body = e.do(t, http.MethodPost, "/api/session/refresh", nil)
	assert.InDelta(t, 2.0, body["balance"], 1e-9)

	_, body = e.do(t, http.MethodPost, "/api/session/disconnect", nil)
	assert.Equal(t, false, body["connected"])
	assert.Nil(t, body["address"])
}

func TestSession_ConnectErrors(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.do(t, http.MethodPost, "/api/session/connect", fiber.Map{"adapter": "ledger"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "unknown wallet adapter")

	resp, _ = e.do(t, http.MethodPost, "/api/session/connect", fiber.Map{"adapter": "mnemonic"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/session/refresh", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSession_ConnectOnlyConfiguredKeypair(t *testing.T) {
	e := newTestEnv(t, nil)

	other := filepath.Join(t.TempDir(), "other.json")
	data, err := wallet.EncodeKeypairJSON(types.NewAccount())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(other, data, 0o600))

	resp, body := e.do(t, http.MethodPost, "/api/session/connect", fiber.Map{"keypair_path": other})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body["error"], "configured wallet keypair")
	assert.False(t, e.session.Snapshot().Connected())

	resp, body = e.do(t, http.MethodPost, "/api/session/connect", fiber.Map{"keypair_path": e.keyPath})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, e.account.PublicKey.ToBase58(), body["address"])
}

func TestSession_ConnectMnemonicFromRequest(t *testing.T) {
	e := newTestEnv(t, nil)
	phrase, err := wallet.GenerateMnemonic()
	require.NoError(t, err)
	account, err := wallet.AccountFromMnemonic(phrase, "")
	require.NoError(t, err)

	resp, body := e.do(t, http.MethodPost, "/api/session/connect", fiber.Map{"adapter": "mnemonic", "mnemonic": phrase})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, account.PublicKey.ToBase58(), body["address"])
}

func TestSession_SetNetwork(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.do(t, http.MethodPut, "/api/session/network", fiber.Map{"network": "testnet"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "testnet", body["network"])

	resp, _ = e.do(t, http.MethodPut, "/api/session/network", fiber.Map{"network": "localnet"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSession_Airdrop(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, _ := e.do(t, http.MethodPost, "/api/session/airdrop", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	e.connect(t)
	resp, body := e.do(t, http.MethodPost, "/api/session/airdrop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.InDelta(t, 1.0, body["balance"], 1e-9)

	_, body = e.do(t, http.MethodGet, "/api/activity", nil)
	activities := body["activities"].([]interface{})
	require.Len(t, activities, 1)
	assert.Equal(t, "airdrop", activities[0].(map[string]interface{})["kind"])
}

func TestCreatePanel_SubmitAndReset(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, _ := e.do(t, http.MethodPost, "/api/panels/create", fiber.Map{"name": "Test", "symbol": "TST"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	e.connect(t)

	resp, _ = e.do(t, http.MethodPost, "/api/panels/create", fiber.Map{"name": "", "symbol": "TST"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/api/panels/create", fiber.Map{"name": "Test", "symbol": "TST", "decimals": 6})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "succeeded", body["status"])
	result := body["result"].(map[string]interface{})
	assert.NotEmpty(t, result["mint_address"])

	_, body = e.do(t, http.MethodGet, "/api/panels/create", nil)
	assert.Equal(t, "succeeded", body["status"])

	_, body = e.do(t, http.MethodPost, "/api/panels/create/reset", nil)
	assert.Equal(t, "idle", body["status"])
	assert.Nil(t, body["result"])

	active, err := e.feed.Active(context.Background())
	require.NoError(t, err)
	var messages []string
	for _, n := range active {
		messages = append(messages, n.Message)
	}
	assert.Contains(t, messages, "Token created successfully!")
}

func TestMintPanel_BroadcastFailure(t *testing.T) {
	e := newTestEnv(t, nil)
	e.connect(t)
	e.conn.ErrSend = assert.AnError

	mint := types.NewAccount().PublicKey.ToBase58()
	resp, body := e.do(t, http.MethodPost, "/api/panels/mint", fiber.Map{"token_address": mint, "amount": "5"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	_, body = e.do(t, http.MethodGet, "/api/panels/mint", nil)
	assert.Equal(t, "failed", body["status"])
}

func TestSendPanel_CheckWithoutToken(t *testing.T) {
	e := newTestEnv(t, nil)
	e.connect(t)

	resp, _ := e.do(t, http.MethodPost, "/api/panels/send/check", fiber.Map{"token_address": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	mint := types.NewAccount().PublicKey.ToBase58()
	resp, body := e.do(t, http.MethodPost, "/api/panels/send/check", fiber.Map{"token_address": mint})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "0", body["balance"])

	resp, _ = e.do(t, http.MethodPost, "/api/panels/send", fiber.Map{
		"token_address":     mint,
		"recipient_address": types.NewAccount().PublicKey.ToBase58(),
		"amount":            "1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBalancesAndWallet(t *testing.T) {
	e := newTestEnv(t, nil)

	_, body := e.do(t, http.MethodGet, "/api/panels/wallet", nil)
	assert.Equal(t, false, body["connected"])
	assert.Equal(t, "0.0000 SOL", body["balance"])

	e.connect(t)

	_, body = e.do(t, http.MethodPost, "/api/panels/balances/refresh", nil)
	assert.Empty(t, body["tokens"])

	_, body = e.do(t, http.MethodGet, "/api/panels/wallet", nil)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, solana.ShortAddress(e.account.PublicKey.ToBase58()), body["short_address"])
}

func TestActivity_LimitValidation(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, _ := e.do(t, http.MethodGet, "/api/activity?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := e.do(t, http.MethodGet, "/api/activity?limit=10", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["activities"])
}

func TestNotifications(t *testing.T) {
	e := newTestEnv(t, nil)
	notify.Info(context.Background(), e.feed, "hello")

	_, body := e.do(t, http.MethodGet, "/api/notifications", nil)
	items := body["notifications"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "hello", items[0].(map[string]interface{})["message"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{token.ErrInvalidAmount, http.StatusBadRequest},
		{panel.ErrMissingField, http.StatusBadRequest},
		{wallet.ErrSignatureDeclined, http.StatusForbidden},
		{session.ErrNotConnected, http.StatusConflict},
		{panel.ErrBusy, http.StatusConflict},
		{fiber.NewError(http.StatusTeapot, "tea"), http.StatusTeapot},
		{assert.AnError, http.StatusBadGateway},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}
