package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-exchange/internal/solana"
)

func parse(t *testing.T, args ...string) *Config {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := parse(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, solana.Devnet, cfg.Cluster())
	assert.Equal(t, "https://api.devnet.solana.com", cfg.RPCEndpoint)
	assert.Equal(t, "wss://api.devnet.solana.com", cfg.WSEndpoint)
	assert.Equal(t, uint(9), cfg.DefaultDecimals)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 3*time.Second, cfg.SuccessDisplay)
	assert.Equal(t, 60*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, solana.CommitmentConfirmed, cfg.Commitment)
	assert.Equal(t, "keypair", cfg.WalletAdapter)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("SOLANA_NETWORK", "mainnet")
	t.Setenv("DEFAULT_DECIMALS", "6")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("BALANCE_REFRESH_INTERVAL", "1m")

	cfg := parse(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, solana.MainnetBeta, cfg.Cluster())
	assert.Equal(t, "mainnet-beta", cfg.Network)
	assert.Equal(t, uint(6), cfg.DefaultDecimals)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SOLANA_NETWORK", "testnet")
	cfg := parse(t, "-network", "devnet")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, solana.Devnet, cfg.Cluster())
}

func TestCustomEndpoint(t *testing.T) {
	cfg := parse(t, "-rpc-endpoint", "http://127.0.0.1:8899")
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ws://127.0.0.1:8899", cfg.WSEndpoint)

	rpc, ws := cfg.Endpoints(solana.Devnet)
	assert.Equal(t, "http://127.0.0.1:8899", rpc)
	assert.Equal(t, "ws://127.0.0.1:8899", ws)

	rpc, _ = cfg.Endpoints(solana.Testnet)
	assert.Equal(t, "https://api.testnet.solana.com", rpc)
}

func TestValidate_Errors(t *testing.T) {
	cfg := parse(t, "-network", "moonnet", "-default-decimals", "12", "-commitment", "max")
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cluster")
	assert.Contains(t, err.Error(), "default decimals")
	assert.Contains(t, err.Error(), "unknown commitment")
}

func TestValidate_InvalidEnv(t *testing.T) {
	t.Setenv("CONFIRM_TIMEOUT", "soon")
	cfg := parse(t)
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIRM_TIMEOUT")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nexport TOKENX_A=one\nTOKENX_B=\"two\"\nbroken line\nTOKENX_C=from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TOKENX_C", "from-env")
	t.Cleanup(func() {
		os.Unsetenv("TOKENX_A")
		os.Unsetenv("TOKENX_B")
	})

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "one", os.Getenv("TOKENX_A"))
	assert.Equal(t, "two", os.Getenv("TOKENX_B"))
	assert.Equal(t, "from-env", os.Getenv("TOKENX_C"))

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestDial(t *testing.T) {
	cfg := parse(t, "-rpc-endpoint", "http://127.0.0.1:8899")
	require.NoError(t, cfg.Validate())

	conn, err := cfg.Dial(solana.Devnet)
	require.NoError(t, err)
	client, ok := conn.(*solana.HTTPClient)
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:8899", client.Endpoint())

	conn, err = cfg.Dial(solana.Testnet)
	require.NoError(t, err)
	assert.Equal(t, "https://api.testnet.solana.com", conn.(*solana.HTTPClient).Endpoint())
}
