// Package config binds command-line flags to environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"solana-token-exchange/internal/solana"
)

const (
	defaultHTTPAddr        = "127.0.0.1:8080"
	defaultLogLevel        = "info"
	defaultDecimals        = 9
	maxDecimals            = 9
	defaultRefresh         = 30 * time.Second
	defaultSuccessDisplay  = 3 * time.Second
	defaultNotificationTTL = 5 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultWalletAdapter   = "keypair"
)

// Config captures runtime configuration shared by the server and the CLI.
type Config struct {
	Network     string
	RPCEndpoint string
	WSEndpoint  string
	Commitment  string

	HTTPAddr string
	LogLevel string
	LogJSON  bool
	LogFile  string

	PostgresDSN string
	RedisURL    string

	DefaultDecimals uint
	RefreshInterval time.Duration
	SuccessDisplay  time.Duration
	NotificationTTL time.Duration
	ConfirmTimeout  time.Duration
	ShutdownTimeout time.Duration

	WalletAdapter  string
	WalletKeypair  string
	WalletMnemonic string

	// cluster is resolved by Validate.
	cluster solana.Cluster
	envErrs []error
}

// RegisterFlags binds every option to fs, using environment variables as defaults.
func RegisterFlags(fs *flag.FlagSet) *Config {
	c := &Config{}

	fs.StringVar(&c.Network, "network", c.envString("SOLANA_NETWORK", string(solana.Devnet)), "Cluster: devnet, testnet or mainnet-beta")
	fs.StringVar(&c.RPCEndpoint, "rpc-endpoint", c.envString("SOLANA_RPC_ENDPOINT", ""), "Custom Solana RPC HTTP endpoint (overrides network default)")
	fs.StringVar(&c.WSEndpoint, "ws-endpoint", c.envString("SOLANA_WS_ENDPOINT", ""), "Solana WebSocket endpoint (derived from the RPC endpoint when empty)")
	fs.StringVar(&c.Commitment, "commitment", c.envString("COMMITMENT", solana.CommitmentConfirmed), "Confirmation commitment: processed, confirmed or finalized")

	fs.StringVar(&c.HTTPAddr, "http-addr", c.envString("HTTP_ADDR", defaultHTTPAddr), "HTTP listen address (loopback by default; the API signs with the connected wallet)")
	fs.StringVar(&c.LogLevel, "log-level", c.envString("LOG_LEVEL", defaultLogLevel), "Log level: debug, info, warn, error")
	fs.BoolVar(&c.LogJSON, "log-json", c.envBool("LOG_JSON", false), "Emit JSON logs")
	fs.StringVar(&c.LogFile, "log-file", c.envString("LOG_FILE", ""), "Also append JSON logs to this file")

	fs.StringVar(&c.PostgresDSN, "postgres-dsn", c.envString("POSTGRES_DSN", ""), "PostgreSQL DSN for the activity journal (in-memory when empty)")
	fs.StringVar(&c.RedisURL, "redis-url", c.envString("REDIS_URL", ""), "Redis URL for the shared notification feed (in-memory when empty)")

	fs.UintVar(&c.DefaultDecimals, "default-decimals", c.envUint("DEFAULT_DECIMALS", defaultDecimals), "Decimals assumed when a mint cannot be read")
	fs.DurationVar(&c.RefreshInterval, "balance-refresh-interval", c.envDuration("BALANCE_REFRESH_INTERVAL", defaultRefresh), "Wallet balance refresh interval")
	fs.DurationVar(&c.SuccessDisplay, "success-display", c.envDuration("SUCCESS_DISPLAY", defaultSuccessDisplay), "How long a panel shows a success state")
	fs.DurationVar(&c.NotificationTTL, "notification-ttl", c.envDuration("NOTIFICATION_TTL", defaultNotificationTTL), "How long a notification stays visible")
	fs.DurationVar(&c.ConfirmTimeout, "confirm-timeout", c.envDuration("CONFIRM_TIMEOUT", solana.DefaultConfirmTimeout), "Transaction confirmation timeout")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.envDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout), "Graceful shutdown timeout")

	fs.StringVar(&c.WalletAdapter, "wallet-adapter", c.envString("WALLET_ADAPTER", defaultWalletAdapter), "Wallet adapter: keypair or mnemonic")
	fs.StringVar(&c.WalletKeypair, "wallet-keypair", c.envString("WALLET_KEYPAIR", ""), "Path to a Solana CLI keypair JSON file")
	fs.StringVar(&c.WalletMnemonic, "wallet-mnemonic", c.envString("WALLET_MNEMONIC", ""), "BIP-39 mnemonic for the mnemonic adapter")

	return c
}

// Validate checks option ranges and resolves endpoints from the network.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.envErrs...)

	cluster, err := solana.ParseCluster(c.Network)
	if err != nil {
		errs = append(errs, err)
	} else {
		c.cluster = cluster
		c.Network = string(cluster)
	}

	if c.DefaultDecimals > maxDecimals {
		errs = append(errs, fmt.Errorf("default decimals must be between 0 and %d, got %d", maxDecimals, c.DefaultDecimals))
	}

	switch c.Commitment {
	case solana.CommitmentProcessed, solana.CommitmentConfirmed, solana.CommitmentFinalized:
	default:
		errs = append(errs, fmt.Errorf("unknown commitment %q", c.Commitment))
	}

	for name, d := range map[string]time.Duration{
		"balance refresh interval": c.RefreshInterval,
		"confirm timeout":          c.ConfirmTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	if c.RPCEndpoint == "" {
		c.RPCEndpoint = c.cluster.RPCEndpoint()
		if c.WSEndpoint == "" {
			c.WSEndpoint = c.cluster.WSEndpoint()
		}
	}
	if c.WSEndpoint == "" {
		c.WSEndpoint = solana.WSFromHTTP(c.RPCEndpoint)
	}
	return nil
}

// Cluster returns the network resolved by Validate.
func (c *Config) Cluster() solana.Cluster {
	if c.cluster == "" {
		return solana.Devnet
	}
	return c.cluster
}

// Endpoints returns the RPC and WebSocket endpoints for cluster.
// The configured override applies only to the configured network.
func (c *Config) Endpoints(cluster solana.Cluster) (rpc, ws string) {
	if cluster == c.Cluster() && c.RPCEndpoint != "" {
		return c.RPCEndpoint, c.WSEndpoint
	}
	return cluster.RPCEndpoint(), cluster.WSEndpoint()
}

// Dial opens an RPC client for cluster. It has the session.ConnectionFactory
// signature.
func (c *Config) Dial(cluster solana.Cluster) (solana.Connection, error) {
	rpc, ws := c.Endpoints(cluster)
	if rpc == "" {
		return nil, fmt.Errorf("no rpc endpoint for %s", cluster)
	}
	opts := []solana.ClientOption{
		solana.WithCommitment(c.Commitment),
		solana.WithConfirmTimeout(c.ConfirmTimeout),
	}
	if ws != "" {
		opts = append(opts, solana.WithWSEndpoint(ws, nil))
	}
	return solana.NewHTTPClient(rpc, opts...), nil
}

func (c *Config) envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (c *Config) envBool(key string, def bool) bool {
	v := c.envString(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		c.envErrs = append(c.envErrs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return b
}

func (c *Config) envUint(key string, def uint) uint {
	v := c.envString(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		c.envErrs = append(c.envErrs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return uint(n)
}

func (c *Config) envDuration(key string, def time.Duration) time.Duration {
	v := c.envString(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		c.envErrs = append(c.envErrs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}

// LoadEnvFile loads KEY=VALUE lines from path into the environment.
// Existing variables are never overridden. A missing file is not an error.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(strings.TrimPrefix(parts[0], "export "))
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if _, ok := os.LookupEnv(key); !ok {
			os.Setenv(key, value)
		}
	}
	return nil
}
