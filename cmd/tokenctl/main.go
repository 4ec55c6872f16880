// Package main provides tokenctl, a command-line client for the same token
// operations the server exposes.
//
// Usage:
//
//	tokenctl [flags] <command> [command flags]
//
// Commands: balance, airdrop, create, mint, send, tokens, token-balance.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"solana-token-exchange/internal/config"
	"solana-token-exchange/internal/logging"
	"solana-token-exchange/internal/notify"
	"solana-token-exchange/internal/session"
	"solana-token-exchange/internal/solana"
	"solana-token-exchange/internal/token"
	"solana-token-exchange/internal/wallet"
)

type command struct {
	usage string
	run   func(ctx context.Context, c *cli, args []string) error
}

var commands = map[string]command{
	"balance":       {"Show the wallet SOL balance", runBalance},
	"airdrop":       {"Request 1 SOL (devnet and testnet only)", runAirdrop},
	"create":        {"Create a token: -name -symbol [-decimals]", runCreate},
	"mint":          {"Mint to your own token account: -token [-amount]", runMint},
	"send":          {"Send tokens: -token -to [-amount]", runSend},
	"tokens":        {"List tokens held by the wallet", runTokens},
	"token-balance": {"Show the balance of one token: -token", runTokenBalance},
}

// cli holds the connected session shared by all commands.
type cli struct {
	out      io.Writer
	provider *session.Provider
	tokens   *token.Service
	signer   wallet.Signer
}

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fatal(err)
	}

	cfg := config.RegisterFlags(flag.CommandLine)
	yes := flag.Bool("yes", false, "Sign transactions without asking")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		fatal(err)
	}
	// Keep stdout for command output.
	if cfg.LogFile != "" {
		if err := logging.Init(cfg.LogLevel, true, cfg.LogFile); err != nil {
			fatal(err)
		}
	} else {
		logging.SetOutput(os.Stderr, "warn")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := connect(ctx, cfg, *yes)
	if err != nil {
		fatal(err)
	}
	defer c.provider.Close()

	if err := cmd.run(ctx, c, flag.Args()[1:]); err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: tokenctl [flags] <command> [command flags]\n\nCommands:\n")
	for _, name := range []string{"balance", "airdrop", "create", "mint", "send", "tokens", "token-balance"} {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", name, commands[name].usage)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	flag.PrintDefaults()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// connect opens a session on the configured network with the configured wallet.
func connect(ctx context.Context, cfg *config.Config, autoApprove bool) (*cli, error) {
	adapter, err := wallet.Lookup(cfg.WalletAdapter)
	if err != nil {
		return nil, err
	}

	params := wallet.ConnectParams{KeypairPath: cfg.WalletKeypair, Mnemonic: cfg.WalletMnemonic}
	if adapter.Name() == (wallet.MnemonicAdapter{}).Name() && params.Mnemonic == "" {
		if params.Mnemonic, err = promptSecret("Mnemonic: "); err != nil {
			return nil, err
		}
	}

	approve := confirmOnTerminal(os.Stdin, os.Stderr)
	if autoApprove {
		approve = approveAll
	}

	provider, err := session.NewProvider(cfg.Cluster(), cfg.Dial,
		session.WithNotifier(consoleNotifier{w: os.Stderr}),
	)
	if err != nil {
		return nil, err
	}

	if _, err := provider.Connect(ctx, approvingAdapter{Adapter: adapter, approve: approve}, params); err != nil {
		provider.Close()
		return nil, err
	}
	signer, err := provider.Signer()
	if err != nil {
		provider.Close()
		return nil, err
	}

	return &cli{
		out:      os.Stdout,
		provider: provider,
		tokens:   token.NewService(token.WithDefaultDecimals(uint8(cfg.DefaultDecimals))),
		signer:   signer,
	}, nil
}

// approvingAdapter wraps every connected signer with an approval prompt.
type approvingAdapter struct {
	wallet.Adapter
	approve wallet.Approver
}

func (a approvingAdapter) Connect(ctx context.Context, params wallet.ConnectParams) (wallet.Signer, error) {
	signer, err := a.Adapter.Connect(ctx, params)
	if err != nil {
		return nil, err
	}
	return wallet.NewApprovalSigner(signer, a.approve), nil
}

func approveAll(context.Context, string) (bool, error) { return true, nil }

// confirmOnTerminal asks on out and reads a y/N answer from in.
func confirmOnTerminal(in io.Reader, out io.Writer) wallet.Approver {
	reader := bufio.NewReader(in)
	return func(_ context.Context, summary string) (bool, error) {
		fmt.Fprintf(out, "Sign transaction (%s)? [y/N] ", summary)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}

func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("mnemonic is required: set WALLET_MNEMONIC or run in a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read mnemonic: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// consoleNotifier prints notifications to w.
type consoleNotifier struct {
	w io.Writer
}

func (n consoleNotifier) Send(_ context.Context, item notify.Notification) error {
	_, err := fmt.Fprintf(n.w, "[%s] %s\n", item.Level, item.Message)
	return err
}

func (c *cli) owner() solana.PublicKey {
	return c.signer.PublicKey()
}

func runBalance(ctx context.Context, c *cli, _ []string) error {
	c.provider.FetchBalance(ctx)
	state := c.provider.Snapshot()
	fmt.Fprintf(c.out, "%s\t%.4f SOL\n", state.Address(), state.Balance)
	return nil
}

func runAirdrop(ctx context.Context, c *cli, _ []string) error {
	if err := c.provider.AirdropSol(ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%.4f SOL\n", c.provider.Snapshot().Balance)
	return nil
}

func runCreate(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	name := fs.String("name", "", "Token name")
	symbol := fs.String("symbol", "", "Token symbol")
	decimals := fs.Uint("decimals", token.DefaultDecimals, "Token decimals (0-9)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *symbol == "" {
		return errors.New("-name and -symbol are required")
	}
	if *decimals > token.MaxDecimals {
		return fmt.Errorf("%w: %d", token.ErrInvalidDecimals, *decimals)
	}

	res, err := c.tokens.CreateToken(ctx, c.provider.Connection(), c.signer, token.CreateTokenParams{
		Name:     *name,
		Symbol:   *symbol,
		Decimals: uint8(*decimals),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "mint\t%s\nsignature\t%s\n", res.MintAddress, res.Signature)
	return nil
}

func runMint(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("mint", flag.ContinueOnError)
	mintAddr := fs.String("token", "", "Mint address")
	amount := fs.String("amount", "100", "Amount in whole tokens")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mint, err := token.ParseAddress("token address", *mintAddr)
	if err != nil {
		return err
	}
	qty, err := token.ParseAmount(*amount)
	if err != nil {
		return err
	}
	ata, err := solana.FindAssociatedTokenAddress(c.owner(), mint)
	if err != nil {
		return err
	}

	sig, err := c.tokens.MintToken(ctx, c.provider.Connection(), c.signer, token.MintTokenParams{
		Mint:        mint.ToBase58(),
		Destination: ata.ToBase58(),
		Amount:      qty,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, sig)
	return nil
}

func runSend(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	mintAddr := fs.String("token", "", "Mint address")
	to := fs.String("to", "", "Recipient wallet address")
	amount := fs.String("amount", "10", "Amount in whole tokens")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mint, err := token.ParseAddress("token address", *mintAddr)
	if err != nil {
		return err
	}
	qty, err := token.ParseAmount(*amount)
	if err != nil {
		return err
	}
	source, err := solana.FindAssociatedTokenAddress(c.owner(), mint)
	if err != nil {
		return err
	}

	sig, err := c.tokens.TransferToken(ctx, c.provider.Connection(), c.signer, token.TransferTokenParams{
		Source:    source.ToBase58(),
		Recipient: *to,
		Mint:      mint.ToBase58(),
		Amount:    qty,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, sig)
	return nil
}

func runTokens(ctx context.Context, c *cli, _ []string) error {
	held := c.tokens.GetAllTokensForWallet(ctx, c.provider.Connection(), c.owner())
	return writeTokens(c.out, held)
}

func writeTokens(out io.Writer, held []token.Descriptor) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MINT\tNAME\tSYMBOL\tDECIMALS\tBALANCE")
	for _, d := range held {
		balance := decimal.Zero
		if d.Balance != nil {
			balance = decimal.NewFromFloat(*d.Balance)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", d.Mint, d.Name, d.Symbol, d.Decimals, balance.String())
	}
	return w.Flush()
}

func runTokenBalance(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("token-balance", flag.ContinueOnError)
	mintAddr := fs.String("token", "", "Mint address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mintAddr == "" {
		return errors.New("-token is required")
	}

	balance, err := c.tokens.CheckTokenBalance(ctx, c.provider.Connection(), c.owner(), *mintAddr)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, balance.String())
	return nil
}
