// Package main runs the token exchange HTTP server: wallet session, token
// panels, notification feed and activity journal.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-token-exchange/internal/api"
	"solana-token-exchange/internal/config"
	"solana-token-exchange/internal/logging"
	"solana-token-exchange/internal/notify"
	"solana-token-exchange/internal/panel"
	"solana-token-exchange/internal/session"
	"solana-token-exchange/internal/storage"
	"solana-token-exchange/internal/storage/memory"
	"solana-token-exchange/internal/storage/migrations"
	"solana-token-exchange/internal/storage/postgres"
	"solana-token-exchange/internal/token"
	"solana-token-exchange/internal/wallet"
)

func main() {
	// Load .env file if exists
	if err := config.LoadEnvFile(".env"); err != nil {
		logging.Logger.Fatal().Err(err).Msg("failed to load .env")
	}

	cfg := config.RegisterFlags(flag.CommandLine)
	connectOnStart := flag.Bool("connect", false, "Connect the configured wallet at startup")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logging.Logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogJSON, cfg.LogFile); err != nil {
		logging.Logger.Fatal().Err(err).Msg("failed to initialize logging")
	}
	log := logging.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, pool, err := openActivityStore(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open activity store")
	}
	if pool != nil {
		defer pool.Close()
	}
	journal := storage.NewJournal(store)

	feed, cache, err := openFeed(ctx, cfg.RedisURL, cfg.NotificationTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open notification feed")
	}
	if cache != nil {
		defer cache.Close()
	}

	provider, err := session.NewProvider(cfg.Cluster(), cfg.Dial,
		session.WithNotifier(feed),
		session.WithJournal(journal),
		session.WithRefreshInterval(cfg.RefreshInterval),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create wallet session")
	}
	defer provider.Close()

	if *connectOnStart {
		if err := connectWallet(ctx, cfg, provider); err != nil {
			log.Fatal().Err(err).Msg("failed to connect wallet")
		}
	}
	provider.Start(ctx)
	defer provider.Stop()

	panels := panel.New(panel.Deps{
		Session:        provider,
		Tokens:         token.NewService(token.WithDefaultDecimals(uint8(cfg.DefaultDecimals))),
		Notifier:       feed,
		Journal:        journal,
		SuccessDisplay: cfg.SuccessDisplay,
	})

	srv, err := api.New(api.Config{Addr: cfg.HTTPAddr}, api.Deps{
		Session:        provider,
		Panels:         panels,
		Feed:           feed,
		Journal:        journal,
		DB:             pool,
		Cache:          cache,
		DefaultAdapter: cfg.WalletAdapter,
		Wallet: wallet.ConnectParams{
			KeypairPath: cfg.WalletKeypair,
			Mnemonic:    cfg.WalletMnemonic,
		},
		AccessLog: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create http server")
	}

	srvErrCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("network", cfg.Network).
			Str("rpc", cfg.RPCEndpoint).
			Msg("http server listening")
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-srvErrCh:
		if err != nil {
			log.Error().Err(err).Msg("http server stopped")
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}

// openActivityStore uses PostgreSQL when dsn is set and memory otherwise.
func openActivityStore(ctx context.Context, dsn string) (storage.ActivityStore, *postgres.Pool, error) {
	if dsn == "" {
		logging.Storage.Info().Msg("using in-memory activity journal")
		return memory.NewActivityStore(), nil, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(connectCtx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if _, err := migrations.RunPostgresMigrations(connectCtx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return postgres.NewActivityStore(pool), pool, nil
}

// openFeed uses Redis when url is set and memory otherwise.
func openFeed(ctx context.Context, url string, ttl time.Duration) (notify.Feed, *redis.Client, error) {
	if url == "" {
		return notify.NewMemoryFeed(ttl), nil, nil
	}
	client, err := notify.NewRedisClient(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return notify.NewRedisFeed(client, ttl), client, nil
}

func connectWallet(ctx context.Context, cfg *config.Config, provider *session.Provider) error {
	adapter, err := wallet.Lookup(cfg.WalletAdapter)
	if err != nil {
		return err
	}
	if cfg.WalletKeypair == "" && cfg.WalletMnemonic == "" {
		return errors.New("--wallet-keypair or --wallet-mnemonic is required with --connect")
	}
	state, err := provider.Connect(ctx, adapter, wallet.ConnectParams{
		KeypairPath: cfg.WalletKeypair,
		Mnemonic:    cfg.WalletMnemonic,
	})
	if err != nil {
		return err
	}
	logging.Session.Info().Str("account", state.Address()).Msg("wallet connected")
	return nil
}
