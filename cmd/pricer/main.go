// ====================================
// File: cmd/pricer/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-pricer/internal/config"
	"github.com/rovshanmuradov/solana-pricer/internal/decimals"
	"github.com/rovshanmuradov/solana-pricer/internal/decoder"
	"github.com/rovshanmuradov/solana-pricer/internal/decoder/moonshot"
	"github.com/rovshanmuradov/solana-pricer/internal/decoder/pumpfun"
	"github.com/rovshanmuradov/solana-pricer/internal/decoder/pumpswap"
	"github.com/rovshanmuradov/solana-pricer/internal/decoder/raydium"
	"github.com/rovshanmuradov/solana-pricer/internal/decoder/whirlpool"
	"github.com/rovshanmuradov/solana-pricer/internal/engine"
	"github.com/rovshanmuradov/solana-pricer/internal/fetch"
	"github.com/rovshanmuradov/solana-pricer/internal/logger"
	"github.com/rovshanmuradov/solana-pricer/internal/provider"
	"github.com/rovshanmuradov/solana-pricer/internal/storage"
	"github.com/rovshanmuradov/solana-pricer/internal/storage/postgres"
	"github.com/rovshanmuradov/solana-pricer/internal/store"
	"github.com/rovshanmuradov/solana-pricer/internal/validation"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.Development
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync(log)

	log.Info("Starting solana pricer",
		zap.String("rpc_url", cfg.RPCURL),
		zap.Int("tokens", len(cfg.Tokens)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rpcClient := rpc.New(cfg.RPCURL)
	fetcher := fetch.New(rpcClient, log)
	decimalsCache := decimals.New(fetcher, log)

	registry := decoder.NewRegistry(log)
	registry.Register(raydium.New(decimalsCache))
	registry.Register(pumpswap.New(decimalsCache))
	registry.Register(whirlpool.New(decimalsCache, cfg.Decoders.PriceCeiling))
	registry.Register(pumpfun.New(decimalsCache))
	registry.Register(moonshot.New(decimalsCache, moonshot.CurveParams{
		ExponentMin: cfg.Decoders.CurveExponentMin,
		ExponentMax: cfg.Decoders.CurveExponentMax,
	}))

	var sink storage.Storage
	if cfg.PostgresURL != "" {
		pg, err := postgres.New(ctx, cfg.PostgresURL, log)
		if err != nil {
			return fmt.Errorf("init postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.RunMigrations(ctx); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		sink = pg
	}

	tokens, err := trackedTokens(cfg.Tokens)
	if err != nil {
		return err
	}

	priceStore := store.New(store.Config{
		FreshnessTTL:     time.Duration(cfg.Store.FreshnessTTLSec) * time.Second,
		SamplingInterval: cfg.PollInterval(),
		GapMultiple:      cfg.Store.GapMultiple,
		HistoryCapacity:  cfg.Store.HistoryCapacity,
		PersistQueueSize: cfg.Store.PersistQueueSize,
	}, sink, log)
	defer priceStore.Close()

	if sink != nil {
		mints := make([]solana.PublicKey, len(tokens))
		for i, token := range tokens {
			mints[i] = token.Mint
		}
		if err := priceStore.Rehydrate(ctx, mints); err != nil {
			log.Warn("History rehydration failed", zap.Error(err))
		}
	}

	var providers []provider.Provider
	if cfg.Providers.DexScreenerEnabled {
		providers = append(providers, provider.NewDexScreener("", log))
	}
	if cfg.Providers.GeckoTerminalEnabled {
		providers = append(providers, provider.NewGeckoTerminal("", log))
	}

	var validator *validation.Validator
	if len(providers) > 0 {
		validator = validation.New(validation.Config{
			MinSources:   cfg.Consensus.MinSources,
			MaxDeviation: cfg.Consensus.MaxDeviation,
		}, providers, log)
	}

	eng := engine.New(engine.Config{
		PollInterval:     cfg.PollInterval(),
		ValidateInterval: cfg.ValidateInterval(),
	}, tokens, fetcher, registry, priceStore, validator, log)

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("engine: %w", err)
	}

	log.Info("Shutdown complete")
	return nil
}

func trackedTokens(entries []config.TokenConfig) ([]engine.TrackedToken, error) {
	tokens := make([]engine.TrackedToken, 0, len(entries))
	for _, entry := range entries {
		mint, err := solana.PublicKeyFromBase58(entry.Mint)
		if err != nil {
			return nil, fmt.Errorf("invalid mint %q: %w", entry.Mint, err)
		}
		accounts := make([]solana.PublicKey, 0, len(entry.Accounts))
		for _, raw := range entry.Accounts {
			account, err := solana.PublicKeyFromBase58(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid account %q for mint %s: %w", raw, entry.Mint, err)
			}
			accounts = append(accounts, account)
		}
		tokens = append(tokens, engine.TrackedToken{Mint: mint, Accounts: accounts})
	}
	return tokens, nil
}
