// ==============================================
// File: internal/engine/engine.go
// ==============================================

// Package engine drives the fetch → decode → store loop for tracked
// tokens and schedules periodic cross-source validation.
package engine

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-pricer/internal/decoder"
	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
	"github.com/rovshanmuradov/solana-pricer/internal/store"
	"github.com/rovshanmuradov/solana-pricer/internal/validation"
)

// TrackedToken is one mint to price, with the pool and vault accounts
// polled for it.
type TrackedToken struct {
	Mint     solana.PublicKey
	Accounts []solana.PublicKey
}

// AccountSource loads account snapshots, typically over RPC.
type AccountSource interface {
	FetchAccounts(ctx context.Context, addresses []solana.PublicKey) (map[solana.PublicKey]*pricing.AccountSnapshot, error)
}

// Config tunes the engine's loop cadences.
type Config struct {
	PollInterval     time.Duration
	ValidateInterval time.Duration
}

// Engine owns the polling and validation loops.
type Engine struct {
	cfg       Config
	tokens    []TrackedToken
	source    AccountSource
	registry  *decoder.Registry
	store     *store.PriceStore
	validator *validation.Validator // nil disables validation
	logger    *zap.Logger
}

// New wires an engine. validator may be nil.
func New(cfg Config, tokens []TrackedToken, source AccountSource, registry *decoder.Registry, priceStore *store.PriceStore, validator *validation.Validator, logger *zap.Logger) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.ValidateInterval <= 0 {
		cfg.ValidateInterval = 30 * time.Second
	}
	return &Engine{
		cfg:       cfg,
		tokens:    tokens,
		source:    source,
		registry:  registry,
		store:     priceStore,
		validator: validator,
		logger:    logger.Named("engine"),
	}
}

// Run blocks until ctx is cancelled, then returns ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Engine starting",
		zap.Int("tokens", len(e.tokens)),
		zap.Duration("poll_interval", e.cfg.PollInterval),
		zap.Duration("validate_interval", e.cfg.ValidateInterval))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.pollLoop(ctx) })
	if e.validator != nil {
		g.Go(func() error { return e.validateLoop(ctx) })
	}
	return g.Wait()
}

func (e *Engine) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	e.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.pollOnce(ctx)
		}
	}
}

func (e *Engine) pollOnce(ctx context.Context) {
	for _, token := range e.tokens {
		if len(token.Accounts) == 0 {
			continue
		}
		if err := e.priceToken(ctx, token); err != nil {
			e.logger.Warn("Token poll failed",
				zap.String("mint", token.Mint.String()),
				zap.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// priceToken fetches the token's account set and probes the registry
// with each distinct owning program until one decoder yields a price.
func (e *Engine) priceToken(ctx context.Context, token TrackedToken) error {
	snapshots, err := e.source.FetchAccounts(ctx, token.Accounts)
	if err != nil {
		return err
	}

	tried := make(map[solana.PublicKey]bool)
	for _, snap := range snapshots {
		if tried[snap.Owner] {
			continue
		}
		tried[snap.Owner] = true

		result, ok := e.registry.Decode(snap.Owner, snapshots, token.Mint, pricing.WrappedSOLMint)
		if !ok {
			continue
		}

		e.store.UpdatePrice(result)
		e.logger.Debug("Price updated",
			zap.String("mint", token.Mint.String()),
			zap.Float64("price_sol", result.PriceSOL),
			zap.String("source", result.SourcePool),
			zap.Uint64("slot", result.Slot))
		return nil
	}

	// No decoder produced a price this cycle; the cache simply goes
	// stale until a later cycle succeeds.
	return nil
}

func (e *Engine) validateLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.ValidateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.validateOnce(ctx)
		}
	}
}

func (e *Engine) validateOnce(ctx context.Context) {
	for _, token := range e.tokens {
		result := e.validator.Validate(ctx, token.Mint)

		fields := []zap.Field{
			zap.String("mint", token.Mint.String()),
			zap.Bool("is_valid", result.IsValid),
			zap.Float64("consensus_price", result.ConsensusPrice),
			zap.Strings("sources", result.UsedSources),
		}
		if onchain, ok := e.store.GetPrice(token.Mint); ok && result.ConsensusPrice > 0 {
			fields = append(fields, zap.Float64("onchain_price", onchain.PriceSOL))
		}

		if result.IsValid {
			e.logger.Info("Consensus validated", fields...)
		} else {
			issues := make([]string, len(result.Issues))
			for i, issue := range result.Issues {
				issues[i] = string(issue)
			}
			e.logger.Warn("Consensus validation failed",
				append(fields, zap.Strings("issues", issues))...)
		}

		if ctx.Err() != nil {
			return
		}
	}
}
