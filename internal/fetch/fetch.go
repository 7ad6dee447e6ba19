// ==============================================
// File: internal/fetch/fetch.go
// ==============================================

// Package fetch captures on-chain accounts as immutable snapshots for
// the decoders. All timeout and retry policy lives here, never in the
// decoding core.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

// RPCClient is the slice of the solana RPC surface the fetcher needs.
type RPCClient interface {
	GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
}

// Fetcher loads account snapshots over RPC with retries.
type Fetcher struct {
	client   RPCClient
	logger   *zap.Logger
	maxTries uint
	retryGap time.Duration
}

// New creates a fetcher around an RPC client.
func New(client RPCClient, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:   client,
		logger:   logger.Named("fetch"),
		maxTries: 3,
		retryGap: 250 * time.Millisecond,
	}
}

// FetchAccounts loads the given addresses in one batched call and
// returns snapshots keyed by address. Addresses that do not exist on
// chain are simply absent from the result.
func (f *Fetcher) FetchAccounts(ctx context.Context, addresses []solana.PublicKey) (map[solana.PublicKey]*pricing.AccountSnapshot, error) {
	if len(addresses) == 0 {
		return map[solana.PublicKey]*pricing.AccountSnapshot{}, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.retryGap

	operation := func() (*rpc.GetMultipleAccountsResult, error) {
		return f.client.GetMultipleAccountsWithOpts(ctx, addresses, &rpc.GetMultipleAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		})
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(f.maxTries))
	if err != nil {
		return nil, fmt.Errorf("get multiple accounts: %w", err)
	}

	now := time.Now()
	snapshots := make(map[solana.PublicKey]*pricing.AccountSnapshot, len(addresses))
	for i, account := range result.Value {
		if account == nil {
			continue
		}
		snapshots[addresses[i]] = &pricing.AccountSnapshot{
			Address:  addresses[i],
			Owner:    account.Owner,
			Data:     account.Data.GetBinary(),
			Lamports: account.Lamports,
			Slot:     result.Context.Slot,
			Fetched:  now,
		}
	}

	f.logger.Debug("Accounts fetched",
		zap.Int("requested", len(addresses)),
		zap.Int("found", len(snapshots)),
		zap.Uint64("slot", result.Context.Slot))

	return snapshots, nil
}

// GetAccountData loads one account's raw bytes. Used by the decimals
// cache for mint lookups.
func (f *Fetcher) GetAccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	result, err := f.client.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		return nil, fmt.Errorf("get account info: %w", err)
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("account not found: %s", address.String())
	}
	return result.Value.Data.GetBinary(), nil
}
