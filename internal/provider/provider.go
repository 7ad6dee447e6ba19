// ==============================================
// File: internal/provider/provider.go
// ==============================================

// Package provider implements clients for external market-data APIs.
// Providers are independent sources feeding the consensus validator;
// each failure contributes nothing rather than failing the whole query.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

// TokenData is one provider's view of a mint.
type TokenData struct {
	Pools  []pricing.SourcedPool
	Prices []pricing.SourcedPrice
}

// Provider queries one external data source for pools and prices.
type Provider interface {
	Name() string
	GetTokenData(ctx context.Context, mint solana.PublicKey) (*TokenData, error)
}

const (
	requestTimeout = 10 * time.Second
	maxTries       = 3
	initialRetry   = 500 * time.Millisecond
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// getJSON fetches a URL with exponential-backoff retries and decodes
// the body into out.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialRetry

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return struct{}{}, backoff.Permanent(fmt.Errorf("not found: %s", url))
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return struct{}{}, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(maxTries))
	return err
}
