// ==============================================
// File: internal/provider/dexscreener.go
// ==============================================
package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

const (
	dexScreenerName    = "dexscreener"
	dexScreenerBaseURL = "https://api.dexscreener.com/latest/dex"
	solanaChain        = "solana"
)

type dexScreenerResponse struct {
	SchemaVersion string           `json:"schemaVersion"`
	Pairs         []dexScreenerPair `json:"pairs"`
}

type dexScreenerPair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	QuoteToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"quoteToken"`
	PriceNative string `json:"priceNative"`
	PriceUSD    string `json:"priceUsd"`
	Liquidity   struct {
		USD   float64 `json:"usd"`
		Base  float64 `json:"base"`
		Quote float64 `json:"quote"`
	} `json:"liquidity"`
}

// DexScreener queries the DexScreener pair API.
type DexScreener struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewDexScreener creates a DexScreener provider. An empty baseURL uses
// the public API.
func NewDexScreener(baseURL string, logger *zap.Logger) *DexScreener {
	if baseURL == "" {
		baseURL = dexScreenerBaseURL
	}
	return &DexScreener{
		baseURL: baseURL,
		client:  newHTTPClient(),
		logger:  logger.Named(dexScreenerName),
	}
}

func (d *DexScreener) Name() string { return dexScreenerName }

// GetTokenData returns all SOL-quoted solana pairs for the mint. Pairs
// on other chains or without a SOL side are skipped.
func (d *DexScreener) GetTokenData(ctx context.Context, mint solana.PublicKey) (*TokenData, error) {
	url := fmt.Sprintf("%s/tokens/%s", d.baseURL, mint.String())

	var resp dexScreenerResponse
	if err := getJSON(ctx, d.client, url, &resp); err != nil {
		return nil, fmt.Errorf("dexscreener token pairs: %w", err)
	}

	wsol := pricing.WrappedSOLMint.String()
	data := &TokenData{}

	for _, pair := range resp.Pairs {
		if pair.ChainID != solanaChain {
			continue
		}
		if pair.BaseToken.Address != wsol && pair.QuoteToken.Address != wsol {
			continue
		}

		priceNative, err := decimal.NewFromString(pair.PriceNative)
		if err != nil || !priceNative.IsPositive() {
			continue
		}
		// priceNative is base-in-quote. When SOL is the base token the
		// mint sits on the quote side and the ratio must be inverted.
		priceSOL := priceNative
		if pair.BaseToken.Address == wsol {
			priceSOL = decimal.NewFromInt(1).Div(priceNative)
		}

		var priceUSD float64
		if usd, err := decimal.NewFromString(pair.PriceUSD); err == nil {
			priceUSD, _ = usd.Float64()
		}

		price, _ := priceSOL.Float64()
		data.Pools = append(data.Pools, pricing.SourcedPool{
			Source:       dexScreenerName,
			PoolAddress:  pair.PairAddress,
			DexID:        pair.DexID,
			BaseMint:     pair.BaseToken.Address,
			QuoteMint:    pair.QuoteToken.Address,
			PriceSOL:     price,
			PriceUSD:     priceUSD,
			LiquidityUSD: pair.Liquidity.USD,
		})
		data.Prices = append(data.Prices, pricing.SourcedPrice{
			Source:       dexScreenerName,
			PoolAddress:  pair.PairAddress,
			PriceSOL:     price,
			LiquidityUSD: pair.Liquidity.USD,
		})
	}

	d.logger.Debug("Token pairs fetched",
		zap.String("mint", mint.String()),
		zap.Int("total_pairs", len(resp.Pairs)),
		zap.Int("sol_pairs", len(data.Pools)))

	return data, nil
}
