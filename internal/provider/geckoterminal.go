// ==============================================
// File: internal/provider/geckoterminal.go
// ==============================================
package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-pricer/internal/pricing"
)

const (
	geckoTerminalName    = "geckoterminal"
	geckoTerminalBaseURL = "https://api.geckoterminal.com/api/v2"
)

// GeckoTerminal speaks JSON:API; pools reference their tokens through
// relationship ids prefixed with the network name.
type geckoPoolsResponse struct {
	Data []geckoPool `json:"data"`
}

type geckoPool struct {
	ID         string `json:"id"`
	Attributes struct {
		Address                       string `json:"address"`
		Name                          string `json:"name"`
		BaseTokenPriceNativeCurrency  string `json:"base_token_price_native_currency"`
		QuoteTokenPriceNativeCurrency string `json:"quote_token_price_native_currency"`
		BaseTokenPriceUSD             string `json:"base_token_price_usd"`
		ReserveInUSD                  string `json:"reserve_in_usd"`
	} `json:"attributes"`
	Relationships struct {
		BaseToken  geckoRelationship `json:"base_token"`
		QuoteToken geckoRelationship `json:"quote_token"`
		Dex        geckoRelationship `json:"dex"`
	} `json:"relationships"`
}

type geckoRelationship struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func geckoTokenAddress(id string) string {
	return strings.TrimPrefix(id, solanaChain+"_")
}

// GeckoTerminal queries the GeckoTerminal pools API.
type GeckoTerminal struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewGeckoTerminal creates a GeckoTerminal provider. An empty baseURL
// uses the public API.
func NewGeckoTerminal(baseURL string, logger *zap.Logger) *GeckoTerminal {
	if baseURL == "" {
		baseURL = geckoTerminalBaseURL
	}
	return &GeckoTerminal{
		baseURL: baseURL,
		client:  newHTTPClient(),
		logger:  logger.Named(geckoTerminalName),
	}
}

func (g *GeckoTerminal) Name() string { return geckoTerminalName }

// GetTokenData returns the mint's SOL-paired pools on solana.
func (g *GeckoTerminal) GetTokenData(ctx context.Context, mint solana.PublicKey) (*TokenData, error) {
	url := fmt.Sprintf("%s/networks/%s/tokens/%s/pools", g.baseURL, solanaChain, mint.String())

	var resp geckoPoolsResponse
	if err := getJSON(ctx, g.client, url, &resp); err != nil {
		return nil, fmt.Errorf("geckoterminal token pools: %w", err)
	}

	wsol := pricing.WrappedSOLMint.String()
	tokenAddr := mint.String()
	data := &TokenData{}

	for _, pool := range resp.Data {
		baseAddr := geckoTokenAddress(pool.Relationships.BaseToken.Data.ID)
		quoteAddr := geckoTokenAddress(pool.Relationships.QuoteToken.Data.ID)
		if baseAddr != wsol && quoteAddr != wsol {
			continue
		}

		// The native-currency price of whichever side is our token is
		// already denominated in SOL.
		var rawPrice string
		switch tokenAddr {
		case baseAddr:
			rawPrice = pool.Attributes.BaseTokenPriceNativeCurrency
		case quoteAddr:
			rawPrice = pool.Attributes.QuoteTokenPriceNativeCurrency
		default:
			continue
		}

		priceSOL, err := decimal.NewFromString(rawPrice)
		if err != nil || !priceSOL.IsPositive() {
			continue
		}

		var liquidityUSD float64
		if reserve, err := decimal.NewFromString(pool.Attributes.ReserveInUSD); err == nil {
			liquidityUSD, _ = reserve.Float64()
		}
		var priceUSD float64
		if tokenAddr == baseAddr {
			if usd, err := decimal.NewFromString(pool.Attributes.BaseTokenPriceUSD); err == nil {
				priceUSD, _ = usd.Float64()
			}
		}

		price, _ := priceSOL.Float64()
		data.Pools = append(data.Pools, pricing.SourcedPool{
			Source:       geckoTerminalName,
			PoolAddress:  pool.Attributes.Address,
			DexID:        geckoTokenAddress(pool.Relationships.Dex.Data.ID),
			BaseMint:     baseAddr,
			QuoteMint:    quoteAddr,
			PriceSOL:     price,
			PriceUSD:     priceUSD,
			LiquidityUSD: liquidityUSD,
		})
		data.Prices = append(data.Prices, pricing.SourcedPrice{
			Source:       geckoTerminalName,
			PoolAddress:  pool.Attributes.Address,
			PriceSOL:     price,
			LiquidityUSD: liquidityUSD,
		})
	}

	g.logger.Debug("Token pools fetched",
		zap.String("mint", mint.String()),
		zap.Int("total_pools", len(resp.Data)),
		zap.Int("sol_pools", len(data.Pools)))

	return data, nil
}
