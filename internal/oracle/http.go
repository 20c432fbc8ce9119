package oracle

import (
	"context"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/wnt/crucible/internal/fixedpoint"
	"github.com/wnt/crucible/internal/utils"
)

// HTTPOracle fetches USD prices from a price-feed HTTP API keyed by mint
// address.
type HTTPOracle struct {
	httpClient *utils.HTTPClient
	logger     zerolog.Logger
}

// NewHTTPOracle creates a client against the given price API base URL.
func NewHTTPOracle(baseURL string, logger zerolog.Logger) *HTTPOracle {
	return &HTTPOracle{
		httpClient: utils.NewHTTPClient(
			utils.WithBaseURL(baseURL),
			utils.WithDefaultHeaders(map[string]string{
				"Content-Type": "application/json",
			}),
		),
		logger: logger.With().Str("component", "price_oracle").Logger(),
	}
}

type priceResponse struct {
	Mint     string  `json:"mint"`
	PriceUSD float64 `json:"price_usd"`
	Stale    bool    `json:"stale"`
}

// Price returns the USD price of the asset scaled by fixedpoint.Scale.
func (o *HTTPOracle) Price(ctx context.Context, mint solana.PublicKey) (int64, error) {
	resp, err := o.httpClient.Do(&utils.Request{
		Method:  "GET",
		Path:    "/price/" + mint.String(),
		Context: ctx,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStalePrice, err)
	}

	var body priceResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return 0, fmt.Errorf("%w: malformed price response: %v", ErrStalePrice, err)
	}
	if body.Stale || body.PriceUSD <= 0 {
		o.logger.Warn().Str("mint", mint.String()).Float64("price_usd", body.PriceUSD).
			Bool("stale", body.Stale).Msg("Rejecting unusable price")
		return 0, fmt.Errorf("%w: mint %s", ErrStalePrice, mint)
	}

	// Feed prices arrive as decimals; everything downstream is integer
	// fixed point.
	scaled := math.Floor(body.PriceUSD * float64(fixedpoint.Scale))
	if scaled <= 0 || scaled > float64(math.MaxInt64) {
		return 0, fmt.Errorf("%w: price %f out of range", ErrStalePrice, body.PriceUSD)
	}
	return int64(scaled), nil
}
