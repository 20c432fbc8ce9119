package swaprouter

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/wnt/crucible/internal/fixedpoint"
	"github.com/wnt/crucible/internal/utils"
)

// HTTPRouter talks to a swap-aggregator HTTP API.
type HTTPRouter struct {
	httpClient *utils.HTTPClient
	logger     zerolog.Logger
}

// NewHTTPRouter creates a router client against the aggregator base URL.
func NewHTTPRouter(baseURL string, logger zerolog.Logger) *HTTPRouter {
	return &HTTPRouter{
		httpClient: utils.NewHTTPClient(
			utils.WithBaseURL(baseURL),
		),
		logger: logger.With().Str("component", "swap_router").Logger(),
	}
}

type quoteResponse struct {
	RouteID     string `json:"route_id"`
	ExpectedOut int64  `json:"expected_out"`
}

type executeRequest struct {
	RouteID      string `json:"route_id"`
	AmountIn     int64  `json:"amount_in"`
	MinAmountOut int64  `json:"min_amount_out"`
}

type executeResponse struct {
	ActualOut int64 `json:"actual_out"`
}

// Quote asks the aggregator for an expected output.
func (r *HTTPRouter) Quote(ctx context.Context, inputMint, outputMint solana.PublicKey, amountIn int64) (Quote, error) {
	resp, err := r.httpClient.Get(ctx, "/quote", map[string]string{
		"input":  inputMint.String(),
		"output": outputMint.String(),
		"amount": fmt.Sprintf("%d", amountIn),
	})
	if err != nil {
		return Quote{}, fmt.Errorf("swap quote failed: %w", err)
	}

	var body quoteResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return Quote{}, fmt.Errorf("malformed swap quote: %w", err)
	}
	if body.ExpectedOut <= 0 {
		return Quote{}, fmt.Errorf("swap quote returned no route for %s -> %s", inputMint, outputMint)
	}
	return Quote{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		AmountIn:    amountIn,
		ExpectedOut: body.ExpectedOut,
		RouteID:     body.RouteID,
	}, nil
}

// Execute runs the quoted swap, enforcing the slippage bound locally as well
// as remotely: an actual output below the minimum fails the whole call.
func (r *HTTPRouter) Execute(ctx context.Context, quote Quote, maxSlippageBps int64) (int64, error) {
	slip, err := fixedpoint.MulBps(quote.ExpectedOut, maxSlippageBps)
	if err != nil {
		return 0, err
	}
	minOut := quote.ExpectedOut - slip

	resp, err := r.httpClient.Post(ctx, "/execute", executeRequest{
		RouteID:      quote.RouteID,
		AmountIn:     quote.AmountIn,
		MinAmountOut: minOut,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSlippageExceeded, err)
	}

	var body executeResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return 0, fmt.Errorf("malformed swap result: %w", err)
	}
	if body.ActualOut < minOut {
		r.logger.Warn().
			Int64("expected_out", quote.ExpectedOut).
			Int64("actual_out", body.ActualOut).
			Int64("min_out", minOut).
			Msg("Swap output below slippage bound")
		return 0, fmt.Errorf("%w: actual %d below minimum %d", ErrSlippageExceeded, body.ActualOut, minOut)
	}
	return body.ActualOut, nil
}
