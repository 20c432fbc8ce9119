package swaprouter

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrSlippageExceeded is returned when a swap cannot be executed within the
// caller's slippage bound. The caller's enclosing operation must abort
// whole; nothing is committed on this error.
var ErrSlippageExceeded = errors.New("swap router: slippage exceeded")

// Quote is a priced swap the router is prepared to execute.
type Quote struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	AmountIn    int64
	ExpectedOut int64
	RouteID     string
}

// Router abstracts the external swap aggregator used when opening and
// closing leveraged positions. Quote and Execute are resolved fully before
// the engine's atomic state mutation begins.
type Router interface {
	Quote(ctx context.Context, inputMint, outputMint solana.PublicKey, amountIn int64) (Quote, error)
	Execute(ctx context.Context, quote Quote, maxSlippageBps int64) (actualOut int64, err error)
}
