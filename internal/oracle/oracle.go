package oracle

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrStalePrice is returned when no sufficiently fresh price is available
// for an asset. Engine operations never proceed on a stale price; the
// enclosing operation aborts before any state is touched.
var ErrStalePrice = errors.New("oracle: stale or missing price")

// PriceOracle supplies USD prices for assets identified by their mint.
// Prices are fixed-point scaled by fixedpoint.Scale (USD per whole token).
type PriceOracle interface {
	Price(ctx context.Context, mint solana.PublicKey) (int64, error)
}
