package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnt/crucible/internal/fixedpoint"
)

func priceServer(t *testing.T, priceUSD float64, stale bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(priceResponse{
			Mint:     r.URL.Path[len("/price/"):],
			PriceUSD: priceUSD,
			Stale:    stale,
		})
	}))
}

func TestHTTPOraclePrice(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	t.Run("decimal price converts to fixed point", func(t *testing.T) {
		server := priceServer(t, 199.5, false)
		defer server.Close()

		o := NewHTTPOracle(server.URL, zerolog.Nop())
		price, err := o.Price(context.Background(), mint)
		require.NoError(t, err)
		assert.Equal(t, int64(199_500_000), price)
	})

	t.Run("stale price rejected", func(t *testing.T) {
		server := priceServer(t, 199.5, true)
		defer server.Close()

		o := NewHTTPOracle(server.URL, zerolog.Nop())
		_, err := o.Price(context.Background(), mint)
		assert.ErrorIs(t, err, ErrStalePrice)
	})

	t.Run("non-positive price rejected", func(t *testing.T) {
		server := priceServer(t, 0, false)
		defer server.Close()

		o := NewHTTPOracle(server.URL, zerolog.Nop())
		_, err := o.Price(context.Background(), mint)
		assert.ErrorIs(t, err, ErrStalePrice)
	})

	t.Run("server error rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		o := NewHTTPOracle(server.URL, zerolog.Nop())
		_, err := o.Price(context.Background(), mint)
		assert.ErrorIs(t, err, ErrStalePrice)
	})
}

func TestFailoverOracle(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	t.Run("fails over from a broken endpoint", func(t *testing.T) {
		broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer broken.Close()
		good := priceServer(t, 42.0, false)
		defer good.Close()

		pool := NewFailoverOracle([]string{broken.URL, good.URL}, zerolog.Nop())

		// Every lookup succeeds regardless of which endpoint round-robin
		// lands on first; by the third call the broken endpoint has been
		// visited and cooled down.
		for i := 0; i < 3; i++ {
			price, err := pool.Price(context.Background(), mint)
			require.NoError(t, err)
			assert.Equal(t, int64(42*fixedpoint.Scale), price)
		}
		assert.Equal(t, 1, pool.HealthyEndpointCount())
	})

	t.Run("all endpoints down", func(t *testing.T) {
		broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer broken.Close()

		pool := NewFailoverOracle([]string{broken.URL}, zerolog.Nop())
		_, err := pool.Price(context.Background(), mint)
		assert.Error(t, err)
	})
}
