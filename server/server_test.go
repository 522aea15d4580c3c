package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/btcrates/provider/currencies"
	"github.com/sig-0/btcrates/server/config"
	"github.com/sig-0/btcrates/storage/mock"
	"github.com/sig-0/btcrates/storage/types"
)

func serve(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, http.NoBody)
	w := httptest.NewRecorder()

	s.mux.ServeHTTP(w, req)

	return w
}

func TestServer_New(t *testing.T) {
	t.Parallel()

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.ListenAddress = "nope"

		s, err := New(&mock.Storage{}, WithConfig(cfg))

		assert.Nil(t, s)
		assert.ErrorIs(t, err, config.ErrInvalidListenAddress)
	})

	t.Run("health", func(t *testing.T) {
		t.Parallel()

		s, err := New(&mock.Storage{})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/health").Code)
	})

	t.Run("quote route requires provider", func(t *testing.T) {
		t.Parallel()

		s, err := New(&mock.Storage{})
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, "/v1/quote/BTC/USD").Code)
	})

	t.Run("quote route", func(t *testing.T) {
		t.Parallel()

		p := &mockProvider{
			exchangeRateFn: func(_ context.Context, pair types.Pair) (*types.ExchangeRate, error) {
				return &types.ExchangeRate{
					Base:   pair.Base,
					Target: pair.Target,
					Rate:   65000.12,
				}, nil
			},
		}

		s, err := New(&mock.Storage{}, WithProvider(p))
		require.NoError(t, err)

		w := serve(t, s, http.MethodGet, "/v1/quote/BTC/USD")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"rate":65000.12`)
	})

	t.Run("rates routes", func(t *testing.T) {
		t.Parallel()

		var queries []*types.RateQuery

		storage := &mock.Storage{
			LatestRatesFn: func(_ context.Context, query *types.RateQuery) (*types.Page[*types.ExchangeRate], error) {
				queries = append(queries, query)

				return &types.Page[*types.ExchangeRate]{}, nil
			},
		}

		s, err := New(storage)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/v1/rates/BTC").Code)
		assert.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/v1/rates/BTC/EUR").Code)

		require.Len(t, queries, 2)
		assert.Nil(t, queries[0].Target)

		require.NotNil(t, queries[1].Target)
		assert.Equal(t, currencies.EUR, *queries[1].Target)
	})

	t.Run("metrics", func(t *testing.T) {
		t.Parallel()

		reg := prometheus.NewRegistry()

		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "test_requests_total",
			Help: "Test counter",
		})
		reg.MustRegister(counter)
		counter.Inc()

		s, err := New(&mock.Storage{}, WithGatherer(reg))
		require.NoError(t, err)

		w := serve(t, s, http.MethodGet, "/metrics")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "test_requests_total 1")
	})

	t.Run("metrics route requires gatherer", func(t *testing.T) {
		t.Parallel()

		s, err := New(&mock.Storage{})
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, "/metrics").Code)
	})

	t.Run("openapi", func(t *testing.T) {
		t.Parallel()

		s, err := New(&mock.Storage{})
		require.NoError(t, err)

		w := serve(t, s, http.MethodGet, "/openapi.yaml")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/v1/quote/{base}/{target}")

		w = serve(t, s, http.MethodGet, "/docs")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `spec-url="/openapi.yaml"`)
	})

	t.Run("cors", func(t *testing.T) {
		t.Parallel()

		s, err := New(&mock.Storage{})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
		req.Header.Set("Origin", "https://example.com")

		w := httptest.NewRecorder()
		s.mux.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	s, err := New(&mock.Storage{})
	require.NoError(t, err)

	s.Routes(nil) // no-op

	s.Routes(func(router chi.Router) {
		router.Get("/custom", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "custom")
		})
	})

	w := serve(t, s, http.MethodGet, "/custom")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "custom", w.Body.String())
}

func TestServer_Serve(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.ListenAddress = "127.0.0.1:0"

	s, err := New(&mock.Storage{}, WithConfig(cfg))
	require.NoError(t, err)

	ctx, cancelFn := context.WithCancel(context.Background())
	cancelFn()

	// A canceled context shuts the server down right after startup
	assert.NoError(t, s.Serve(ctx))
}
