package coinbase

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// fakeCoinbase is an in-process stand-in for the Coinbase v2 API
type fakeCoinbase struct {
	server *httptest.Server

	currenciesHits atomic.Int32
	ratesHits      atomic.Int32

	mu               sync.Mutex
	currenciesStatus int
	currenciesBody   string
	ratesStatus      int
	ratesBody        string
	ratesQuery       url.Values
	ratesGate        chan struct{} // blocks the rates handler until closed, if set
}

func newFakeCoinbase(t *testing.T) *fakeCoinbase {
	t.Helper()

	f := &fakeCoinbase{
		currenciesStatus: http.StatusOK,
		currenciesBody:   `{"data":[]}`,
		ratesStatus:      http.StatusOK,
		ratesBody:        `{"data":{"currency":"BTC","rates":{}}}`,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /currencies", func(w http.ResponseWriter, _ *http.Request) {
		f.currenciesHits.Add(1)

		f.mu.Lock()
		status, body := f.currenciesStatus, f.currenciesBody
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	mux.HandleFunc("GET /exchange-rates", func(w http.ResponseWriter, r *http.Request) {
		f.ratesHits.Add(1)

		f.mu.Lock()
		status, body, gate := f.ratesStatus, f.ratesBody, f.ratesGate
		f.ratesQuery = r.URL.Query()
		f.mu.Unlock()

		if gate != nil {
			<-gate
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeCoinbase) URL() string {
	return f.server.URL
}

func (f *fakeCoinbase) setCurrencies(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.currenciesStatus = status
	f.currenciesBody = body
}

func (f *fakeCoinbase) setRates(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ratesStatus = status
	f.ratesBody = body
}

func (f *fakeCoinbase) setRatesGate(gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ratesGate = gate
}

func (f *fakeCoinbase) lastRatesQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.ratesQuery
}

func (f *fakeCoinbase) newClient() *client {
	return &client{
		http:    f.server.Client(),
		baseURL: f.server.URL,
	}
}

// currenciesJSON builds a /currencies body with the given ids
func currenciesJSON(t *testing.T, ids ...string) string {
	t.Helper()

	type entry struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	entries := make([]entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, entry{ID: id, Name: id + " currency"})
	}

	raw, err := json.Marshal(map[string]any{"data": entries})
	require.NoError(t, err)

	return string(raw)
}

// ratesJSON builds an /exchange-rates body for BTC with the given rates
func ratesJSON(t *testing.T, rates map[string]any) string {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"data": map[string]any{
			"currency": "BTC",
			"rates":    rates,
		},
	})
	require.NoError(t, err)

	return string(raw)
}

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now: time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// counterValue reads a counter sample from the registry, 0 if absent
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, metric := range family.GetMetric() {
			matched := 0

			for _, pair := range metric.GetLabel() {
				if value, ok := labels[pair.GetName()]; ok && value == pair.GetValue() {
					matched++
				}
			}

			if matched == len(labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}

	return 0
}
