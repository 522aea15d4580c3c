package coinbase

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/btcrates/provider/currencies"
)

func newTestCache(f *fakeCoinbase, clock *fakeClock, maxAge time.Duration) *rateCache {
	return &rateCache{
		logger: noopLogger,
		client: f.newClient(),
		now:    clock.Now,
		base:   currencies.BTC,
		maxAge: maxAge,
	}
}

func TestSnapshot_Nil(t *testing.T) {
	t.Parallel()

	var s *Snapshot

	_, ok := s.Rate(currencies.USD)

	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestRateCache_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("empty before first refresh", func(t *testing.T) {
		t.Parallel()

		c := newTestCache(newFakeCoinbase(t), newFakeClock(), 0)

		assert.Nil(t, c.snapshot())
	})

	t.Run("publishes snapshot", func(t *testing.T) {
		t.Parallel()

		var (
			f     = newFakeCoinbase(t)
			clock = newFakeClock()
			c     = newTestCache(f, clock, 0)
		)

		f.setRates(http.StatusOK, ratesJSON(t, map[string]any{"USD": "65000.12"}))

		require.NoError(t, c.refresh(context.Background()))

		snapshot := c.snapshot()
		require.NotNil(t, snapshot)

		assert.Equal(t, clock.Now(), snapshot.FetchedAt)
		assert.Equal(t, 1, snapshot.Len())

		rate, ok := snapshot.Rate(currencies.USD)
		require.True(t, ok)
		assert.Equal(t, "65000.12", rate.String())
	})

	t.Run("replaces whole table", func(t *testing.T) {
		t.Parallel()

		var (
			f = newFakeCoinbase(t)
			c = newTestCache(f, newFakeClock(), 0)
		)

		f.setRates(http.StatusOK, ratesJSON(t, map[string]any{"USD": "1", "EUR": "2"}))
		require.NoError(t, c.refresh(context.Background()))

		f.setRates(http.StatusOK, ratesJSON(t, map[string]any{"USD": "3"}))
		require.NoError(t, c.refresh(context.Background()))

		rate, ok := c.snapshot().Rate(currencies.USD)
		require.True(t, ok)
		assert.Equal(t, "3", rate.String())

		_, ok = c.snapshot().Rate(currencies.EUR)
		assert.False(t, ok)
	})

	t.Run("failure keeps previous snapshot", func(t *testing.T) {
		t.Parallel()

		var (
			f     = newFakeCoinbase(t)
			clock = newFakeClock()
			c     = newTestCache(f, clock, 0)
		)

		f.setRates(http.StatusOK, ratesJSON(t, map[string]any{"USD": "65000.12"}))
		require.NoError(t, c.refresh(context.Background()))

		previous := c.snapshot()

		clock.Advance(time.Minute)
		f.setRates(http.StatusInternalServerError, `{}`)

		assert.ErrorIs(t, c.refresh(context.Background()), ErrUnexpectedStatus)
		assert.Same(t, previous, c.snapshot())
	})

	t.Run("max age skips refresh", func(t *testing.T) {
		t.Parallel()

		var (
			f     = newFakeCoinbase(t)
			clock = newFakeClock()
			c     = newTestCache(f, clock, time.Minute)
		)

		f.setRates(http.StatusOK, ratesJSON(t, map[string]any{"USD": "1"}))

		require.NoError(t, c.refresh(context.Background()))
		require.NoError(t, c.refresh(context.Background()))
		assert.EqualValues(t, 1, f.ratesHits.Load())

		clock.Advance(time.Minute)

		require.NoError(t, c.refresh(context.Background()))
		assert.EqualValues(t, 2, f.ratesHits.Load())
	})

	t.Run("zero max age refreshes every call", func(t *testing.T) {
		t.Parallel()

		var (
			f = newFakeCoinbase(t)
			c = newTestCache(f, newFakeClock(), 0)
		)

		for range 3 {
			require.NoError(t, c.refresh(context.Background()))
		}

		assert.EqualValues(t, 3, f.ratesHits.Load())
	})

	t.Run("concurrent refreshes share a request", func(t *testing.T) {
		t.Parallel()

		var (
			f    = newFakeCoinbase(t)
			c    = newTestCache(f, newFakeClock(), 0)
			gate = make(chan struct{})

			wg      sync.WaitGroup
			callers = 10
			errs    = make(chan error, callers)
		)

		f.setRates(http.StatusOK, ratesJSON(t, map[string]any{"USD": "1"}))
		f.setRatesGate(gate)

		refresh := func() {
			defer wg.Done()

			errs <- c.refresh(context.Background())
		}

		// Start the leader, and wait for it to reach the upstream
		wg.Add(1)

		go refresh()

		require.Eventually(t, func() bool {
			return f.ratesHits.Load() == 1
		}, 5*time.Second, 5*time.Millisecond)

		wg.Add(callers - 1)

		for range callers - 1 {
			go refresh()
		}

		// Give the followers time to join the in-flight call
		time.Sleep(100 * time.Millisecond)
		close(gate)

		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}

		assert.EqualValues(t, 1, f.ratesHits.Load())
		assert.Equal(t, 1, c.snapshot().Len())
	})

	t.Run("canceled caller does not fail the shared request", func(t *testing.T) {
		t.Parallel()

		var (
			f    = newFakeCoinbase(t)
			c    = newTestCache(f, newFakeClock(), 0)
			gate = make(chan struct{})

			leaderErr   = make(chan error, 1)
			followerErr = make(chan error, 1)
		)

		f.setRates(http.StatusOK, ratesJSON(t, map[string]any{"USD": "65000.12"}))
		f.setRatesGate(gate)

		openGate := sync.OnceFunc(func() { close(gate) })
		t.Cleanup(openGate)

		leaderCtx, cancelFn := context.WithCancel(context.Background())
		defer cancelFn()

		go func() {
			leaderErr <- c.refresh(leaderCtx)
		}()

		require.Eventually(t, func() bool {
			return f.ratesHits.Load() == 1
		}, 5*time.Second, 5*time.Millisecond)

		go func() {
			followerErr <- c.refresh(context.Background())
		}()

		// Give the follower time to join the in-flight call
		time.Sleep(100 * time.Millisecond)

		// The leader stops waiting as soon as its own context is done
		cancelFn()

		select {
		case err := <-leaderErr:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("leader did not return after cancellation")
		}

		openGate()

		select {
		case err := <-followerErr:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("follower did not return")
		}

		assert.EqualValues(t, 1, f.ratesHits.Load())

		rate, ok := c.snapshot().Rate(currencies.USD)
		require.True(t, ok)
		assert.Equal(t, "65000.12", rate.String())
	})
}
