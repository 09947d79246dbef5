package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/cryptorisk/internal/clients"
	"github.com/vadiminshakov/cryptorisk/internal/services/market/symbols"
	"github.com/vadiminshakov/cryptorisk/pkg/retrier"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// noWaitRetrier keeps the production attempt budget without sleeping.
func noWaitRetrier() *retrier.Retrier {
	return retrier.New(retrier.WithSleep(func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}))
}

type testKline struct {
	openTime int64
	close    string
	volume   string
}

func klinesJSON(klines []testKline) string {
	rows := make([]string, len(klines))
	for i, k := range klines {
		rows[i] = fmt.Sprintf(`[%d,"1.0","1.0","1.0","%s","%s",%d,"0",10,"0","0","0"]`,
			k.openTime, k.close, k.volume, k.openTime+dayMillis-1)
	}
	return "[" + strings.Join(rows, ",") + "]"
}

func dailyKlines(n int, volume func(i int) string) []testKline {
	start := int64(1700000000000)
	out := make([]testKline, n)
	for i := 0; i < n; i++ {
		out[i] = testKline{
			openTime: start + int64(i)*dayMillis,
			close:    fmt.Sprintf("%d.5", 100+i),
			volume:   volume(i),
		}
	}
	return out
}

type binanceFixture struct {
	source   *BinanceSource
	requests *atomic.Int32
	clock    *testClock
}

func newBinanceFixture(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, n int32)) *binanceFixture {
	t.Helper()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		handler(w, r, n)
	}))
	t.Cleanup(srv.Close)

	clock := newTestClock()
	client := clients.NewBinanceClient(srv.URL, srv.Client())
	src := NewBinanceSource(client, symbols.Default(),
		WithRetrier(noWaitRetrier()),
		WithClock(clock.Now),
		WithRequestTimeout(2*time.Second),
	)

	return &binanceFixture{source: src, requests: &requests, clock: clock}
}

func TestBinanceSource_Volumes(t *testing.T) {
	t.Run("live candle excluded from current and average volume", func(t *testing.T) {
		klines := dailyKlines(30, func(i int) string {
			if i == 29 {
				return "0.5" // open day, barely traded
			}
			return fmt.Sprintf("%d", 1000+i)
		})

		f := newBinanceFixture(t, func(w http.ResponseWriter, r *http.Request, n int32) {
			assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
			assert.Equal(t, "30", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(klinesJSON(klines)))
		})

		data, err := f.source.Fetch(context.Background(), "bitcoin", 30)
		require.NoError(t, err)

		assert.Equal(t, BinanceName, data.Source)
		require.Len(t, data.Prices, 30)
		assert.True(t, data.CurrentVolume.Equal(decimal.NewFromInt(1028)), "got %s", data.CurrentVolume)
		// mean of 1000..1028
		assert.True(t, data.AverageVolume.Equal(decimal.NewFromInt(1014)), "got %s", data.AverageVolume)
		assert.True(t, data.Prices[0].Price.Equal(decimal.RequireFromString("100.5")))
		assert.Equal(t, klines[29].openTime, data.Prices[29].Timestamp)
	})

	t.Run("single candle feeds both figures", func(t *testing.T) {
		f := newBinanceFixture(t, func(w http.ResponseWriter, r *http.Request, n int32) {
			_, _ = w.Write([]byte(klinesJSON(dailyKlines(1, func(int) string { return "42.5" }))))
		})

		data, err := f.source.Fetch(context.Background(), "ethereum", 7)
		require.NoError(t, err)
		assert.True(t, data.CurrentVolume.Equal(decimal.RequireFromString("42.5")))
		assert.True(t, data.AverageVolume.Equal(decimal.RequireFromString("42.5")))
	})

	t.Run("out of order and duplicate candles are normalized", func(t *testing.T) {
		klines := []testKline{
			{openTime: 3 * dayMillis, close: "3", volume: "30"},
			{openTime: 1 * dayMillis, close: "1", volume: "10"},
			{openTime: 2 * dayMillis, close: "2", volume: "20"},
			{openTime: 2 * dayMillis, close: "2.5", volume: "25"},
		}
		f := newBinanceFixture(t, func(w http.ResponseWriter, r *http.Request, n int32) {
			_, _ = w.Write([]byte(klinesJSON(klines)))
		})

		data, err := f.source.Fetch(context.Background(), "solana", 7)
		require.NoError(t, err)
		require.Len(t, data.Prices, 3)
		assert.Equal(t, []int64{dayMillis, 2 * dayMillis, 3 * dayMillis},
			[]int64{data.Prices[0].Timestamp, data.Prices[1].Timestamp, data.Prices[2].Timestamp})
		assert.True(t, data.Prices[1].Price.Equal(decimal.RequireFromString("2.5")))
		assert.True(t, data.CurrentVolume.Equal(decimal.NewFromInt(25)))
	})
}

func TestBinanceSource_Cache(t *testing.T) {
	f := newBinanceFixture(t, func(w http.ResponseWriter, r *http.Request, n int32) {
		_, _ = w.Write([]byte(klinesJSON(dailyKlines(7, func(int) string { return "1" }))))
	})
	ctx := context.Background()

	first, err := f.source.Fetch(ctx, "bitcoin", 7)
	require.NoError(t, err)

	f.clock.Advance(59 * time.Second)
	second, err := f.source.Fetch(ctx, "bitcoin", 7)
	require.NoError(t, err)
	assert.Same(t, first, second, "cached bundle is returned verbatim")
	assert.Equal(t, int32(1), f.requests.Load())

	_, err = f.source.Fetch(ctx, "bitcoin", 30)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.requests.Load(), "window is part of the cache key")

	f.clock.Advance(time.Second)
	_, err = f.source.Fetch(ctx, "bitcoin", 7)
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.requests.Load(), "expired entry triggers a new request")
}

func TestBinanceSource_Failures(t *testing.T) {
	tests := []struct {
		name         string
		assetID      string
		handler      func(w http.ResponseWriter, r *http.Request, n int32)
		wantKind     Kind
		wantRequests int32
	}{
		{
			name:    "rate limited on every attempt",
			assetID: "bitcoin",
			handler: func(w http.ResponseWriter, r *http.Request, n int32) {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"code":-1003,"msg":"Too many requests"}`))
			},
			wantKind:     KindRateLimited,
			wantRequests: 3,
		},
		{
			name:    "bare 429 without an api error body",
			assetID: "bitcoin",
			handler: func(w http.ResponseWriter, r *http.Request, n int32) {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte("Too Many Requests"))
			},
			wantKind:     KindRateLimited,
			wantRequests: 3,
		},
		{
			name:    "rate limit code without a throttle status",
			assetID: "bitcoin",
			handler: func(w http.ResponseWriter, r *http.Request, n int32) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":-1015,"msg":"Too many new orders"}`))
			},
			wantKind:     KindRateLimited,
			wantRequests: 3,
		},
		{
			name:    "418 ip ban",
			assetID: "bitcoin",
			handler: func(w http.ResponseWriter, r *http.Request, n int32) {
				w.WriteHeader(http.StatusTeapot)
				_, _ = w.Write([]byte("Too Many Requests"))
			},
			wantKind:     KindRateLimited,
			wantRequests: 3,
		},
		{
			name:    "server errors exhaust the budget",
			assetID: "bitcoin",
			handler: func(w http.ResponseWriter, r *http.Request, n int32) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"code":-1000,"msg":"unknown"}`))
			},
			wantKind:     KindTransport,
			wantRequests: 3,
		},
		{
			name:    "comma decimal is malformed and not retried",
			assetID: "bitcoin",
			handler: func(w http.ResponseWriter, r *http.Request, n int32) {
				_, _ = w.Write([]byte(klinesJSON([]testKline{{openTime: dayMillis, close: "1,5", volume: "1"}})))
			},
			wantKind:     KindMalformed,
			wantRequests: 1,
		},
		{
			name:    "broken json is malformed",
			assetID: "bitcoin",
			handler: func(w http.ResponseWriter, r *http.Request, n int32) {
				_, _ = w.Write([]byte(`garbage`))
			},
			wantKind:     KindMalformed,
			wantRequests: 1,
		},
		{
			name:    "short kline row is malformed",
			assetID: "bitcoin",
			handler: func(w http.ResponseWriter, r *http.Request, n int32) {
				_, _ = w.Write([]byte(`[[1700000000000,"1"]]`))
			},
			wantKind:     KindMalformed,
			wantRequests: 1,
		},
		{
			name:    "no candles",
			assetID: "bitcoin",
			handler: func(w http.ResponseWriter, r *http.Request, n int32) {
				_, _ = w.Write([]byte(`[]`))
			},
			wantKind:     KindEmpty,
			wantRequests: 1,
		},
		{
			name:    "excluded asset never reaches upstream",
			assetID: "tether",
			handler: func(w http.ResponseWriter, r *http.Request, n int32) {
				t.Error("unexpected upstream request")
			},
			wantKind:     KindUnsupported,
			wantRequests: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBinanceFixture(t, tt.handler)

			data, err := f.source.Fetch(context.Background(), tt.assetID, 30)
			require.Error(t, err)
			assert.Nil(t, data)

			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantKind, perr.Kind, err.Error())
			assert.Equal(t, BinanceName, perr.Provider)
			assert.Equal(t, tt.wantRequests, f.requests.Load())
		})
	}
}

func TestBinanceSource_RecoversAfterRateLimit(t *testing.T) {
	f := newBinanceFixture(t, func(w http.ResponseWriter, r *http.Request, n int32) {
		if n < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":-1003,"msg":"Too many requests"}`))
			return
		}
		_, _ = w.Write([]byte(klinesJSON(dailyKlines(7, func(int) string { return "5" }))))
	})

	data, err := f.source.Fetch(context.Background(), "cardano", 7)
	require.NoError(t, err)
	assert.Len(t, data.Prices, 7)
	assert.Equal(t, int32(3), f.requests.Load())
}

func TestBinanceSource_BackoffDelays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var delays []time.Duration
	r := retrier.New(retrier.WithSleep(func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}))
	src := NewBinanceSource(clients.NewBinanceClient(srv.URL, srv.Client()), symbols.Default(), WithRetrier(r))

	_, err := src.Fetch(context.Background(), "bitcoin", 7)
	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestBinanceSource_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	f := newBinanceFixture(t, func(w http.ResponseWriter, r *http.Request, n int32) {
		<-release
		_, _ = w.Write([]byte(klinesJSON(dailyKlines(7, func(int) string { return "1" }))))
	})

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.source.Fetch(context.Background(), "bitcoin", 7)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.requests.Load())
}

func TestBinanceSource_Supports(t *testing.T) {
	src := NewBinanceSource(nil, symbols.Default())
	assert.True(t, src.Supports("bitcoin"))
	assert.False(t, src.Supports("usd-coin"))
	assert.False(t, src.Supports("made-up"))
	assert.Equal(t, BinanceName, src.Name())
}
