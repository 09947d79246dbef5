package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/cryptorisk/internal/services/market/symbols"
)

type fakeKlineClient struct {
	calls  atomic.Int32
	params []bybit.V5GetKlineParam
	fn     func(n int32) (*bybit.V5GetKlineResponse, error)
}

func (f *fakeKlineClient) GetKline(param bybit.V5GetKlineParam) (*bybit.V5GetKlineResponse, error) {
	n := f.calls.Add(1)
	f.params = append(f.params, param)
	return f.fn(n)
}

func bybitResponse(items ...bybit.V5GetKlineItem) *bybit.V5GetKlineResponse {
	resp := &bybit.V5GetKlineResponse{}
	resp.Result.List = items
	return resp
}

func TestBybitSource_Fetch(t *testing.T) {
	client := &fakeKlineClient{fn: func(int32) (*bybit.V5GetKlineResponse, error) {
		// newest first, as bybit returns them
		return bybitResponse(
			bybit.V5GetKlineItem{StartTime: "1700172800000", Close: "3", Volume: "1"},
			bybit.V5GetKlineItem{StartTime: "1700086400000", Close: "2", Volume: "200"},
			bybit.V5GetKlineItem{StartTime: "1700000000000", Close: "1", Volume: "100"},
		), nil
	}}
	src := NewBybitSource(client, symbols.Default(), WithRetrier(noWaitRetrier()))

	data, err := src.Fetch(context.Background(), "litecoin", 7)
	require.NoError(t, err)

	require.Len(t, client.params, 1)
	assert.Equal(t, bybit.SymbolV5("LTCUSDT"), client.params[0].Symbol)
	assert.Equal(t, bybit.CategoryV5Spot, client.params[0].Category)
	require.NotNil(t, client.params[0].Limit)
	assert.Equal(t, 7, *client.params[0].Limit)

	assert.Equal(t, BybitName, data.Source)
	require.Len(t, data.Prices, 3)
	assert.Equal(t, int64(1700000000000), data.Prices[0].Timestamp)
	assert.True(t, data.Prices[2].Price.Equal(decimal.NewFromInt(3)))
	assert.True(t, data.CurrentVolume.Equal(decimal.NewFromInt(200)))
	assert.True(t, data.AverageVolume.Equal(decimal.NewFromInt(150)))
}

func TestBybitSource_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assetID   string
		fn        func(n int32) (*bybit.V5GetKlineResponse, error)
		wantKind  Kind
		wantCalls int32
	}{
		{
			name:    "rate limit retCode",
			assetID: "bitcoin",
			fn: func(int32) (*bybit.V5GetKlineResponse, error) {
				return nil, errors.New("retCode=10006, retMsg=Too many visits!")
			},
			wantKind:  KindRateLimited,
			wantCalls: 3,
		},
		{
			name:    "network failure",
			assetID: "bitcoin",
			fn: func(int32) (*bybit.V5GetKlineResponse, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
			wantKind:  KindTransport,
			wantCalls: 3,
		},
		{
			name:    "bad number",
			assetID: "bitcoin",
			fn: func(int32) (*bybit.V5GetKlineResponse, error) {
				return bybitResponse(bybit.V5GetKlineItem{StartTime: "1700000000000", Close: "1,5", Volume: "1"}), nil
			},
			wantKind:  KindMalformed,
			wantCalls: 1,
		},
		{
			name:    "empty list",
			assetID: "bitcoin",
			fn: func(int32) (*bybit.V5GetKlineResponse, error) {
				return bybitResponse(), nil
			},
			wantKind:  KindEmpty,
			wantCalls: 1,
		},
		{
			name:    "excluded asset",
			assetID: "wrapped-bitcoin",
			fn: func(int32) (*bybit.V5GetKlineResponse, error) {
				return bybitResponse(), nil
			},
			wantKind:  KindUnsupported,
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeKlineClient{fn: tt.fn}
			src := NewBybitSource(client, symbols.Default(), WithRetrier(noWaitRetrier()))

			_, err := src.Fetch(context.Background(), tt.assetID, 30)
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.wantKind), err.Error())
			assert.Equal(t, tt.wantCalls, client.calls.Load())
		})
	}
}
