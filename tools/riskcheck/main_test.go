package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectAsset(t *testing.T) {
	tests := []struct {
		name       string
		assetID    string
		days       int
		daysSet    bool
		wantAsset  string
		wantDays   int
		wantPicker bool
		wantAsk    bool
	}{
		{name: "asset flag skips the picker", assetID: "bitcoin", days: 90, daysSet: true, wantAsset: "bitcoin", wantDays: 90},
		{name: "explicit days is kept", days: 7, daysSet: true, wantAsset: "solana", wantDays: 7, wantPicker: true},
		{name: "default days lets the picker ask", days: 30, wantAsset: "solana", wantDays: 90, wantPicker: true, wantAsk: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			pick := func(days int, askWindow bool) (string, int, error) {
				called = true
				assert.Equal(t, tt.wantAsk, askWindow)
				if askWindow {
					return "solana", 90, nil
				}
				return "solana", days, nil
			}

			asset, days, err := selectAsset(tt.assetID, tt.days, tt.daysSet, pick)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPicker, called)
			assert.Equal(t, tt.wantAsset, asset)
			assert.Equal(t, tt.wantDays, days)
		})
	}
}
