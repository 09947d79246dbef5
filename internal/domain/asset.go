package domain

// Asset entry of the supported asset catalog. ID is the canonical asset id
// used by every data source.
type Asset struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

var assets = []Asset{
	{ID: "bitcoin", Name: "Bitcoin", Ticker: "BTC"},
	{ID: "ethereum", Name: "Ethereum", Ticker: "ETH"},
	{ID: "tether", Name: "Tether", Ticker: "USDT"},
	{ID: "ripple", Name: "Ripple", Ticker: "XRP"},
	{ID: "binancecoin", Name: "BNB", Ticker: "BNB"},
	{ID: "solana", Name: "Solana", Ticker: "SOL"},
	{ID: "usd-coin", Name: "USDC", Ticker: "USDC"},
	{ID: "tron", Name: "TRON", Ticker: "TRX"},
	{ID: "dogecoin", Name: "Dogecoin", Ticker: "DOGE"},
	{ID: "cardano", Name: "Cardano", Ticker: "ADA"},
	{ID: "avalanche-2", Name: "Avalanche", Ticker: "AVAX"},
	{ID: "chainlink", Name: "Chainlink", Ticker: "LINK"},
	{ID: "shiba-inu", Name: "Shiba Inu", Ticker: "SHIB"},
	{ID: "bitcoin-cash", Name: "Bitcoin Cash", Ticker: "BCH"},
	{ID: "stellar", Name: "Stellar", Ticker: "XLM"},
	{ID: "polkadot", Name: "Polkadot", Ticker: "DOT"},
	{ID: "litecoin", Name: "Litecoin", Ticker: "LTC"},
	{ID: "uniswap", Name: "Uniswap", Ticker: "UNI"},
	{ID: "wrapped-bitcoin", Name: "Wrapped Bitcoin", Ticker: "WBTC"},
	{ID: "dai", Name: "Dai", Ticker: "DAI"},
}

// Assets returns a copy of the asset catalog in display order.
func Assets() []Asset {
	out := make([]Asset, len(assets))
	copy(out, assets)
	return out
}

// AssetByID looks up a catalog entry.
func AssetByID(id string) (Asset, bool) {
	for _, a := range assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}
