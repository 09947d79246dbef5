// Package symbols maps canonical asset ids onto exchange trading symbols.
package symbols

// Mapper is an immutable asset id to spot symbol table. An id can be absent
// (unknown asset) or present with no symbol (listed but excluded from exchange
// sources, mostly stablecoins without a liquid USDT pair).
type Mapper struct {
	table map[string]*string
}

func sym(s string) *string { return &s }

var defaultTable = map[string]*string{
	"bitcoin":         sym("BTCUSDT"),
	"ethereum":        sym("ETHUSDT"),
	"ripple":          sym("XRPUSDT"),
	"binancecoin":     sym("BNBUSDT"),
	"solana":          sym("SOLUSDT"),
	"tron":            sym("TRXUSDT"),
	"dogecoin":        sym("DOGEUSDT"),
	"cardano":         sym("ADAUSDT"),
	"avalanche-2":     sym("AVAXUSDT"),
	"chainlink":       sym("LINKUSDT"),
	"shiba-inu":       sym("SHIBUSDT"),
	"bitcoin-cash":    sym("BCHUSDT"),
	"stellar":         sym("XLMUSDT"),
	"polkadot":        sym("DOTUSDT"),
	"litecoin":        sym("LTCUSDT"),
	"uniswap":         sym("UNIUSDT"),
	"dai":             sym("DAIUSDT"),
	"wrapped-bitcoin": nil,
	"tether":          nil,
	"usd-coin":        nil,
}

var defaultMapper = New(defaultTable)

// Default returns the built-in table.
func Default() *Mapper {
	return defaultMapper
}

// New copies table into a new Mapper. A nil value marks an excluded asset.
func New(table map[string]*string) *Mapper {
	m := &Mapper{table: make(map[string]*string, len(table))}
	for id, s := range table {
		if s != nil {
			m.table[id] = sym(*s)
		} else {
			m.table[id] = nil
		}
	}
	return m
}

// Lookup returns the symbol for assetID. known is false for ids missing from the table;
// a known id with an empty symbol is explicitly excluded.
func (m *Mapper) Lookup(assetID string) (symbol string, known bool) {
	s, ok := m.table[assetID]
	if !ok {
		return "", false
	}
	if s == nil {
		return "", true
	}
	return *s, true
}

// Supported reports whether assetID has an exchange symbol.
func (m *Mapper) Supported(assetID string) bool {
	_, ok := m.PrimarySymbol(assetID)
	return ok
}

// PrimarySymbol returns the exchange symbol for assetID, if any.
func (m *Mapper) PrimarySymbol(assetID string) (string, bool) {
	s, _ := m.Lookup(assetID)
	return s, s != ""
}
