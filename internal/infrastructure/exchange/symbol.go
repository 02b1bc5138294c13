package exchange

import "strings"

// contract name suffixes venues attach to perpetuals, stripped before
// normalization
var perpSuffixes = []string{"-SWAP", "-PERP", "_PERP", ":USDT", "_UMCBL", "-FUTURES", "_FUTURES"}

var quoteAssets = []string{"USDT", "USDC", "BUSD", "USD"}

// NormalizeSymbol converts a venue-native contract name to the common
// BASE/QUOTE form: "BTCUSDT" -> "BTC/USDT", "BTC-USDT-SWAP" -> "BTC/USDT",
// "BTC_USDT" -> "BTC/USDT". Names that cannot be normalized are returned
// unchanged.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))

	for _, suffix := range perpSuffixes {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSuffix(s, suffix)
		}
	}

	if strings.Contains(s, "/") {
		if parts := strings.Split(s, "/"); len(parts) == 2 {
			return parts[0] + "/" + parts[1]
		}
	}

	for _, sep := range []string{"-", "_"} {
		if !strings.Contains(s, sep) {
			continue
		}
		if parts := strings.Split(s, sep); len(parts) >= 2 && isQuoteAsset(parts[1]) {
			return parts[0] + "/" + parts[1]
		}
	}

	for _, quote := range quoteAssets {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s[:len(s)-len(quote)] + "/" + quote
		}
	}

	return symbol
}

func isQuoteAsset(s string) bool {
	for _, q := range quoteAssets {
		if s == q {
			return true
		}
	}
	return false
}

// specialMappings pins the heavily traded contracts whose venue names do not
// follow the venue's usual pattern, hyperliquid's bare coin names included.
var specialMappings = map[string]map[string]string{
	"BTC/USDT": {
		Binance: "BTCUSDT", Bybit: "BTCUSDT", OKX: "BTC-USDT-SWAP",
		Gate: "BTC_USDT", Bitget: "BTCUSDT", MEXC: "BTC_USDT", Hyperliquid: "BTC",
	},
	"ETH/USDT": {
		Binance: "ETHUSDT", Bybit: "ETHUSDT", OKX: "ETH-USDT-SWAP",
		Gate: "ETH_USDT", Bitget: "ETHUSDT", MEXC: "ETH_USDT", Hyperliquid: "ETH",
	},
}

type symbolKey struct {
	exchange string
	symbol   string
}

// SymbolMapper translates between the common BASE/QUOTE form and venue
// listings, honoring the pinned special cases in both directions.
type SymbolMapper struct {
	reverse map[symbolKey]string
}

func NewSymbolMapper() *SymbolMapper {
	m := &SymbolMapper{reverse: make(map[symbolKey]string)}
	for normalized, venues := range specialMappings {
		for ex, raw := range venues {
			m.reverse[symbolKey{exchange: strings.ToLower(ex), symbol: strings.ToUpper(raw)}] = normalized
		}
	}
	return m
}

// ToNormalized maps a venue-native symbol to BASE/QUOTE.
func (m *SymbolMapper) ToNormalized(symbol, exchange string) string {
	k := symbolKey{exchange: strings.ToLower(exchange), symbol: strings.ToUpper(symbol)}
	if n, ok := m.reverse[k]; ok {
		return n
	}
	return NormalizeSymbol(symbol)
}

// ToExchange renders a normalized symbol the way the venue lists it, empty
// when the symbol cannot be expressed on that venue.
func (m *SymbolMapper) ToExchange(normalized, exchange string) string {
	exchange = strings.ToLower(exchange)
	if venues, ok := specialMappings[normalized]; ok {
		return venues[exchange]
	}

	parts := strings.Split(normalized, "/")
	if len(parts) != 2 {
		return ""
	}
	base, quote := parts[0], parts[1]

	switch exchange {
	case OKX:
		return base + "-" + quote + "-SWAP"
	case Gate, MEXC:
		return base + "_" + quote
	case Hyperliquid:
		return base
	default:
		return base + quote
	}
}

// FindCommonSymbols groups venue listings by normalized name and keeps the
// contracts listed on at least two venues, mapping each back to its raw
// per-venue name.
func (m *SymbolMapper) FindCommonSymbols(listings map[string][]string) map[string]map[string]string {
	grouped := make(map[string]map[string]string)
	for exchange, symbols := range listings {
		for _, raw := range symbols {
			n := m.ToNormalized(raw, exchange)
			if grouped[n] == nil {
				grouped[n] = make(map[string]string)
			}
			grouped[n][exchange] = raw
		}
	}
	for n, venues := range grouped {
		if len(venues) < 2 {
			delete(grouped, n)
		}
	}
	return grouped
}
