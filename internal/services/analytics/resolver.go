package analytics

import (
	"strings"

	"github.com/bobmcallan/copilot/internal/clients/eodhd"
	"github.com/bobmcallan/copilot/internal/models"
)

// Asset types reported alongside market data sources
const (
	AssetStock     = "stock"
	AssetCommodity = "commodity"
	AssetCrypto    = "crypto"
	AssetIndex     = "index"
)

// symbolAliases maps friendly names to canonical market tickers.
var symbolAliases = map[string]string{
	"GOLD":      "GC=F",
	"SILVER":    "SI=F",
	"PLATINUM":  "PL=F",
	"OIL":       "CL=F",
	"CRUDE":     "CL=F",
	"CRUDE OIL": "CL=F",
	"WTI":       "CL=F",
	"BRENT":     "BZ=F",
	"BITCOIN":   "BTC-USD",
	"BTC":       "BTC-USD",
	"ETHEREUM":  "ETH-USD",
	"ETH":       "ETH-USD",
	"SOLANA":    "SOL-USD",
	"SOL":       "SOL-USD",
	"DOGECOIN":  "DOGE-USD",
	"DOGE":      "DOGE-USD",
	"S&P 500":   "^GSPC",
	"S&P500":    "^GSPC",
	"SP500":     "^GSPC",
	"SPX":       "^GSPC",
	"NASDAQ":    "^IXIC",
	"DOW":       "^DJI",
	"DOW JONES": "^DJI",
}

// NormalizeSymbol maps a requested token to a canonical ticker. Unknown
// tokens are returned upper-cased.
func NormalizeSymbol(token string) string {
	t := strings.ToUpper(strings.Join(strings.Fields(token), " "))
	if alias, ok := symbolAliases[t]; ok {
		return alias
	}
	return t
}

// AssetType classifies a canonical ticker.
func AssetType(symbol string) string {
	switch {
	case strings.HasSuffix(symbol, "=F"):
		return AssetCommodity
	case strings.HasSuffix(symbol, "-USD"):
		return AssetCrypto
	case strings.HasPrefix(symbol, "^"):
		return AssetIndex
	default:
		return AssetStock
	}
}

// MarketDataSource attributes a symbol's prices to the market data provider.
func MarketDataSource(symbol string) models.Source {
	return models.Source{
		Name: "EODHD - " + symbol,
		URL:  "https://eodhd.com/financial-summary/" + eodhd.ExchangeCode(symbol),
		Type: models.SourceMarketData,
	}
}

// ResolveAssets turns requested assets into tickers to analyse.
//
// An empty request or one containing "__ALL__" means every holding. Otherwise
// requests are normalized and any that match a holding win; with no match and
// allowExternal set, the normalized request is returned as an external query.
// An empty result means nothing could be resolved.
func ResolveAssets(requested []string, holdings []models.Holding, allowExternal bool) ([]string, bool) {
	owned := make([]string, 0, len(holdings))
	ownedSet := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		s := strings.ToUpper(h.Symbol)
		owned = append(owned, s)
		ownedSet[s] = true
	}

	if len(requested) == 0 {
		return owned, false
	}
	for _, r := range requested {
		if r == models.AllAssets {
			return owned, false
		}
	}

	normalized := make([]string, 0, len(requested))
	for _, r := range requested {
		normalized = append(normalized, NormalizeSymbol(r))
	}

	var matched []string
	for _, s := range normalized {
		if ownedSet[strings.ToUpper(s)] {
			matched = append(matched, s)
		}
	}
	if len(matched) > 0 {
		return matched, false
	}

	if allowExternal && len(normalized) > 0 {
		return normalized, true
	}
	return []string{}, false
}
