package models

import (
	"fmt"
	"strings"
	"time"
)

// Symbol is a tradable instrument in the catalog. The (Ticker, Venue)
// pair is unique; rows are never deleted, only deactivated.
type Symbol struct {
	ID         string
	Ticker     string
	Venue      string
	BaseAsset  string
	QuoteAsset string
	AssetClass string // CRYPTO, EQUITY, FOREX, COMMODITY
	IsActive   bool
	IsTracked  bool
	Metadata   map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Key returns the unique (ticker, venue) catalog key.
func (s *Symbol) Key() string {
	return SymbolKey(s.Ticker, s.Venue)
}

// SymbolKey builds the catalog key for a ticker/venue pair.
func SymbolKey(ticker, venue string) string {
	return fmt.Sprintf("%s|%s", strings.ToUpper(ticker), strings.ToUpper(venue))
}

// QuoteAssets lists recognized quote-currency suffixes, longest first so
// that suffix matching is unambiguous (USDT before USD, BUSD before BTC).
var QuoteAssets = []string{"USDT", "USDC", "BUSD", "FDUSD", "TUSD", "EUR", "GBP", "TRY", "BTC", "ETH", "BNB"}

// DeriveCurrencyPair splits a concatenated ticker like BTCUSDT into its
// base and quote assets. Returns ok=false when no known quote suffix
// matches or the base would be empty.
func DeriveCurrencyPair(ticker string) (base, quote string, ok bool) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	for _, q := range QuoteAssets {
		if strings.HasSuffix(t, q) && len(t) > len(q) {
			return t[:len(t)-len(q)], q, true
		}
	}
	return "", "", false
}
