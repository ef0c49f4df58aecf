package binance

import (
	"strings"

	"TradePulse/internal/domain/models"
)

// NormalizeSymbol maps the various ticker conventions seen in raw data
// (BTC-USDT, btc_usdt, BTC/USD) into the exchange's concatenated
// alphanumeric form. Inputs that do not reduce to an alphanumeric ticker
// ending in a recognized quote asset are rejected with ok=false and must
// never be passed upstream.
func NormalizeSymbol(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}

	// Separator conventions carry an explicit base/quote split; map the
	// bare USD quote onto USDT, the exchange's dollar-pegged market.
	for _, sep := range []string{"-", "_", "/"} {
		if base, quote, found := strings.Cut(s, sep); found {
			if base == "" || quote == "" || strings.ContainsAny(quote, "-_/") {
				return "", false
			}
			if quote == "USD" {
				quote = "USDT"
			}
			s = base + quote
			break
		}
	}

	if !isAlphanumeric(s) {
		return "", false
	}
	if _, _, ok := models.DeriveCurrencyPair(s); !ok {
		return "", false
	}
	return s, true
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
