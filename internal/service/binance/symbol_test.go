package binance

import (
	"strings"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
)

func TestNormalizeSymbolConventions(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"BTCUSDT", "BTCUSDT", true},
		{"btcusdt", "BTCUSDT", true},
		{" ethusdt ", "ETHUSDT", true},
		{"BTC-USDT", "BTCUSDT", true},
		{"BTC_USDT", "BTCUSDT", true},
		{"BTC/USDT", "BTCUSDT", true},
		{"BTC-USD", "BTCUSDT", true}, // bare USD maps to the pegged market
		{"sol_usdc", "SOLUSDC", true},
		{"1INCHUSDT", "1INCHUSDT", true},
		{"", "", false},
		{"   ", "", false},
		{"BTC-", "", false},
		{"-USDT", "", false},
		{"BTC--USDT", "", false},
		{"BTC USD", "", false},
		{"BTC.USD", "", false},
		{"USDT", "", false},      // no base
		{"BTCDOGE", "", false},   // unknown quote
		{"not a symbol!", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizeSymbol(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("NormalizeSymbol(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestNormalizeSymbolOutputsAlwaysValid(t *testing.T) {
	inputs := []string{"BTCUSDT", "btc-usd", "ETH_USDT", "sol/usdc", "DOGEUSDT", "junk!", "x", "ADA-EUR"}
	for _, in := range inputs {
		got, ok := NormalizeSymbol(in)
		if !ok {
			continue
		}
		if got != strings.ToUpper(got) || !isAlphanumeric(got) {
			t.Fatalf("accepted output %q is not normalized", got)
		}
		if _, _, pairOK := models.DeriveCurrencyPair(got); !pairOK {
			t.Fatalf("accepted output %q has no recognized quote suffix", got)
		}
	}
}

func TestBackoffRespectsCap(t *testing.T) {
	b := Backoff{Min: time.Second, Max: 60 * time.Second, Factor: 2, Jitter: 0}
	if got := b.Next(1); got != time.Second {
		t.Fatalf("first attempt should wait the minimum, got %v", got)
	}
	if got := b.Next(3); got != 4*time.Second {
		t.Fatalf("expected 4s on third attempt, got %v", got)
	}
	for attempt := 1; attempt < 30; attempt++ {
		if got := b.Next(attempt); got > 60*time.Second {
			t.Fatalf("attempt %d exceeded cap: %v", attempt, got)
		}
	}
}

func TestBackoffJitterStaysNearBase(t *testing.T) {
	b := Backoff{Min: time.Second, Max: 60 * time.Second, Factor: 2, Jitter: 0.2}
	for i := 0; i < 100; i++ {
		got := b.Next(2)
		if got < 1600*time.Millisecond || got > 2400*time.Millisecond {
			t.Fatalf("jittered wait %v outside 20%% band around 2s", got)
		}
	}
}

func TestBackoffJitterNeverExceedsCap(t *testing.T) {
	// once the exponential base saturates at Max, jitter may only pull
	// the wait down, never push it past the ceiling
	b := Backoff{Min: time.Second, Max: 60 * time.Second, Factor: 2, Jitter: 0.2}
	for i := 0; i < 200; i++ {
		if got := b.Next(20); got > 60*time.Second {
			t.Fatalf("saturated wait %v exceeded 60s cap", got)
		}
	}
}
