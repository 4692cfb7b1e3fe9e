package exchange

import "fmt"

// venueSymbols maps a high-level pair to the symbol each venue trades it as.
var venueSymbols = map[string]struct {
	coinbase string
	kraken   string
	gemini   string
}{
	"BTCUSD": {coinbase: "BTC-USD", kraken: "XBTUSD", gemini: "BTCUSD"},
	"ETHUSD": {coinbase: "ETH-USD", kraken: "ETHUSD", gemini: "ETHUSD"},
}

// Pairs lists the supported high-level pair symbols.
func Pairs() []string {
	return []string{"BTCUSD", "ETHUSD"}
}

// ForPair returns one adapter per venue for the given pair.
func ForPair(pair string) ([]Client, error) {
	symbols, ok := venueSymbols[pair]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}
	return []Client{
		NewCoinbase(symbols.coinbase),
		NewKraken(symbols.kraken),
		NewGemini(symbols.gemini),
	}, nil
}
