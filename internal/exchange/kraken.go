package exchange

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iangfernandes96/order-book/internal/book"
)

const krakenBaseURL = "https://api.kraken.com"

// KrakenClient fetches depth from the Kraken public Depth endpoint. Kraken
// nests the book under a result object keyed by its own internal ticker,
// which differs from the symbol used in the query.
type KrakenClient struct {
	symbol  string
	baseURL string
	*fetcher
}

// NewKraken creates a Kraken adapter for a venue symbol (e.g. XBTUSD).
func NewKraken(symbol string) *KrakenClient {
	return &KrakenClient{
		symbol:  symbol,
		baseURL: krakenBaseURL,
		fetcher: newFetcher(book.Kraken),
	}
}

func (c *KrakenClient) Exchange() book.Exchange { return book.Kraken }

func (c *KrakenClient) Symbol() string { return c.symbol }

// resultKey maps the query symbol to the ticker Kraken keys its result by.
func (c *KrakenClient) resultKey() string {
	switch c.symbol {
	case "XBTUSD":
		return "XXBTZUSD"
	case "ETHUSD":
		return "XETHZUSD"
	}
	return ""
}

func (c *KrakenClient) FetchOrderBook(ctx context.Context) (book.Book, error) {
	url := fmt.Sprintf("%s/0/public/Depth?pair=%s", c.baseURL, c.symbol)

	var payload struct {
		Result map[string]struct {
			Bids []json.RawMessage `json:"bids"`
			Asks []json.RawMessage `json:"asks"`
		} `json:"result"`
	}
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return book.Book{}, fmt.Errorf("kraken %s: %w", c.symbol, err)
	}

	result, ok := payload.Result[c.resultKey()]
	if !ok {
		return book.Book{}, fmt.Errorf("%w: kraken result missing key %q", ErrBadResponseShape, c.resultKey())
	}

	return normalize(result.Bids, result.Asks, book.Kraken)
}
