package exchange

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iangfernandes96/order-book/internal/book"
)

const coinbaseBaseURL = "https://api.pro.coinbase.com"

// CoinbaseClient fetches level-2 depth from the Coinbase Pro book endpoint.
type CoinbaseClient struct {
	symbol  string
	baseURL string
	*fetcher
}

// NewCoinbase creates a Coinbase adapter for a venue symbol (e.g. BTC-USD).
func NewCoinbase(symbol string) *CoinbaseClient {
	return &CoinbaseClient{
		symbol:  symbol,
		baseURL: coinbaseBaseURL,
		fetcher: newFetcher(book.Coinbase),
	}
}

func (c *CoinbaseClient) Exchange() book.Exchange { return book.Coinbase }

func (c *CoinbaseClient) Symbol() string { return c.symbol }

func (c *CoinbaseClient) FetchOrderBook(ctx context.Context) (book.Book, error) {
	url := fmt.Sprintf("%s/products/%s/book?level=2", c.baseURL, c.symbol)

	var payload struct {
		Bids []json.RawMessage `json:"bids"`
		Asks []json.RawMessage `json:"asks"`
	}
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return book.Book{}, fmt.Errorf("coinbase %s: %w", c.symbol, err)
	}

	return normalize(payload.Bids, payload.Asks, book.Coinbase)
}
