package exchange

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iangfernandes96/order-book/internal/book"
)

const geminiBaseURL = "https://api.gemini.com"

// GeminiClient fetches depth from the Gemini v1 book endpoint. Gemini rows
// come back keyed ({price, amount, timestamp}) rather than positional.
type GeminiClient struct {
	symbol  string
	baseURL string
	*fetcher
}

// NewGemini creates a Gemini adapter for a venue symbol (e.g. BTCUSD).
func NewGemini(symbol string) *GeminiClient {
	return &GeminiClient{
		symbol:  symbol,
		baseURL: geminiBaseURL,
		fetcher: newFetcher(book.Gemini),
	}
}

func (c *GeminiClient) Exchange() book.Exchange { return book.Gemini }

func (c *GeminiClient) Symbol() string { return c.symbol }

func (c *GeminiClient) FetchOrderBook(ctx context.Context) (book.Book, error) {
	url := fmt.Sprintf("%s/v1/book/%s", c.baseURL, c.symbol)

	var payload struct {
		Bids []json.RawMessage `json:"bids"`
		Asks []json.RawMessage `json:"asks"`
	}
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return book.Book{}, fmt.Errorf("gemini %s: %w", c.symbol, err)
	}

	return normalize(payload.Bids, payload.Asks, book.Gemini)
}
