package exchange

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/iangfernandes96/order-book/internal/book"
)

// Client fetches and normalizes depth-of-book for one venue symbol.
type Client interface {
	// Exchange identifies the venue the client talks to.
	Exchange() book.Exchange

	// Symbol returns the venue-specific pair symbol.
	Symbol() string

	// FetchOrderBook retrieves the venue book and normalizes it to the
	// canonical Order schema. Both sides come back unsorted; merging and
	// sorting is the caller's job.
	FetchOrderBook(ctx context.Context) (book.Book, error)
}

const (
	requestTimeout = 10 * time.Second
	requestRPS     = 5.0
	requestBurst   = 5
)

// fetcher is the shared HTTP plumbing behind every adapter: one pooled
// client, a token-bucket rate limiter and a circuit breaker per venue.
type fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

func newFetcher(venue book.Exchange) *fetcher {
	settings := gobreaker.Settings{
		Name:     string(venue),
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &fetcher{
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(requestRPS), requestBurst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// getJSON performs a rate-limited, breaker-guarded GET and decodes the body
// into out. Every request advertises gzip support; setting the header
// ourselves disables net/http's transparent decompression, so a compressed
// body is unwrapped here.
func (f *fetcher) getJSON(ctx context.Context, url string, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamIO, err)
	}

	_, err := f.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamIO, err)
		}
		req.Header.Set("Accept-Encoding", "gzip")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, classifyTransportError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("%w: %s returned %d", ErrUpstreamHTTP, url, resp.StatusCode)
		}

		body := io.Reader(resp.Body)
		if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
			gz, err := gzip.NewReader(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadResponseShape, err)
			}
			defer gz.Close()
			body = gz
		}

		if err := json.NewDecoder(body).Decode(out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResponseShape, err)
		}
		return nil, nil
	})
	return err
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstreamIO, err)
}

// normalize converts raw rows into Orders attributed to the venue.
func normalize(bids, asks []json.RawMessage, venue book.Exchange) (book.Book, error) {
	out := book.Book{
		Bids: make([]book.Order, 0, len(bids)),
		Asks: make([]book.Order, 0, len(asks)),
	}
	for _, row := range bids {
		order, err := book.ParseOrder(row, venue)
		if err != nil {
			return book.Book{}, fmt.Errorf("%w: %s bid: %v", ErrBadResponseShape, venue, err)
		}
		out.Bids = append(out.Bids, order)
	}
	for _, row := range asks {
		order, err := book.ParseOrder(row, venue)
		if err != nil {
			return book.Book{}, fmt.Errorf("%w: %s ask: %v", ErrBadResponseShape, venue, err)
		}
		out.Asks = append(out.Asks, order)
	}
	return out, nil
}
