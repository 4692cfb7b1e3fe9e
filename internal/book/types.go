package book

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Exchange identifies one of the supported venues.
type Exchange string

const (
	Coinbase Exchange = "COINBASE"
	Kraken   Exchange = "KRAKEN"
	Gemini   Exchange = "GEMINI"
)

// Valid reports whether the exchange is one of the supported venues.
func (e Exchange) Valid() bool {
	switch e {
	case Coinbase, Kraken, Gemini:
		return true
	}
	return false
}

// Operation is the side of a trade.
type Operation string

const (
	Buy  Operation = "BUY"
	Sell Operation = "SELL"
)

// Valid reports whether the operation is BUY or SELL.
func (o Operation) Valid() bool {
	return o == Buy || o == Sell
}

// OrderStatus tracks the lifecycle of a submitted limit order.
// PARTIALLY_FILLED and CANCELLED are part of the taxonomy but the simulated
// execution path only moves orders from PENDING to FILLED.
type OrderStatus string

const (
	StatusPending         OrderStatus = "PENDING"
	StatusFilled          OrderStatus = "FILLED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
)

// Order is a single price level attributed to a venue. Orders are plain
// value types; two orders are equal when all four fields match.
type Order struct {
	Price     float64  `json:"price"`
	Amount    float64  `json:"amount"`
	Timestamp int64    `json:"timestamp"`
	Exchange  Exchange `json:"exchange"`
}

// Book holds one side-sorted order book. When produced by Merge, bids are
// sorted by price descending and asks ascending, ties stable by input order.
type Book struct {
	Bids []Order
	Asks []Order
}

// Side returns the side relevant to the operation: asks for BUY, bids for SELL.
func (b Book) Side(op Operation) []Order {
	if op == Buy {
		return b.Asks
	}
	return b.Bids
}

// ErrBadRowShape is wrapped by ParseOrder when an upstream row is neither a
// positional triple nor a keyed object.
var ErrBadRowShape = fmt.Errorf("order row has unsupported shape")

// ParseOrder normalizes one raw order-book row to an Order. Venues disagree
// on row encoding: Coinbase and Kraken use positional triples
// [price, amount, timestamp], Gemini uses {"price": ..., "amount": ...,
// "timestamp": ...}. Field values may be JSON strings or numbers.
func ParseOrder(row json.RawMessage, exchange Exchange) (Order, error) {
	var positional []json.RawMessage
	if err := json.Unmarshal(row, &positional); err == nil {
		if len(positional) < 3 {
			return Order{}, fmt.Errorf("%w: %d elements", ErrBadRowShape, len(positional))
		}
		return orderFromFields(positional[0], positional[1], positional[2], exchange)
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(row, &keyed); err == nil {
		return orderFromFields(keyed["price"], keyed["amount"], keyed["timestamp"], exchange)
	}

	return Order{}, fmt.Errorf("%w: %s", ErrBadRowShape, truncate(row, 64))
}

func orderFromFields(price, amount, timestamp json.RawMessage, exchange Exchange) (Order, error) {
	p, err := parseDecimal(price)
	if err != nil {
		return Order{}, fmt.Errorf("%w: price: %v", ErrBadRowShape, err)
	}
	a, err := parseDecimal(amount)
	if err != nil {
		return Order{}, fmt.Errorf("%w: amount: %v", ErrBadRowShape, err)
	}
	ts, err := parseInt(timestamp)
	if err != nil {
		return Order{}, fmt.Errorf("%w: timestamp: %v", ErrBadRowShape, err)
	}
	return Order{Price: p, Amount: a, Timestamp: ts, Exchange: exchange}, nil
}

// parseDecimal accepts "100.5" and 100.5 alike.
func parseDecimal(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing field")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

func parseInt(raw json.RawMessage) (int64, error) {
	f, err := parseDecimal(raw)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
