package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iangfernandes96/order-book/internal/book"
)

// ErrValidation wraps limit-order schema violations. Reported to the client
// inline via a FAILED envelope; nothing is enqueued.
var ErrValidation = errors.New("limit order validation failed")

// LimitOrder is a simulated limit-order submission. OrderID is assigned by
// the server, never by the client. Timestamp is optional.
type LimitOrder struct {
	OrderID      string         `json:"order_id"`
	Price        float64        `json:"price"`
	Amount       float64        `json:"amount"`
	Timestamp    int64          `json:"timestamp,omitempty"`
	Exchange     book.Exchange  `json:"exchange"`
	Operation    book.Operation `json:"operation"`
	CurrencyPair string         `json:"currency_pair"`
}

// ParseLimitOrder decodes and validates a submission payload, attaching the
// server-assigned order id. The currency pair is accepted under either the
// request-style "currencyPair" key or the storage-style "currency_pair".
func ParseLimitOrder(data []byte, orderID string) (LimitOrder, error) {
	var aux struct {
		Price        *float64 `json:"price"`
		Amount       *float64 `json:"amount"`
		Timestamp    *int64   `json:"timestamp"`
		Exchange     *string  `json:"exchange"`
		Operation    *string  `json:"operation"`
		CurrencyPair *string  `json:"currency_pair"`
		PairAlias    *string  `json:"currencyPair"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return LimitOrder{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if aux.CurrencyPair == nil {
		aux.CurrencyPair = aux.PairAlias
	}

	var missing []string
	if aux.Price == nil {
		missing = append(missing, "price")
	}
	if aux.Amount == nil {
		missing = append(missing, "amount")
	}
	if aux.Exchange == nil {
		missing = append(missing, "exchange")
	}
	if aux.Operation == nil {
		missing = append(missing, "operation")
	}
	if aux.CurrencyPair == nil {
		missing = append(missing, "currency_pair")
	}
	if len(missing) > 0 {
		return LimitOrder{}, fmt.Errorf("%w: missing fields: %s", ErrValidation, strings.Join(missing, ", "))
	}

	o := LimitOrder{
		OrderID:      orderID,
		Price:        *aux.Price,
		Amount:       *aux.Amount,
		Exchange:     book.Exchange(*aux.Exchange),
		Operation:    book.Operation(*aux.Operation),
		CurrencyPair: *aux.CurrencyPair,
	}
	if aux.Timestamp != nil {
		o.Timestamp = *aux.Timestamp
	}

	if err := o.Validate(); err != nil {
		return LimitOrder{}, err
	}
	return o, nil
}

// Validate enforces the closed sets and positivity constraints.
func (o LimitOrder) Validate() error {
	if o.OrderID == "" {
		return fmt.Errorf("%w: empty order_id", ErrValidation)
	}
	if o.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if o.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !o.Exchange.Valid() {
		return fmt.Errorf("%w: unknown exchange %q", ErrValidation, o.Exchange)
	}
	if !o.Operation.Valid() {
		return fmt.Errorf("%w: unknown operation %q", ErrValidation, o.Operation)
	}
	if o.CurrencyPair == "" {
		return fmt.Errorf("%w: empty currency_pair", ErrValidation)
	}
	return nil
}
