package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/iangfernandes96/order-book/internal/book"
	"github.com/iangfernandes96/order-book/internal/config"
	"github.com/iangfernandes96/order-book/internal/orders"
)

// errBookNotFound is surfaced verbatim to clients querying a pair that has
// not been published yet.
var errBookNotFound = errors.New("Order book not found")

type priceReply struct {
	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
}

// orderBook prices the requested quantity against both sides of the merged
// book and replies with the totals (VWAP times quantity).
func (s *Server) orderBook(_ context.Context, raw json.RawMessage) (any, error) {
	var req struct {
		CurrencyPair string `json:"currencyPair"`
		Quantity     number `json:"quantity"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	quantity := float64(req.Quantity)
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %v", quantity)
	}

	b, ok := s.registry.Get(req.CurrencyPair)
	if !ok {
		return nil, errBookNotFound
	}
	return priceReply{
		BuyPrice:  book.Price(b, book.Buy, quantity) * quantity,
		SellPrice: book.Price(b, book.Sell, quantity) * quantity,
	}, nil
}

type limitOrdersReply struct {
	LimitOrders []book.Order `json:"limit_orders"`
}

// limitOrder splits the requested quantity into per-venue limit orders. A
// pair with no published book yields an empty list.
func (s *Server) limitOrder(_ context.Context, raw json.RawMessage) (any, error) {
	var req struct {
		CurrencyPair string `json:"currencyPair"`
		Quantity     number `json:"quantity"`
		Operation    string `json:"operation"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	quantity := float64(req.Quantity)
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %v", quantity)
	}
	op := book.Operation(req.Operation)
	if !op.Valid() {
		return nil, fmt.Errorf("unknown operation %q", req.Operation)
	}

	limitOrders := []book.Order{}
	if b, ok := s.registry.Get(req.CurrencyPair); ok {
		limitOrders = book.BestLimitOrders(b, op, quantity)
	}
	return limitOrdersReply{LimitOrders: limitOrders}, nil
}

type submitReply struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
}

// executeLimitOrder assigns a fresh order id, validates the submission and
// enqueues the send_limit_order job. Validation failures are surfaced inline
// and enqueue nothing.
func (s *Server) executeLimitOrder(ctx context.Context, raw json.RawMessage) (any, error) {
	orderID := s.newOrderID()
	order, err := orders.ParseLimitOrder(raw, orderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.queue.Enqueue(ctx, config.TaskSendLimitOrder, order); err != nil {
		return nil, fmt.Errorf("enqueue limit order: %w", err)
	}
	log.Info().Str("order_id", orderID).Msg("limit order accepted")
	return submitReply{Status: "SUCCESS", OrderID: orderID}, nil
}

type statusReply struct {
	Status  string `json:"status"`
	Result  any    `json:"result"`
	OrderID string `json:"orderId"`
}

// limitOrderStatus resolves the order's execute task and reports the task
// queue's status and result for it.
func (s *Server) limitOrderStatus(ctx context.Context, raw json.RawMessage) (any, error) {
	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}

	taskID, ok, err := s.store.TaskID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no task found for order %q", req.OrderID)
	}
	state, err := s.queue.State(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var result any = ""
	if len(state.Result) > 0 {
		result = state.Result
	}
	return statusReply{Status: state.Status, Result: result, OrderID: req.OrderID}, nil
}

type executedOrdersReply struct {
	ExecutedOrders []string `json:"executed_orders"`
}

// executedOrders returns the execution history, newest first. The client id
// in the request is overridden with the fixed default until real client
// identity exists.
func (s *Server) executedOrders(ctx context.Context, raw json.RawMessage) (any, error) {
	var req struct {
		ClientID string `json:"clientId"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}

	history, err := s.store.ExecutedOrders(ctx, orders.DefaultClientID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []string{}
	}
	return executedOrdersReply{ExecutedOrders: history}, nil
}

// handlePrice is the one-shot REST price query: BTCUSD totals for a fixed
// quantity of 10, formatted to four decimals.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	const pair = "BTCUSD"
	const quantity = 10.0

	b, ok := s.registry.Get(pair)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": errBookNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"buy_price":  fmt.Sprintf("%.4f", book.Price(b, book.Buy, quantity)*quantity),
		"sell_price": fmt.Sprintf("%.4f", book.Price(b, book.Sell, quantity)*quantity),
	})
}

// handleLatency reports per-endpoint handler latency percentiles.
func (s *Server) handleLatency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.latency.Summaries())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
