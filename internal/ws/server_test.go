package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iangfernandes96/order-book/internal/book"
	"github.com/iangfernandes96/order-book/internal/config"
	"github.com/iangfernandes96/order-book/internal/orders"
	"github.com/iangfernandes96/order-book/internal/registry"
)

func newTestServer(t *testing.T) (*Server, redismock.ClientMock, *httptest.Server) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	s := NewServer(registry.New(), orders.NewStore(db), orders.NewQueue(db, config.QueueName))
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, mock, srv
}

func dial(t *testing.T, srv *httptest.Server, endpoint string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + config.WSPrefix + endpoint
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// seedBook publishes a book with known VWAPs: buy 2.0 -> 100.5, sell 2.0 -> 99.
func seedBook(s *Server, pair string) {
	s.registry.Put(pair, book.Book{
		Bids: []book.Order{
			{Price: 99.0, Amount: 3.0, Exchange: book.Gemini},
			{Price: 98.0, Amount: 2.0, Exchange: book.Coinbase},
		},
		Asks: []book.Order{
			{Price: 100.0, Amount: 1.0, Exchange: book.Coinbase},
			{Price: 101.0, Amount: 2.0, Exchange: book.Kraken},
			{Price: 102.0, Amount: 5.0, Exchange: book.Gemini},
		},
	})
}

func TestOrderBookEndpoint(t *testing.T) {
	s, _, srv := newTestServer(t)
	seedBook(s, "BTCUSD")

	conn := dial(t, srv, config.OrderBookEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{"currencyPair": "BTCUSD", "quantity": 2}))

	var reply struct {
		BuyPrice  float64 `json:"buy_price"`
		SellPrice float64 `json:"sell_price"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.InDelta(t, 201.0, reply.BuyPrice, 1e-9)  // VWAP 100.5 x 2
	assert.InDelta(t, 198.0, reply.SellPrice, 1e-9) // VWAP 99 x 2
}

func TestOrderBookQuantityAsString(t *testing.T) {
	s, _, srv := newTestServer(t)
	seedBook(s, "BTCUSD")

	conn := dial(t, srv, config.OrderBookEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{"currencyPair": "BTCUSD", "quantity": "2"}))

	var reply map[string]float64
	require.NoError(t, conn.ReadJSON(&reply))
	assert.InDelta(t, 201.0, reply["buy_price"], 1e-9)
}

func TestOrderBookUnknownPairKeepsSessionOpen(t *testing.T) {
	s, _, srv := newTestServer(t)
	seedBook(s, "BTCUSD")

	conn := dial(t, srv, config.OrderBookEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{"currencyPair": "XRPUSD", "quantity": 1}))

	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(frame), "Error:"), "got frame %q", frame)
	assert.Contains(t, string(frame), "Order book not found")

	// The session survived the error; a valid query still works.
	require.NoError(t, conn.WriteJSON(map[string]any{"currencyPair": "BTCUSD", "quantity": 1}))
	var reply map[string]float64
	require.NoError(t, conn.ReadJSON(&reply))
	assert.InDelta(t, 100.0, reply["buy_price"], 1e-9)
}

func TestOrderBookNonPositiveQuantity(t *testing.T) {
	s, _, srv := newTestServer(t)
	seedBook(s, "BTCUSD")

	conn := dial(t, srv, config.OrderBookEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{"currencyPair": "BTCUSD", "quantity": 0}))

	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(frame), "Error:"))
}

func TestMalformedJSONEndsReceiveLoop(t *testing.T) {
	_, _, srv := newTestServer(t)

	conn := dial(t, srv, config.OrderBookEndpoint)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{oops")))

	// The server breaks its receive loop and closes the connection.
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestLimitOrderEndpointSplit(t *testing.T) {
	s, _, srv := newTestServer(t)
	seedBook(s, "BTCUSD")

	conn := dial(t, srv, config.LimitOrderEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"currencyPair": "BTCUSD", "quantity": 2.5, "operation": "BUY",
	}))

	var reply struct {
		LimitOrders []book.Order `json:"limit_orders"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	require.Len(t, reply.LimitOrders, 2)
	assert.Equal(t, book.Order{Price: 100.0, Amount: 1.0, Exchange: book.Coinbase}, reply.LimitOrders[0])
	assert.Equal(t, book.Order{Price: 101.0, Amount: 1.5, Exchange: book.Kraken}, reply.LimitOrders[1])
}

func TestLimitOrderUnknownPairIsEmptyList(t *testing.T) {
	_, _, srv := newTestServer(t)

	conn := dial(t, srv, config.LimitOrderEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"currencyPair": "XRPUSD", "quantity": 1, "operation": "SELL",
	}))

	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"limit_orders": []}`, string(frame))
}

func TestLimitOrderUnknownOperation(t *testing.T) {
	s, _, srv := newTestServer(t)
	seedBook(s, "BTCUSD")

	conn := dial(t, srv, config.LimitOrderEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"currencyPair": "BTCUSD", "quantity": 1, "operation": "HOLD",
	}))

	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(frame), "Error:"))
}

func TestExecuteLimitOrderAccepted(t *testing.T) {
	s, mock, srv := newTestServer(t)
	s.newOrderID = func() string { return "f00d" }

	// The task id is random, so match the queue writes loosely.
	mock.Regexp().ExpectSet(`task:.*`, `.*PENDING.*`, 0).SetVal("OK")
	mock.Regexp().ExpectLPush(config.QueueName, `.*send_limit_order.*f00d.*`).SetVal(1)

	conn := dial(t, srv, config.ExecuteLimitOrderEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"currencyPair": "BTCUSD",
		"price":        50000,
		"amount":       0.1,
		"exchange":     "COINBASE",
		"operation":    "BUY",
	}))

	var reply struct {
		Status  string `json:"status"`
		OrderID string `json:"order_id"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "SUCCESS", reply.Status)
	assert.Equal(t, "f00d", reply.OrderID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteLimitOrderValidationFailureEnqueuesNothing(t *testing.T) {
	_, mock, srv := newTestServer(t)

	conn := dial(t, srv, config.ExecuteLimitOrderEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"currencyPair": "BTCUSD",
		"price":        50000,
		"exchange":     "COINBASE",
		"operation":    "BUY",
	}))

	var reply struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "FAILED", reply.Status)
	assert.Contains(t, reply.Error, "amount")

	// No queue interaction happened.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLimitOrderStatus(t *testing.T) {
	_, mock, srv := newTestServer(t)

	stateJSON, err := json.Marshal(orders.TaskState{
		Status: orders.TaskSuccess,
		Result: json.RawMessage(`{"status":"Done"}`),
	})
	require.NoError(t, err)
	mock.ExpectGet("order:oid1:task_id").SetVal("tid1")
	mock.ExpectGet("task:tid1").SetVal(string(stateJSON))

	conn := dial(t, srv, config.GetLimitOrderStatusEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{"orderId": "oid1"}))

	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"SUCCESS","result":{"status":"Done"},"orderId":"oid1"}`, string(frame))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLimitOrderStatusUnknownOrder(t *testing.T) {
	_, mock, srv := newTestServer(t)

	mock.ExpectGet("order:ghost:task_id").RedisNil()

	conn := dial(t, srv, config.GetLimitOrderStatusEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{"orderId": "ghost"}))

	var reply struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "FAILED", reply.Status)
	assert.Contains(t, reply.Error, "ghost")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExecutedOrdersIgnoresClientID(t *testing.T) {
	_, mock, srv := newTestServer(t)

	// Whatever the client sends, history is read for the fixed id.
	mock.ExpectLRange("executed_orders:ABCD", 0, -1).SetVal([]string{`{"order_id":"oid2"}`, `{"order_id":"oid1"}`})

	conn := dial(t, srv, config.GetExecutedOrdersEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{"clientId": "ZZZZ"}))

	var reply struct {
		ExecutedOrders []string `json:"executed_orders"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	require.Len(t, reply.ExecutedOrders, 2)
	assert.Contains(t, reply.ExecutedOrders[0], "oid2")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExecutedOrdersEmptyHistory(t *testing.T) {
	_, mock, srv := newTestServer(t)

	mock.ExpectLRange("executed_orders:ABCD", 0, -1).SetVal([]string{})

	conn := dial(t, srv, config.GetExecutedOrdersEndpoint)
	require.NoError(t, conn.WriteJSON(map[string]any{"clientId": "ABCD"}))

	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"executed_orders": []}`, string(frame))
}

func TestRESTPrice(t *testing.T) {
	s, _, srv := newTestServer(t)
	seedBook(s, "BTCUSD")

	resp, err := http.Get(srv.URL + "/api/price")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	// Depth is 8, so quantity 10 fills 8: VWAP = (100 + 2*101 + 5*102)/8.
	assert.Equal(t, "1015.0000", body["buy_price"])
	// Bid depth is 5: VWAP = (3*99 + 2*98)/5.
	assert.Equal(t, "986.0000", body["sell_price"])
}

func TestRESTPriceNoBook(t *testing.T) {
	_, _, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/price")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndCORS(t *testing.T) {
	_, _, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/price", nil)
	require.NoError(t, err)
	preflight, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer preflight.Body.Close()
	assert.Equal(t, http.StatusNoContent, preflight.StatusCode)
}
