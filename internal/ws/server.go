// Package ws is the streaming session layer: five message-framed JSON
// endpoints under /ws plus a small REST surface for one-shot price queries,
// health and metrics.
package ws

import (
	"encoding/hex"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iangfernandes96/order-book/internal/config"
	"github.com/iangfernandes96/order-book/internal/orders"
	"github.com/iangfernandes96/order-book/internal/registry"
	"github.com/iangfernandes96/order-book/internal/telemetry/latency"
)

// Server owns the websocket endpoints and their dependencies. Handlers read
// merged books from the registry and drive the limit-order pipeline through
// the store and the task queue.
type Server struct {
	registry *registry.Registry
	store    *orders.Store
	queue    *orders.Queue
	latency  *latency.Tracker
	upgrader websocket.Upgrader

	// newOrderID assigns ids to submitted orders. Swappable in tests.
	newOrderID func() string
}

// NewServer wires the session layer.
func NewServer(reg *registry.Registry, store *orders.Store, queue *orders.Queue) *Server {
	return &Server{
		registry: reg,
		store:    store,
		queue:    queue,
		latency:  latency.NewTracker(),
		upgrader: websocket.Upgrader{
			// All origins are allowed.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		newOrderID: func() string {
			id := uuid.New()
			return hex.EncodeToString(id[:])
		},
	}
}

// Router builds the full HTTP surface: the five /ws endpoints, the REST
// price query, health and prometheus metrics.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	wsr := r.PathPrefix(config.WSPrefix).Subrouter()
	wsr.HandleFunc(config.OrderBookEndpoint, s.session(config.WSPrefix+config.OrderBookEndpoint, errorText, s.orderBook))
	wsr.HandleFunc(config.LimitOrderEndpoint, s.session(config.WSPrefix+config.LimitOrderEndpoint, errorText, s.limitOrder))
	wsr.HandleFunc(config.ExecuteLimitOrderEndpoint, s.session(config.WSPrefix+config.ExecuteLimitOrderEndpoint, errorEnvelope, s.executeLimitOrder))
	wsr.HandleFunc(config.GetLimitOrderStatusEndpoint, s.session(config.WSPrefix+config.GetLimitOrderStatusEndpoint, errorEnvelope, s.limitOrderStatus))
	wsr.HandleFunc(config.GetExecutedOrdersEndpoint, s.session(config.WSPrefix+config.GetExecutedOrdersEndpoint, errorEnvelope, s.executedOrders))

	r.HandleFunc("/api/price", s.handlePrice).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/latency", s.handleLatency).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

// corsMiddleware allows all origins, methods, headers and credentials.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
