package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/iangfernandes96/order-book/internal/metrics"
)

// errorStyle selects how a handler failure is reported to the client.
type errorStyle int

const (
	// errorText sends a plain "Error: <message>" text frame.
	errorText errorStyle = iota
	// errorEnvelope sends a {"status": "FAILED", "error": <message>} frame.
	errorEnvelope
)

// handlerFunc processes one decoded message and returns the reply payload.
// A returned error is reported to the client in the endpoint's style and
// never terminates the session.
type handlerFunc func(ctx context.Context, raw json.RawMessage) (any, error)

// failure is the structured error envelope.
type failure struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// session runs the per-connection loop: read a frame, decode it as JSON,
// dispatch to the handler, reply. A frame that is not valid JSON ends the
// receive loop (preserved behavior); a handler error is reported per message
// and the loop continues. Handler latency is recorded per endpoint.
func (s *Server) session(endpoint string, style errorStyle, handle handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Str("endpoint", endpoint).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if !json.Valid(data) {
				log.Error().Str("endpoint", endpoint).Msg("JSON decoding error")
				return
			}

			start := time.Now()
			reply, err := handle(r.Context(), data)
			elapsed := time.Since(start)
			s.latency.Record(endpoint, elapsed)
			metrics.WSHandlerDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())

			if err != nil {
				log.Error().Err(err).Str("endpoint", endpoint).Msg("handler error")
				metrics.WSMessages.WithLabelValues(endpoint, "error").Inc()
				if sendErr := s.sendError(conn, style, err); sendErr != nil {
					return
				}
				continue
			}

			metrics.WSMessages.WithLabelValues(endpoint, "ok").Inc()
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendError(conn *websocket.Conn, style errorStyle, err error) error {
	switch style {
	case errorEnvelope:
		return conn.WriteJSON(failure{Status: "FAILED", Error: err.Error()})
	default:
		return conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf("Error: %s", err)))
	}
}

// number decodes a JSON number or a numeric string, mirroring how loosely
// clients quote quantities.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*n = number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = number(v)
	return nil
}
