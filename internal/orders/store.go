package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/iangfernandes96/order-book/internal/book"
	"github.com/iangfernandes96/order-book/internal/config"
)

// DefaultClientID is the list key every executed order lands under. The
// per-client history is effectively global until real client identity is
// threaded through the pipeline.
const DefaultClientID = "ABCD"

// Store persists limit-order state in redis. Keyspaces:
//
//	order:{id}         serialized LimitOrder
//	order:{id}:status  OrderStatus
//	order:{id}:task_id background task id for the status query
//	executed_orders:{client}  LPUSH list of executed payloads, newest first
type Store struct {
	client redis.Cmdable
}

// NewStore wraps a redis client.
func NewStore(client redis.Cmdable) *Store {
	return &Store{client: client}
}

// SaveOrder writes the serialized submission under order:{id}.
func (s *Store) SaveOrder(ctx context.Context, o LimitOrder) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	key := fmt.Sprintf(config.OrderKey, o.OrderID)
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("store order: %w", err)
	}
	return nil
}

// Order loads a stored submission. The second return is false when the
// order id is unknown.
func (s *Store) Order(ctx context.Context, orderID string) (LimitOrder, bool, error) {
	key := fmt.Sprintf(config.OrderKey, orderID)
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return LimitOrder{}, false, nil
	}
	if err != nil {
		return LimitOrder{}, false, fmt.Errorf("load order: %w", err)
	}
	var o LimitOrder
	if err := json.Unmarshal(data, &o); err != nil {
		return LimitOrder{}, false, fmt.Errorf("decode order: %w", err)
	}
	return o, true, nil
}

// SetStatus writes order:{id}:status.
func (s *Store) SetStatus(ctx context.Context, orderID string, status book.OrderStatus) error {
	key := fmt.Sprintf(config.OrderStatusKey, orderID)
	if err := s.client.Set(ctx, key, string(status), 0).Err(); err != nil {
		return fmt.Errorf("store order status: %w", err)
	}
	return nil
}

// Status reads order:{id}:status.
func (s *Store) Status(ctx context.Context, orderID string) (book.OrderStatus, bool, error) {
	key := fmt.Sprintf(config.OrderStatusKey, orderID)
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load order status: %w", err)
	}
	return book.OrderStatus(val), true, nil
}

// SetTaskID records the background task driving the order's execution.
func (s *Store) SetTaskID(ctx context.Context, orderID, taskID string) error {
	key := fmt.Sprintf(config.OrderTaskIDKey, orderID)
	if err := s.client.Set(ctx, key, taskID, 0).Err(); err != nil {
		return fmt.Errorf("store task id: %w", err)
	}
	return nil
}

// TaskID reads the task id recorded for the order.
func (s *Store) TaskID(ctx context.Context, orderID string) (string, bool, error) {
	key := fmt.Sprintf(config.OrderTaskIDKey, orderID)
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load task id: %w", err)
	}
	return val, true, nil
}

// PushExecuted prepends a serialized executed order to the client's history.
func (s *Store) PushExecuted(ctx context.Context, clientID string, payload []byte) error {
	key := fmt.Sprintf(config.ExecutedOrdersKey, clientID)
	if err := s.client.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("push executed order: %w", err)
	}
	return nil
}

// ExecutedOrders returns the client's full history, newest first.
func (s *Store) ExecutedOrders(ctx context.Context, clientID string) ([]string, error) {
	key := fmt.Sprintf(config.ExecutedOrdersKey, clientID)
	vals, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load executed orders: %w", err)
	}
	return vals, nil
}
