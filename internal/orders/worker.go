package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/iangfernandes96/order-book/internal/book"
	"github.com/iangfernandes96/order-book/internal/config"
	"github.com/iangfernandes96/order-book/internal/metrics"
)

const dequeueTimeout = time.Second

// executePayload carries the arguments of an execute_limit_order task.
type executePayload struct {
	OrderID string `json:"order_id"`
	Delay   int    `json:"delay"`
}

// storePayload carries the arguments of a store_executed_order task.
type storePayload struct {
	OrderID string     `json:"order_id"`
	Order   LimitOrder `json:"order"`
}

// taskResult is what a completed task leaves in its state record.
type taskResult struct {
	Status string `json:"status"`
}

// Worker consumes order tasks from the queue. Execution is simulated: a
// random delay stands in for venue latency, after which the order flips to
// FILLED and lands in the executed-orders history. All state mutations go
// through redis, so workers are restartable without losing orders.
type Worker struct {
	store       *Store
	queue       *Queue
	concurrency int

	// delayFn picks the simulated execution delay in seconds. Swappable in
	// tests.
	delayFn func() int
}

// NewWorker creates a worker pool of the given concurrency.
func NewWorker(store *Store, queue *Queue, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		store:       store,
		queue:       queue,
		concurrency: concurrency,
		delayFn:     func() int { return rand.Intn(8) + 3 }, // [3, 10]
	}
}

// Run consumes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Info().Int("concurrency", w.concurrency).Msg("order worker started")

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.consume(ctx)
		}()
	}
	wg.Wait()
	log.Info().Msg("order worker stopped")
}

func (w *Worker) consume(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		task, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("dequeue failed")
			continue
		}
		w.handle(ctx, task)
	}
}

// handle runs one task and records its terminal state. State is written only
// after the task's effects have committed.
func (w *Worker) handle(ctx context.Context, task Task) {
	if err := w.queue.SetState(ctx, task.ID, TaskState{Status: TaskStarted}); err != nil {
		log.Error().Err(err).Str("task", task.Name).Msg("failed to mark task started")
	}

	result, err := w.dispatch(ctx, task)
	if err != nil {
		log.Error().Err(err).Str("task", task.Name).Str("task_id", task.ID).Msg("task failed")
		metrics.TasksProcessed.WithLabelValues(task.Name, "failure").Inc()
		state := TaskState{Status: TaskFailure, Result: mustJSON(map[string]string{"error": err.Error()})}
		if err := w.queue.SetState(ctx, task.ID, state); err != nil {
			log.Error().Err(err).Str("task_id", task.ID).Msg("failed to record task failure")
		}
		return
	}

	metrics.TasksProcessed.WithLabelValues(task.Name, "success").Inc()
	state := TaskState{Status: TaskSuccess, Result: mustJSON(result)}
	if err := w.queue.SetState(ctx, task.ID, state); err != nil {
		log.Error().Err(err).Str("task_id", task.ID).Msg("failed to record task result")
	}
}

func (w *Worker) dispatch(ctx context.Context, task Task) (taskResult, error) {
	switch task.Name {
	case config.TaskSendLimitOrder:
		return w.sendLimitOrder(ctx, task.Payload)
	case config.TaskExecuteLimitOrder:
		return w.executeLimitOrder(ctx, task.Payload)
	case config.TaskStoreExecutedOrder:
		return w.storeExecutedOrder(ctx, task.Payload)
	}
	return taskResult{}, fmt.Errorf("unknown task %q", task.Name)
}

// sendLimitOrder persists the submission as PENDING and schedules its
// delayed execution. The execute task's id is what status queries resolve,
// so it is recorded under order:{id}:task_id.
func (w *Worker) sendLimitOrder(ctx context.Context, payload json.RawMessage) (taskResult, error) {
	var order LimitOrder
	if err := json.Unmarshal(payload, &order); err != nil {
		return taskResult{}, fmt.Errorf("decode limit order: %w", err)
	}
	log.Info().Str("order_id", order.OrderID).Msg("sending limit order")

	if err := w.store.SaveOrder(ctx, order); err != nil {
		return taskResult{}, err
	}
	if err := w.store.SetStatus(ctx, order.OrderID, book.StatusPending); err != nil {
		return taskResult{}, err
	}

	delay := w.delayFn()
	taskID, err := w.queue.Enqueue(ctx, config.TaskExecuteLimitOrder, executePayload{OrderID: order.OrderID, Delay: delay})
	if err != nil {
		return taskResult{}, err
	}
	if err := w.store.SetTaskID(ctx, order.OrderID, taskID); err != nil {
		return taskResult{}, err
	}
	return taskResult{Status: "Done"}, nil
}

// executeLimitOrder simulates the venue round-trip, marks the order FILLED
// and hands it to the history task.
func (w *Worker) executeLimitOrder(ctx context.Context, payload json.RawMessage) (taskResult, error) {
	var args executePayload
	if err := json.Unmarshal(payload, &args); err != nil {
		return taskResult{}, fmt.Errorf("decode execute args: %w", err)
	}
	log.Info().Str("order_id", args.OrderID).Int("delay", args.Delay).Msg("executing limit order")

	order, ok, err := w.store.Order(ctx, args.OrderID)
	if err != nil {
		return taskResult{}, err
	}
	if !ok {
		return taskResult{Status: "Invalid Order"}, nil
	}

	select {
	case <-ctx.Done():
		return taskResult{}, ctx.Err()
	case <-time.After(time.Duration(args.Delay) * time.Second):
	}

	if err := w.store.SetStatus(ctx, args.OrderID, book.StatusFilled); err != nil {
		return taskResult{}, err
	}
	if _, err := w.queue.Enqueue(ctx, config.TaskStoreExecutedOrder, storePayload{OrderID: args.OrderID, Order: order}); err != nil {
		return taskResult{}, err
	}
	return taskResult{Status: "Done"}, nil
}

// storeExecutedOrder prepends the executed payload to the history list.
func (w *Worker) storeExecutedOrder(ctx context.Context, payload json.RawMessage) (taskResult, error) {
	var args storePayload
	if err := json.Unmarshal(payload, &args); err != nil {
		return taskResult{}, fmt.Errorf("decode store args: %w", err)
	}
	log.Info().Str("order_id", args.OrderID).Msg("storing executed order")

	data, err := json.Marshal(args.Order)
	if err != nil {
		return taskResult{}, fmt.Errorf("marshal executed order: %w", err)
	}
	if err := w.store.PushExecuted(ctx, DefaultClientID, data); err != nil {
		return taskResult{}, err
	}
	return taskResult{Status: "Done"}, nil
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
