package orders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iangfernandes96/order-book/internal/book"
	"github.com/iangfernandes96/order-book/internal/config"
)

func newTestWorker(t *testing.T) (*Worker, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	store := NewStore(db)
	queue := NewQueue(db, config.QueueName)
	queue.newID = func() string { return "tid-next" }
	w := NewWorker(store, queue, 1)
	w.delayFn = func() int { return 5 }
	return w, mock
}

func TestSendLimitOrderJob(t *testing.T) {
	w, mock := newTestWorker(t)
	ctx := context.Background()

	order := sampleOrder()
	orderJSON, err := json.Marshal(order)
	require.NoError(t, err)

	execJSON, err := json.Marshal(executePayload{OrderID: "oid1", Delay: 5})
	require.NoError(t, err)
	taskJSON, err := json.Marshal(Task{ID: "tid-next", Name: config.TaskExecuteLimitOrder, Payload: execJSON})
	require.NoError(t, err)

	// Order and status are written before the execute task is enqueued, so
	// the executor's read always finds the order.
	mock.ExpectSet("order:oid1", orderJSON, 0).SetVal("OK")
	mock.ExpectSet("order:oid1:status", string(book.StatusPending), 0).SetVal("OK")
	mock.ExpectSet("task:tid-next", []byte(`{"status":"PENDING"}`), 0).SetVal("OK")
	mock.ExpectLPush(config.QueueName, taskJSON).SetVal(1)
	mock.ExpectSet("order:oid1:task_id", "tid-next", 0).SetVal("OK")

	result, err := w.sendLimitOrder(ctx, orderJSON)
	require.NoError(t, err)
	assert.Equal(t, "Done", result.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteLimitOrderJob(t *testing.T) {
	w, mock := newTestWorker(t)
	ctx := context.Background()

	order := sampleOrder()
	orderJSON, err := json.Marshal(order)
	require.NoError(t, err)

	storeJSON, err := json.Marshal(storePayload{OrderID: "oid1", Order: order})
	require.NoError(t, err)
	taskJSON, err := json.Marshal(Task{ID: "tid-next", Name: config.TaskStoreExecutedOrder, Payload: storeJSON})
	require.NoError(t, err)

	mock.ExpectGet("order:oid1").SetVal(string(orderJSON))
	mock.ExpectSet("order:oid1:status", string(book.StatusFilled), 0).SetVal("OK")
	mock.ExpectSet("task:tid-next", []byte(`{"status":"PENDING"}`), 0).SetVal("OK")
	mock.ExpectLPush(config.QueueName, taskJSON).SetVal(1)

	// Delay 0 keeps the simulated execution instant.
	args, err := json.Marshal(executePayload{OrderID: "oid1", Delay: 0})
	require.NoError(t, err)

	result, err := w.executeLimitOrder(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, "Done", result.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteLimitOrderJobInvalidOrder(t *testing.T) {
	w, mock := newTestWorker(t)

	mock.ExpectGet("order:ghost").RedisNil()

	args, err := json.Marshal(executePayload{OrderID: "ghost", Delay: 0})
	require.NoError(t, err)

	result, err := w.executeLimitOrder(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "Invalid Order", result.Status)

	// No status flip, no follow-up task.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreExecutedOrderJob(t *testing.T) {
	w, mock := newTestWorker(t)

	order := sampleOrder()
	orderJSON, err := json.Marshal(order)
	require.NoError(t, err)

	// History is keyed by the fixed client id regardless of submitter.
	mock.ExpectLPush("executed_orders:ABCD", orderJSON).SetVal(1)

	args, err := json.Marshal(storePayload{OrderID: "oid1", Order: order})
	require.NoError(t, err)

	result, err := w.storeExecutedOrder(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "Done", result.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleRecordsFailure(t *testing.T) {
	w, mock := newTestWorker(t)

	mock.ExpectSet("task:tid9", []byte(`{"status":"STARTED"}`), 0).SetVal("OK")
	failJSON, err := json.Marshal(TaskState{
		Status: TaskFailure,
		Result: mustJSON(map[string]string{"error": `unknown task "bogus"`}),
	})
	require.NoError(t, err)
	mock.ExpectSet("task:tid9", failJSON, 0).SetVal("OK")

	w.handle(context.Background(), Task{ID: "tid9", Name: "bogus"})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleRecordsSuccess(t *testing.T) {
	w, mock := newTestWorker(t)

	order := sampleOrder()
	orderJSON, err := json.Marshal(order)
	require.NoError(t, err)

	mock.ExpectSet("task:tid8", []byte(`{"status":"STARTED"}`), 0).SetVal("OK")
	mock.ExpectLPush("executed_orders:ABCD", orderJSON).SetVal(1)

	args, err := json.Marshal(storePayload{OrderID: "oid1", Order: order})
	require.NoError(t, err)
	doneJSON, err := json.Marshal(TaskState{Status: TaskSuccess, Result: json.RawMessage(`{"status":"Done"}`)})
	require.NoError(t, err)
	mock.ExpectSet("task:tid8", doneJSON, 0).SetVal("OK")

	w.handle(context.Background(), Task{ID: "tid8", Name: config.TaskStoreExecutedOrder, Payload: args})

	require.NoError(t, mock.ExpectationsWereMet())
}
