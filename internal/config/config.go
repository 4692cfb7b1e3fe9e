package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Redis connection URLs. The in-cluster default assumes a "redis" host as
// provisioned by compose; REDIS_URL overrides both.
const (
	DefaultRedisURL   = "redis://redis:6379/0"
	LocalhostRedisURL = "redis://localhost:6379/0"
)

// Websocket endpoint paths.
const (
	WSPrefix                    = "/ws"
	OrderBookEndpoint           = "/order-book"
	LimitOrderEndpoint          = "/limit-order"
	ExecuteLimitOrderEndpoint   = "/execute-limit-order"
	GetLimitOrderStatusEndpoint = "/get-limit-order-status"
	GetExecutedOrdersEndpoint   = "/get-executed-orders"
)

// Redis key templates, formatted with the order id (or client id for the
// executed-orders list).
const (
	OrderKey          = "order:%s"
	OrderStatusKey    = "order:%s:status"
	OrderTaskIDKey    = "order:%s:task_id"
	ExecutedOrdersKey = "executed_orders:%s"
)

// Task queue identifiers. All order tasks route to the single "tasks" queue.
const (
	QueueName = "tasks"

	TaskSendLimitOrder     = "tasks.orders.send_limit_order"
	TaskExecuteLimitOrder  = "tasks.orders.execute_limit_order"
	TaskStoreExecutedOrder = "tasks.orders.store_executed_order"
)

// Config holds the service configuration.
type Config struct {
	RedisURL string `yaml:"redis_url"`

	HTTP struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"http"`

	Aggregation struct {
		Pairs     []string  `yaml:"pairs"`
		Intervals []float64 `yaml:"intervals"` // seconds
	} `yaml:"aggregation"`

	Worker struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"worker"`

	LogFile string `yaml:"log_file"`
}

// Default returns the built-in configuration matching the deployed service.
func Default() Config {
	var cfg Config
	cfg.RedisURL = LocalhostRedisURL
	cfg.HTTP.Host = "0.0.0.0"
	cfg.HTTP.Port = 8000
	cfg.Aggregation.Pairs = []string{"BTCUSD", "ETHUSD"}
	cfg.Aggregation.Intervals = []float64{1.2, 2.3, 3.4}
	cfg.Worker.Concurrency = 4
	cfg.LogFile = "app.log"
	return cfg
}

// Load reads an optional yaml file over the defaults, then applies
// environment overrides. An empty path yields defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.RedisURL = url
	}
	if port := os.Getenv("HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.HTTP.Port = p
		}
	}

	return cfg, nil
}

// Intervals returns the refresh intervals as durations.
func (c Config) Intervals() []time.Duration {
	out := make([]time.Duration, len(c.Aggregation.Intervals))
	for i, s := range c.Aggregation.Intervals {
		out[i] = time.Duration(s * float64(time.Second))
	}
	return out
}
