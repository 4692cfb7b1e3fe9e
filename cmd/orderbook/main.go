// Command orderbook runs the cross-exchange order book service: the
// aggregation scheduler plus websocket API (serve), the background order
// worker (worker), and a one-shot VWAP price query (price).
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iangfernandes96/order-book/internal/book"
	"github.com/iangfernandes96/order-book/internal/config"
	"github.com/iangfernandes96/order-book/internal/orders"
	"github.com/iangfernandes96/order-book/internal/registry"
	"github.com/iangfernandes96/order-book/internal/scheduler"
	"github.com/iangfernandes96/order-book/internal/ws"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:   "orderbook",
		Short: "Cross-exchange order book aggregation and smart order routing",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to yaml config file")

	root.AddCommand(newServeCmd(), newWorkerCmd(), newPriceCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging sends debug-level structured logs to the configured file, plus
// a console writer when stderr is a terminal. The returned closer owns the
// log file handle.
func setupLogging(logFile string) (io.Closer, error) {
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	writers := []io.Writer{f}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()
	return f, nil
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the aggregation scheduler, websocket API and embedded worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			closer, err := setupLogging(cfg.LogFile)
			if err != nil {
				return err
			}
			defer closer.Close()

			client, err := newRedisClient(cfg.RedisURL)
			if err != nil {
				return err
			}
			defer client.Close()

			reg := registry.New()
			store := orders.NewStore(client)
			queue := orders.NewQueue(client, config.QueueName)
			server := ws.NewServer(reg, store, queue)
			sched := scheduler.New(reg, cfg.Aggregation.Pairs, cfg.Intervals())
			worker := orders.NewWorker(store, queue, cfg.Worker.Concurrency)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched.Start(ctx)
			go worker.Run(ctx)

			srv := &http.Server{
				Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
				Handler: server.Router(),
			}
			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("http server listening")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
				log.Info().Msg("shutdown signal received")
			case err := <-errCh:
				stop()
				log.Error().Err(err).Msg("http server failed")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("http shutdown failed")
			}
			sched.Stop()
			return nil
		},
	}
}

func newWorkerCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the standalone limit-order job worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if concurrency > 0 {
				cfg.Worker.Concurrency = concurrency
			}
			closer, err := setupLogging(cfg.LogFile)
			if err != nil {
				return err
			}
			defer closer.Close()

			client, err := newRedisClient(cfg.RedisURL)
			if err != nil {
				return err
			}
			defer client.Close()

			store := orders.NewStore(client)
			queue := orders.NewQueue(client, config.QueueName)
			worker := orders.NewWorker(store, queue, cfg.Worker.Concurrency)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			worker.Run(ctx)
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of parallel task consumers (default from config)")
	return cmd
}

func newPriceCmd() *cobra.Command {
	var quantity float64

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Fetch BTCUSD once and print VWAP buy/sell totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			defer func() {
				fmt.Printf("Execution time: %.4f seconds\n", time.Since(start).Seconds())
			}()

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			closer, err := setupLogging(cfg.LogFile)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			merged, err := scheduler.FetchAll(ctx, "BTCUSD")
			if err != nil {
				log.Error().Err(err).Msg("failed to fetch order books")
				fmt.Println("An error occurred, please check " + cfg.LogFile + " for more details")
				cmd.SilenceUsage = true
				cmd.SilenceErrors = true
				return err
			}

			buy := book.Price(merged, book.Buy, quantity)
			sell := book.Price(merged, book.Sell, quantity)
			fmt.Printf("To BUY %v BTC: $%.4f\n", quantity, buy*quantity)
			fmt.Printf("To SELL %v BTC: $%.4f\n", quantity, sell*quantity)
			return nil
		},
	}
	cmd.Flags().Float64Var(&quantity, "quantity", 10.0, "quantity to price")
	return cmd
}
