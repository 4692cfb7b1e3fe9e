// Package scheduler runs the periodic order-book aggregation loops. At
// startup it spawns one refresh loop per (interval, pair) combination drawn
// from the zip of every length-|pairs| permutation of the configured
// intervals with the pair list. That yields several overlapping refreshers
// per pair at different cadences; last writer wins on the registry entry.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iangfernandes96/order-book/internal/book"
	"github.com/iangfernandes96/order-book/internal/exchange"
	"github.com/iangfernandes96/order-book/internal/metrics"
	"github.com/iangfernandes96/order-book/internal/registry"
)

// Scheduler owns the refresh loops and the registry they publish into.
type Scheduler struct {
	registry  *registry.Registry
	pairs     []string
	intervals []time.Duration

	wg sync.WaitGroup
}

// New creates a scheduler publishing into reg.
func New(reg *registry.Registry, pairs []string, intervals []time.Duration) *Scheduler {
	return &Scheduler{registry: reg, pairs: pairs, intervals: intervals}
}

// Start initializes the registry and spawns all refresh loops. The loops run
// until ctx is cancelled; Stop waits for them and flushes the registry.
func (s *Scheduler) Start(ctx context.Context) {
	s.registry.Init()

	tasks := refreshTasks(s.intervals, s.pairs)
	for _, task := range tasks {
		clients, err := exchange.ForPair(task.pair)
		if err != nil {
			log.Error().Err(err).Str("pair", task.pair).Msg("skipping refresh loop")
			continue
		}
		s.wg.Add(1)
		go func(pair string, interval time.Duration, clients []exchange.Client) {
			defer s.wg.Done()
			s.refreshLoop(ctx, pair, interval, clients)
		}(task.pair, task.interval, clients)
	}

	log.Info().
		Strs("pairs", s.pairs).
		Int("loops", len(tasks)).
		Msg("aggregation scheduler started")
}

// Stop waits for all loops to exit and clears the registry.
func (s *Scheduler) Stop() {
	s.wg.Wait()
	s.registry.Flush()
	log.Info().Msg("aggregation scheduler stopped")
}

func (s *Scheduler) refreshLoop(ctx context.Context, pair string, interval time.Duration, clients []exchange.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		merged, err := fetchAndMerge(ctx, clients)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logFetchError(pair, err)
			metrics.RefreshTotal.WithLabelValues(pair, "error").Inc()
			continue
		}

		s.registry.Put(pair, merged)
		metrics.RefreshTotal.WithLabelValues(pair, "ok").Inc()
		metrics.BookDepth.WithLabelValues(pair, "bids").Set(float64(len(merged.Bids)))
		metrics.BookDepth.WithLabelValues(pair, "asks").Set(float64(len(merged.Asks)))
		log.Debug().
			Str("pair", pair).
			Dur("interval", interval).
			Int("bids", len(merged.Bids)).
			Int("asks", len(merged.Asks)).
			Msg("published merged order book")
	}
}

// FetchAll fetches and merges a pair's book once, outside any loop. Used by
// the one-shot price command.
func FetchAll(ctx context.Context, pair string) (book.Book, error) {
	clients, err := exchange.ForPair(pair)
	if err != nil {
		return book.Book{}, err
	}
	return fetchAndMerge(ctx, clients)
}

// fetchAndMerge fans out to all venue adapters in parallel. Any single
// failure aborts the whole refresh so the registry is never fed a partial
// merge.
func fetchAndMerge(ctx context.Context, clients []exchange.Client) (book.Book, error) {
	books := make([]book.Book, len(clients))
	errs := make([]error, len(clients))

	var wg sync.WaitGroup
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c exchange.Client) {
			defer wg.Done()
			b, err := c.FetchOrderBook(ctx)
			if err != nil {
				metrics.FetchErrors.WithLabelValues(string(c.Exchange()), errorKind(err)).Inc()
				errs[i] = err
				return
			}
			books[i] = b
		}(i, c)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return book.Book{}, err
		}
	}
	return book.Merge(books), nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, exchange.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, exchange.ErrUpstreamHTTP):
		return "http"
	case errors.Is(err, exchange.ErrBadResponseShape):
		return "shape"
	case errors.Is(err, exchange.ErrUpstreamIO):
		return "io"
	}
	return "other"
}

func logFetchError(pair string, err error) {
	evt := log.Error().Err(err).Str("pair", pair)
	switch {
	case errors.Is(err, exchange.ErrUpstreamTimeout):
		evt.Msg("refresh aborted: request timed out")
	case errors.Is(err, exchange.ErrUpstreamIO), errors.Is(err, exchange.ErrUpstreamHTTP):
		evt.Msg("refresh aborted: upstream error")
	case errors.Is(err, exchange.ErrBadResponseShape):
		evt.Msg("refresh aborted: unexpected response shape")
	default:
		evt.Msg("refresh aborted: unexpected error")
	}
}

type refreshTask struct {
	interval time.Duration
	pair     string
}

// refreshTasks zips every length-len(pairs) permutation of intervals with the
// pair list. With 3 intervals and 2 pairs this produces 12 loops, 6 per pair.
// Intentional redundancy carried over from the original scheduling scheme.
func refreshTasks(intervals []time.Duration, pairs []string) []refreshTask {
	var tasks []refreshTask
	for _, perm := range permutations(intervals, len(pairs)) {
		for i, pair := range pairs {
			if i >= len(perm) {
				break
			}
			tasks = append(tasks, refreshTask{interval: perm[i], pair: pair})
		}
	}
	return tasks
}

// permutations returns all k-length orderings of items, in the order a
// depth-first walk over the remaining elements produces them.
func permutations(items []time.Duration, k int) [][]time.Duration {
	if k <= 0 || k > len(items) {
		return nil
	}
	var out [][]time.Duration
	var walk func(chosen []time.Duration, used []bool)
	walk = func(chosen []time.Duration, used []bool) {
		if len(chosen) == k {
			out = append(out, append([]time.Duration(nil), chosen...))
			return
		}
		for i, item := range items {
			if used[i] {
				continue
			}
			used[i] = true
			walk(append(chosen, item), used)
			used[i] = false
		}
	}
	walk(nil, make([]bool, len(items)))
	return out
}
