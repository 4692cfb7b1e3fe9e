// Package registry holds the latest merged book per pair. It is the only
// in-process shared mutable state: scheduler refresh loops write, query
// handlers read.
package registry

import (
	"sync"

	"github.com/iangfernandes96/order-book/internal/book"
)

// Registry maps pair symbols to the most recently published merged book.
// Put replaces the whole book for a pair, so a reader holds either the
// previous or the next snapshot, never a partial merge.
type Registry struct {
	mu    sync.RWMutex
	books map[string]book.Book
}

// New returns an initialized registry.
func New() *Registry {
	r := &Registry{}
	r.Init()
	return r
}

// Init ensures the underlying map exists. Idempotent.
func (r *Registry) Init() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.books == nil {
		r.books = make(map[string]book.Book)
	}
}

// Get returns the latest published book for the pair, if any.
func (r *Registry) Get(pair string) (book.Book, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[pair]
	return b, ok
}

// Put atomically publishes a merged book for the pair, overwriting any
// previous entry.
func (r *Registry) Put(pair string, b book.Book) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books[pair] = b
}

// Flush clears all entries. Called at shutdown.
func (r *Registry) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books = make(map[string]book.Book)
}
