// Package inventory owns product stock levels. The ledger is the sole
// mutator of quantities after startup; every change goes through TryReserve.
package inventory

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ovc-dev/ovc/backend/internal/model/catalog"
)

// ErrUnknownProduct reports a reservation against a product the ledger has
// never seen.
var ErrUnknownProduct = errors.New("inventory: unknown product")

// InsufficientStockError reports a reservation that would drive stock
// negative. Available carries the current count so replies can relay it.
type InsufficientStockError struct {
	Product   string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for %s: requested %d, available %d",
		e.Product, e.Requested, e.Available)
}

// item carries its own lock so reservations for different products never
// contend with each other.
type item struct {
	mu       sync.Mutex
	name     string
	quantity int
}

// Ledger holds current stock levels keyed case-insensitively by product name.
// The product set is fixed at construction; only quantities change.
type Ledger struct {
	items map[string]*item
	order []string
}

// NewLedger seeds the ledger from the loaded catalog. Duplicate names keep
// the first entry.
func NewLedger(products []catalog.Product) *Ledger {
	l := &Ledger{items: make(map[string]*item, len(products))}
	for _, p := range products {
		key := strings.ToLower(p.Name)
		if _, exists := l.items[key]; exists {
			continue
		}
		l.items[key] = &item{name: p.Name, quantity: p.Quantity}
		l.order = append(l.order, key)
	}
	return l
}

// Names returns the canonical product names in load order, the candidate set
// for fuzzy matching.
func (l *Ledger) Names() []string {
	out := make([]string, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, l.items[key].name)
	}
	return out
}

// Snapshot returns the current stock levels in load order.
func (l *Ledger) Snapshot() []catalog.Product {
	out := make([]catalog.Product, 0, len(l.order))
	for _, key := range l.order {
		it := l.items[key]
		it.mu.Lock()
		out = append(out, catalog.Product{Name: it.name, Quantity: it.quantity})
		it.mu.Unlock()
	}
	return out
}

// TryReserve atomically checks and decrements stock for the named product.
// The check and the decrement are indivisible with respect to concurrent
// callers; failure leaves stock untouched.
func (l *Ledger) TryReserve(name string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("inventory: negative quantity %d for %s", quantity, name)
	}

	it, ok := l.items[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, name)
	}

	it.mu.Lock()
	defer it.mu.Unlock()
	if it.quantity < quantity {
		return &InsufficientStockError{Product: it.name, Requested: quantity, Available: it.quantity}
	}
	it.quantity -= quantity
	return nil
}
