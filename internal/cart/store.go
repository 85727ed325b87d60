package cart

import (
	"sync"

	"github.com/fjod/go_bullion/internal/domain"
	"github.com/shopspring/decimal"
)

// Snapshot is an immutable view of the cart handed to change hooks.
type Snapshot struct {
	Lines   []domain.CartLine
	Cleared bool
}

// ChangeHook is invoked after every successful mutation.
type ChangeHook func(Snapshot)

type Option func(*Store)

// OnChange registers a hook called after each mutation, outside the state lock.
func OnChange(h ChangeHook) Option {
	return func(s *Store) {
		s.hooks = append(s.hooks, h)
	}
}

// Store owns the cart state of one browsing session
type Store struct {
	mu       sync.RWMutex
	notifyMu sync.Mutex
	lines    map[string]*domain.CartLine // productID -> line
	order    []string                    // insertion order of productIDs
	hooks    []ChangeHook
}

// NewStore creates an empty cart
func NewStore(opts ...Option) *Store {
	s := &Store{
		lines: make(map[string]*domain.CartLine),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore replaces the state with lines loaded from persistence. Hooks are not
// fired. Duplicate ids are merged and non-positive quantities dropped.
func (s *Store) Restore(lines []domain.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = make(map[string]*domain.CartLine, len(lines))
	s.order = s.order[:0]
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity <= 0 {
			continue
		}
		if existing, ok := s.lines[l.ProductID]; ok {
			existing.Quantity += l.Quantity
			continue
		}
		line := l
		s.lines[l.ProductID] = &line
		s.order = append(s.order, l.ProductID)
	}
}

// AddToCart increments the quantity of an existing line or inserts a new line
// with quantity 1 and a copy of the product. Stock is not checked here.
func (s *Store) AddToCart(product domain.ProductSnapshot) {
	if product.ID == "" {
		return
	}

	s.mu.Lock()
	if line, ok := s.lines[product.ID]; ok {
		line.Quantity++
	} else {
		s.lines[product.ID] = &domain.CartLine{
			ProductID: product.ID,
			Snapshot:  copyProduct(product),
			Quantity:  1,
		}
		s.order = append(s.order, product.ID)
	}
	s.publishLocked(s.snapshotLocked(false))
}

// RemoveFromCart deletes the line if present
func (s *Store) RemoveFromCart(productID string) {
	s.mu.Lock()
	if !s.removeLocked(productID) {
		s.mu.Unlock()
		return
	}
	s.publishLocked(s.snapshotLocked(false))
}

// UpdateQuantity sets the quantity of an existing line; zero or less removes it.
func (s *Store) UpdateQuantity(productID string, quantity int) {
	s.mu.Lock()
	line, ok := s.lines[productID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if quantity <= 0 {
		s.removeLocked(productID)
	} else {
		line.Quantity = quantity
	}
	s.publishLocked(s.snapshotLocked(false))
}

// ClearCart empties the cart unconditionally
func (s *Store) ClearCart() {
	s.mu.Lock()
	s.lines = make(map[string]*domain.CartLine)
	s.order = s.order[:0]
	s.publishLocked(s.snapshotLocked(true))
}

// GetTotal returns the sum of snapshot total price times quantity
func (s *Store) GetTotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Lines returns a copy of the cart lines in insertion order
func (s *Store) Lines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.linesLocked()
}

// Line returns the line for productID
func (s *Store) Line(productID string) (domain.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	line, ok := s.lines[productID]
	if !ok {
		return domain.CartLine{}, false
	}
	return *line, true
}

// Count is the total number of units in the cart (header badge)
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, line := range s.lines {
		n += line.Quantity
	}
	return n
}

// Len is the number of distinct lines
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

func (s *Store) removeLocked(productID string) bool {
	if _, ok := s.lines[productID]; !ok {
		return false
	}
	delete(s.lines, productID)
	for i, id := range s.order {
		if id == productID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) linesLocked() []domain.CartLine {
	out := make([]domain.CartLine, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.lines[id])
	}
	return out
}

func (s *Store) snapshotLocked(cleared bool) Snapshot {
	return Snapshot{Lines: s.linesLocked(), Cleared: cleared}
}

// publishLocked releases mu and runs the hooks. notifyMu is taken before mu is
// released so hooks observe snapshots in mutation order. Hooks must not mutate
// the store.
func (s *Store) publishLocked(snap Snapshot) {
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, h := range s.hooks {
		h(snap)
	}
}

// copyProduct detaches the snapshot from the caller's record.
func copyProduct(p domain.ProductSnapshot) domain.ProductSnapshot {
	if p.Image != nil {
		img := *p.Image
		p.Image = &img
	}
	return p
}
