package orders

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

type Filter struct {
	Status        string
	CustomerEmail string
}

func (f Filter) match(o *Order) bool {
	if f.Status != "" && !strings.EqualFold(string(o.Status), f.Status) {
		return false
	}
	if f.CustomerEmail != "" && !strings.EqualFold(o.CustomerInfo.Email, f.CustomerEmail) {
		return false
	}
	return true
}

type orderRecord struct {
	mu sync.Mutex
	o  Order
}

// Store keeps orders in memory. Orders are never removed; mutations lock only
// the order they touch.
type Store struct {
	mu   sync.RWMutex
	byID map[string]*orderRecord
	ids  []string // insertion order
}

func NewStore() *Store {
	return &Store{byID: make(map[string]*orderRecord)}
}

func (s *Store) Insert(ctx context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[o.ID]; exists {
		return fmt.Errorf("insert order %s: duplicate id", o.ID)
	}
	s.byID[o.ID] = &orderRecord{o: o.clone()}
	s.ids = append(s.ids, o.ID)
	return nil
}

func (s *Store) Find(ctx context.Context, id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return Order{}, &apperr.NotFoundError{Entity: "order", ID: id}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.o.clone(), nil
}

// List returns matching orders in the order they were placed.
func (s *Store) List(ctx context.Context, f Filter) []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, 0)
	for _, id := range s.ids {
		rec := s.byID[id]
		rec.mu.Lock()
		if f.match(&rec.o) {
			out = append(out, rec.o.clone())
		}
		rec.mu.Unlock()
	}
	return out
}

func (s *Store) FindByCustomerEmail(ctx context.Context, email string) []Order {
	if email == "" {
		return []Order{}
	}
	return s.List(ctx, Filter{CustomerEmail: email})
}

// Update runs fn on a copy of the order under the order's lock and commits the
// copy, with Version bumped, only if fn returns nil.
func (s *Store) Update(ctx context.Context, id string, fn func(o *Order) error) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return Order{}, &apperr.NotFoundError{Entity: "order", ID: id}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	next := rec.o.clone()
	if err := fn(&next); err != nil {
		return Order{}, err
	}
	next.Version++
	rec.o = next
	return next.clone(), nil
}
