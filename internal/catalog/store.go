// Package catalog owns product records and their stock counts.
//
// Locking: the store-level RWMutex guards the map itself (create/delete take
// it exclusively), each record has its own mutex for field and stock changes.
// Operations spanning several records lock them in ascending id order and hold
// every lock until done, so readers never see half of a multi-item reservation
// and overlapping reservations cannot deadlock.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

type record struct {
	id string // immutable copy of p.ID, readable without mu
	mu sync.Mutex
	p  Product
}

type Store struct {
	mu   sync.RWMutex
	byID map[string]*record
	ids  []string // insertion order, used for stable listing

	now   func() time.Time
	newID func() string
}

func NewStore() *Store {
	return &Store{
		byID:  make(map[string]*record),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Seed inserts fully-formed products, keeping their ids and timestamps.
// Products with a zero id or timestamp get fresh ones.
func (s *Store) Seed(ctx context.Context, products []Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		if err := (NewProduct{Name: p.Name, Description: p.Description, Price: p.Price, Category: p.Category, Stock: p.Stock}).validate(); err != nil {
			return fmt.Errorf("seed product %q: %w", p.Name, err)
		}
		if p.ID == "" {
			p.ID = s.newID()
		}
		if _, exists := s.byID[p.ID]; exists {
			return fmt.Errorf("seed product %s: duplicate id", p.ID)
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = s.now()
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		s.byID[p.ID] = &record{id: p.ID, p: p}
		s.ids = append(s.ids, p.ID)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return Product{}, &apperr.NotFoundError{Entity: "product", ID: id}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.p, nil
}

// List returns matching products in insertion order. The result is a
// consistent snapshot across all records.
func (s *Store) List(ctx context.Context, f Filter) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*record, 0, len(s.ids))
	for _, id := range s.ids {
		recs = append(recs, s.byID[id])
	}
	unlock := lockOrdered(recs)
	defer unlock()

	out := make([]Product, 0, len(recs))
	for _, rec := range recs {
		if f.match(&rec.p) {
			out = append(out, rec.p)
		}
	}
	return out
}

func (s *Store) Create(ctx context.Context, in NewProduct) (Product, error) {
	if err := in.validate(); err != nil {
		return Product{}, err
	}

	now := s.now()
	p := Product{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Stock:       in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = &record{id: p.ID, p: p}
	s.ids = append(s.ids, p.ID)
	return p, nil
}

func (s *Store) Update(ctx context.Context, id string, patch ProductPatch) (Product, error) {
	return s.mutate(id, func(p *Product) error {
		if err := patch.validate(); err != nil {
			return err
		}
		patch.apply(p)
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, id string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return Product{}, &apperr.NotFoundError{Entity: "product", ID: id}
	}
	delete(s.byID, id)
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
	}
	return rec.p, nil
}

func (s *Store) SetStock(ctx context.Context, id string, stock int) (Product, error) {
	if stock < 0 {
		return Product{}, apperr.Invalid("stock", "must be a non-negative number")
	}
	if stock > MaxStock {
		return Product{}, apperr.Invalid("stock", fmt.Sprintf("must not exceed %d", MaxStock))
	}
	return s.mutate(id, func(p *Product) error {
		p.Stock = stock
		return nil
	})
}

// Receive adds incoming supplier stock to a product. The resulting count may
// not exceed MaxStock.
func (s *Store) Receive(ctx context.Context, id string, qty int) (Product, error) {
	if qty <= 0 {
		return Product{}, apperr.Invalid("quantity", "must be a positive integer")
	}
	if qty > MaxStock {
		return Product{}, apperr.Invalid("quantity", fmt.Sprintf("must not exceed %d", MaxStock))
	}
	return s.mutate(id, func(p *Product) error {
		if p.Stock > MaxStock-qty {
			return apperr.Invalid("quantity", fmt.Sprintf("stock would exceed %d", MaxStock))
		}
		p.Stock += qty
		return nil
	})
}

// mutate applies fn to a copy of the record and commits it only when fn
// succeeds, refreshing UpdatedAt.
func (s *Store) mutate(id string, fn func(p *Product) error) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return Product{}, &apperr.NotFoundError{Entity: "product", ID: id}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	next := rec.p
	if err := fn(&next); err != nil {
		return Product{}, err
	}
	next.UpdatedAt = s.now()
	rec.p = next
	return next, nil
}

// lockOrdered locks recs in ascending product id order and returns the
// matching unlock.
func lockOrdered(recs []*record) func() {
	sorted := slices.Clone(recs)
	slices.SortFunc(sorted, func(a, b *record) int {
		return strings.Compare(a.id, b.id)
	})
	for _, rec := range sorted {
		rec.mu.Lock()
	}
	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			sorted[i].mu.Unlock()
		}
	}
}
