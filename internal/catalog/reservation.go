package catalog

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

// LineRequest is one requested order line.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// ReservedLine is what a successful reservation hands back for building order
// items: the unit price captured at decrement time and the stock left after it.
type ReservedLine struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Remaining int
}

// Reserve checks and decrements stock for every line as one unit. Either all
// lines are applied or none is. Lines naming the same product are checked
// against their combined quantity.
func (s *Store) Reserve(ctx context.Context, lines []LineRequest) ([]ReservedLine, error) {
	if len(lines) == 0 {
		return nil, apperr.Invalid("items", "order must have at least one item")
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperr.Invalid("quantity", "must be a positive integer")
		}
		if l.Quantity > MaxStock {
			return nil, apperr.Invalid("quantity", fmt.Sprintf("must not exceed %d", MaxStock))
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	requested := make(map[string]int, len(lines))
	recs := make([]*record, 0, len(lines))
	for _, l := range lines {
		rec, ok := s.byID[l.ProductID]
		if !ok {
			return nil, &apperr.ProductNotFoundError{ProductID: l.ProductID}
		}
		if _, seen := requested[l.ProductID]; !seen {
			recs = append(recs, rec)
		}
		requested[l.ProductID] = addSaturating(requested[l.ProductID], l.Quantity)
	}

	unlock := lockOrdered(recs)
	defer unlock()

	for _, l := range lines {
		rec := s.byID[l.ProductID]
		if want := requested[l.ProductID]; rec.p.Stock < want {
			return nil, &apperr.InsufficientStockError{
				ProductID: l.ProductID,
				Name:      rec.p.Name,
				Available: rec.p.Stock,
				Requested: want,
			}
		}
	}

	now := s.now()
	for _, rec := range recs {
		rec.p.Stock -= requested[rec.id]
		rec.p.UpdatedAt = now
	}

	out := make([]ReservedLine, 0, len(lines))
	for _, l := range lines {
		rec := s.byID[l.ProductID]
		out = append(out, ReservedLine{
			ProductID: l.ProductID,
			Name:      rec.p.Name,
			Quantity:  l.Quantity,
			UnitPrice: rec.p.Price,
			Remaining: rec.p.Stock,
		})
	}
	return out, nil
}

// Restore puts stock back for lines of a cancelled order. Products deleted
// since the order was placed are skipped and returned.
func (s *Store) Restore(ctx context.Context, lines []LineRequest) (skipped []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	returned := make(map[string]int, len(lines))
	recs := make([]*record, 0, len(lines))
	for _, l := range lines {
		rec, ok := s.byID[l.ProductID]
		if !ok {
			skipped = append(skipped, l.ProductID)
			continue
		}
		if _, seen := returned[l.ProductID]; !seen {
			recs = append(recs, rec)
		}
		returned[l.ProductID] = addSaturating(returned[l.ProductID], l.Quantity)
	}

	unlock := lockOrdered(recs)
	defer unlock()

	now := s.now()
	for _, rec := range recs {
		rec.p.Stock = addSaturating(rec.p.Stock, returned[rec.id])
		rec.p.UpdatedAt = now
	}
	return skipped
}

// addSaturating adds two non-negative counts, pinning the result at
// math.MaxInt instead of wrapping.
func addSaturating(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}
