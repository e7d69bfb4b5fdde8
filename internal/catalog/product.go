package catalog

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-storefront/internal/validation"
)

// MaxStock bounds a product's stock count and any single stock movement.
const MaxStock = math.MaxInt32

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// NewProduct carries the fields accepted by Store.Create.
type NewProduct struct {
	Name        string          `json:"name" validate:"notblank,max=100"`
	Description string          `json:"description" validate:"notblank,max=500"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	Category    string          `json:"category" validate:"notblank,max=50"`
	Stock       int             `json:"stock" validate:"gte=0,max=2147483647"`
}

// ProductPatch is a partial update; nil fields are left untouched.
type ProductPatch struct {
	Name        *string          `json:"name" validate:"omitnil,notblank,max=100"`
	Description *string          `json:"description" validate:"omitnil,notblank,max=500"`
	Price       *decimal.Decimal `json:"price" validate:"omitnil,gt=0"`
	Category    *string          `json:"category" validate:"omitnil,notblank,max=50"`
	Stock       *int             `json:"stock" validate:"omitnil,gte=0,max=2147483647"`
}

// Filter narrows List. Zero value matches everything.
type Filter struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
}

func (f Filter) match(p *Product) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock && p.Stock <= 0 {
		return false
	}
	return true
}

func (n NewProduct) validate() error {
	return validation.Struct(n)
}

func (p ProductPatch) validate() error {
	return validation.Struct(p)
}

func (p ProductPatch) apply(dst *Product) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
	if p.Stock != nil {
		dst.Stock = *p.Stock
	}
}
