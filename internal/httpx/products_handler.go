package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
)

type ProductsHandler struct {
	Catalog *catalog.Store
	Log     *zap.Logger
}

type createProductReq struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
}

type updateProductReq struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	Stock       *int             `json:"stock"`
}

type stockReq struct {
	Stock *int `json:"stock"`
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Patch("/{id}/stock", h.setStock)
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Category: q.Get("category"),
		InStock:  q.Get("inStock") == "true",
	}
	var err error
	if f.MinPrice, err = priceParam(q.Get("minPrice"), "minPrice"); err != nil {
		writeError(w, h.Log, "Error fetching products", err)
		return
	}
	if f.MaxPrice, err = priceParam(q.Get("maxPrice"), "maxPrice"); err != nil {
		writeError(w, h.Log, "Error fetching products", err)
		return
	}
	writeList(w, h.Catalog.List(r.Context(), f))
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, "Error fetching product", err)
		return
	}
	writeData(w, http.StatusOK, "", p)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.Log, "Error creating product", err)
		return
	}
	p, err := h.Catalog.Create(r.Context(), catalog.NewProduct{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
	})
	if err != nil {
		writeError(w, h.Log, "Error creating product", err)
		return
	}
	writeData(w, http.StatusCreated, "Product created successfully", p)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Catalog.Find(r.Context(), id); err != nil {
		writeError(w, h.Log, "Error updating product", err)
		return
	}
	var req updateProductReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.Log, "Error updating product", err)
		return
	}
	p, err := h.Catalog.Update(r.Context(), id, catalog.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
	})
	if err != nil {
		writeError(w, h.Log, "Error updating product", err)
		return
	}
	writeData(w, http.StatusOK, "Product updated successfully", p)
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, "Error deleting product", err)
		return
	}
	writeData(w, http.StatusOK, "Product deleted successfully", p)
}

func (h *ProductsHandler) setStock(w http.ResponseWriter, r *http.Request) {
	var req stockReq
	if err := decodeJSON(w, r, &req); err != nil || req.Stock == nil || *req.Stock < 0 {
		writeFail(w, http.StatusBadRequest, "Stock must be a non-negative number", "")
		return
	}
	p, err := h.Catalog.SetStock(r.Context(), chi.URLParam(r, "id"), *req.Stock)
	if err != nil {
		writeError(w, h.Log, "Error updating product stock", err)
		return
	}
	writeData(w, http.StatusOK, "Product stock updated successfully", p)
}

func priceParam(raw, name string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.Invalid(name, "must be a number")
	}
	return &d, nil
}
