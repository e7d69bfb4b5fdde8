package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

const headerIdempotencyKey = "Idempotency-Key"

// Idempotency is satisfied by redisx.Idempotency.
type Idempotency interface {
	Claim(ctx context.Context, key string) (orderID string, claimed bool, err error)
	Complete(ctx context.Context, key, orderID string) error
	Release(ctx context.Context, key string) error
}

type OrdersHandler struct {
	Service *orders.Service
	Idem    Idempotency // optional
	Log     *zap.Logger
}

type createOrderReq struct {
	CustomerInfo orders.CustomerInfo  `json:"customerInfo"`
	Items        []orders.ItemRequest `json:"items"`
}

type updateStatusReq struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber"`
}

type trackingReq struct {
	TrackingNumber string `json:"trackingNumber"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/customer/{email}", h.byCustomer)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.cancel)
		r.Get("/{id}/status", h.status)
		r.Patch("/{id}/status", h.updateStatus)
		r.Put("/{id}/tracking", h.tracking)
	})
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeList(w, h.Service.ListOrders(r.Context(), orders.Filter{
		Status:        q.Get("status"),
		CustomerEmail: q.Get("customerEmail"),
	}))
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, "Error fetching order", err)
		return
	}
	writeData(w, http.StatusOK, "", o)
}

func (h *OrdersHandler) byCustomer(w http.ResponseWriter, r *http.Request) {
	writeList(w, h.Service.OrdersByCustomer(r.Context(), chi.URLParam(r, "email")))
}

func (h *OrdersHandler) status(w http.ResponseWriter, r *http.Request) {
	v, err := h.Service.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, "Error fetching order status", err)
		return
	}
	writeData(w, http.StatusOK, "", v)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.Log, "Error creating order", err)
		return
	}

	ctx := r.Context()
	var key string
	if h.Idem != nil {
		key = strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	}
	if key != "" {
		existing, claimed, err := h.Idem.Claim(ctx, key)
		switch {
		case errors.Is(err, redisx.ErrInFlight):
			writeFail(w, http.StatusConflict, "Order with this idempotency key is being processed", "")
			return
		case err != nil:
			// Redis trouble should not stop orders; proceed unguarded.
			h.Log.Warn("idempotency claim", zap.String("key", key), zap.Error(err))
			key = ""
		case !claimed:
			o, err := h.Service.GetOrder(ctx, existing)
			if err != nil {
				writeError(w, h.Log, "Error creating order", err)
				return
			}
			writeData(w, http.StatusOK, "Order already created", o)
			return
		}
	}

	o, err := h.Service.CreateOrder(ctx, req.CustomerInfo, req.Items)
	if err != nil {
		if key != "" {
			if rerr := h.Idem.Release(ctx, key); rerr != nil {
				h.Log.Warn("idempotency release", zap.String("key", key), zap.Error(rerr))
			}
		}
		writeError(w, h.Log, "Error creating order", err)
		return
	}
	if key != "" {
		if cerr := h.Idem.Complete(ctx, key, o.ID); cerr != nil {
			h.Log.Warn("idempotency complete", zap.String("key", key), zap.Error(cerr))
		}
	}
	writeData(w, http.StatusCreated, "Order created successfully", o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if err := decodeJSON(w, r, &req); err != nil || req.Status == "" {
		writeFail(w, http.StatusBadRequest, "Valid status is required", "")
		return
	}

	id := chi.URLParam(r, "id")
	o, err := h.Service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, h.Log, "Error updating order status", err)
		return
	}
	if strings.TrimSpace(req.TrackingNumber) != "" {
		if o, err = h.Service.AddTrackingNumber(r.Context(), id, req.TrackingNumber); err != nil {
			writeError(w, h.Log, "Error updating order status", err)
			return
		}
	}
	writeData(w, http.StatusOK, "Order status updated successfully", o)
}

func (h *OrdersHandler) tracking(w http.ResponseWriter, r *http.Request) {
	var req trackingReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.Log, "Error updating tracking number", err)
		return
	}
	o, err := h.Service.AddTrackingNumber(r.Context(), chi.URLParam(r, "id"), req.TrackingNumber)
	if err != nil {
		writeError(w, h.Log, "Error updating tracking number", err)
		return
	}
	writeData(w, http.StatusOK, "Tracking number updated successfully", o)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, "Error cancelling order", err)
		return
	}
	writeData(w, http.StatusOK, "Order cancelled successfully", o)
}
