package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const apiVersion = "1.0.0"

func NewRouter(log *zap.Logger, timeout time.Duration) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(tracing(), accessLog(log))
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"message":   "E-commerce API is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"version":   apiVersion,
		})
	})
	r.Get("/", index)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusNotFound, "Route not found", "Cannot "+r.Method+" "+r.URL.RequestURI())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusMethodNotAllowed, "Method not allowed", "Cannot "+r.Method+" "+r.URL.RequestURI())
	})
	return r
}

func index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Welcome to the E-commerce API",
		"version": apiVersion,
		"endpoints": map[string]string{
			"products": "/api/products",
			"orders":   "/api/orders",
			"health":   "/health",
		},
		"documentation": map[string]map[string]string{
			"products": {
				"GET /api/products":              "Get all products",
				"GET /api/products/{id}":         "Get product by ID",
				"POST /api/products":             "Create new product",
				"PUT /api/products/{id}":         "Update product",
				"DELETE /api/products/{id}":      "Delete product",
				"PATCH /api/products/{id}/stock": "Update product stock",
			},
			"orders": {
				"GET /api/orders":                  "Get all orders",
				"GET /api/orders/{id}":             "Get order by ID",
				"GET /api/orders/{id}/status":      "Get order status",
				"GET /api/orders/customer/{email}": "Get orders by customer email",
				"POST /api/orders":                 "Create new order",
				"PATCH /api/orders/{id}/status":    "Update order status",
				"PUT /api/orders/{id}/tracking":    "Set tracking number",
				"DELETE /api/orders/{id}":          "Cancel order",
			},
		},
	})
}

func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote", r.RemoteAddr),
			)
		})
	}
}

// tracing opens a server span per request, continuing any incoming trace.
func tracing() func(http.Handler) http.Handler {
	tracer := otel.Tracer("github.com/ariefcatur/go-storefront/internal/httpx")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
				),
			)
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", ww.Status()))
			if ww.Status() >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(ww.Status()))
			}
		})
	}
}
