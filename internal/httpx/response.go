package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

const maxBodyBytes = 10 << 20

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, envelope{Success: true, Message: message, Data: data})
}

func writeList[T any](w http.ResponseWriter, items []T) {
	n := len(items)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: items, Count: &n})
}

func writeFail(w http.ResponseWriter, code int, message, detail string) {
	writeJSON(w, code, envelope{Success: false, Message: message, Error: detail})
}

// writeError maps a domain error to its status code. Anything outside the
// taxonomy is logged and reported as a 500 with op as the message.
func writeError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	kind := apperr.Kind(err)
	if kind != apperr.KindInternal {
		log.Info("request rejected", zap.String("kind", kind.String()), zap.Error(err))
	}
	switch kind {
	case apperr.KindValidation:
		writeFail(w, http.StatusBadRequest, "Validation error", err.Error())
	case apperr.KindNotFound:
		var nf *apperr.NotFoundError
		msg := "Not found"
		if errors.As(err, &nf) {
			msg = capitalize(nf.Entity) + " not found"
		}
		writeFail(w, http.StatusNotFound, msg, "")
	case apperr.KindProductNotFound, apperr.KindInsufficientStock, apperr.KindInvalidCancellation:
		writeFail(w, http.StatusBadRequest, capitalize(err.Error()), "")
	case apperr.KindInvalidStatus:
		var te *apperr.InvalidTransitionError
		if errors.As(err, &te) {
			writeFail(w, http.StatusBadRequest, capitalize(err.Error()), "")
			return
		}
		writeFail(w, http.StatusBadRequest, "Valid status is required", err.Error())
	default:
		log.Error(op, zap.Error(err))
		writeFail(w, http.StatusInternalServerError, op, "Something went wrong")
	}
}

// decodeJSON reads a JSON body, rejecting unknown fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("", "request body is required")
		}
		return apperr.Invalid("", fmt.Sprintf("invalid JSON body: %v", err))
	}
	if dec.More() {
		return apperr.Invalid("", "request body must contain a single JSON object")
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
