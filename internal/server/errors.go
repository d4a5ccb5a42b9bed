package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/api/middleware"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/session"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/storage"
)

const (
	errTypeInvalidRequest = "invalid_request_error"
	errTypeNotFound       = "not_found_error"
	errTypeConflict       = "conflict_error"
	errTypeUnavailable    = "unavailable_error"
	errTypeAPI            = "api_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// errorStatus maps domain errors to an HTTP status and error type.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, errTypeNotFound
	case errors.Is(err, session.ErrEmptyInput),
		errors.Is(err, llm.ErrEmptyImage),
		errors.Is(err, llm.ErrUnsupportedImage):
		return http.StatusBadRequest, errTypeInvalidRequest
	case errors.Is(err, llm.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, errTypeInvalidRequest
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrEmptyCart),
		errors.Is(err, session.ErrCheckoutInProgress),
		errors.Is(err, session.ErrNoCheckout),
		errors.Is(err, session.ErrNoPaymentPending),
		errors.Is(err, session.ErrNothingToRetry):
		return http.StatusConflict, errTypeConflict
	case errors.Is(err, session.ErrNoCatalog):
		return http.StatusServiceUnavailable, errTypeUnavailable
	default:
		return http.StatusInternalServerError, errTypeAPI
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, typ := errorStatus(err)
	middleware.AddError(r.Context(), err)
	writeErrorMessage(w, status, typ, err.Error())
}

func writeErrorMessage(w http.ResponseWriter, status int, typ, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorDetail{Type: typ, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
