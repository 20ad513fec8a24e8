package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marketfold/shopedge/internal/apierr"
	"github.com/marketfold/shopedge/internal/cart"
	"github.com/marketfold/shopedge/internal/catalog"
	"github.com/marketfold/shopedge/internal/errorreporting"
	"github.com/marketfold/shopedge/internal/logger"
	"github.com/marketfold/shopedge/internal/order"
)

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps domain errors onto the structured API error
// envelope. Unrecognized errors become opaque 500s and are reported.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apierr.Error
	switch {
	case errors.As(err, &apiErr):
		// already shaped
	case errors.Is(err, catalog.ErrNotFound):
		apiErr = apierr.ResourceNotFound("Product")
	case errors.Is(err, catalog.ErrSKUExists):
		apiErr = apierr.ResourceConflict("Product with this SKU already exists")
	case errors.Is(err, cart.ErrItemNotFound):
		apiErr = apierr.New(apierr.ErrCartItemNotFound, "Item not found in cart", http.StatusNotFound)
	case errors.Is(err, cart.ErrInvalidItem):
		apiErr = apierr.CartInvalidItem(err.Error())
	case errors.Is(err, order.ErrEmptyCart):
		apiErr = apierr.OrderEmptyCart()
	case errors.Is(err, order.ErrNotFound):
		apiErr = apierr.ResourceNotFound("Order")
	default:
		logger.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
		errorreporting.CaptureError(err)
		apiErr = apierr.SystemInternal("")
	}
	apierr.WriteErrorWithContext(w, r, apiErr)
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
