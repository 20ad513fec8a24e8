package handlers

import (
	"net/http"

	"github.com/marketfold/shopedge/internal/apierr"
	"github.com/marketfold/shopedge/internal/middleware"
	"github.com/marketfold/shopedge/internal/order"
)

// OrderHandler serves the order endpoints.
type OrderHandler struct {
	svc *order.Service
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// userID resolves the order owner from the path and checks it against the
// authenticated principal.
func (h *OrderHandler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(w, r, "userId")
	if !ok {
		return 0, false
	}
	if p, ok := middleware.PrincipalFrom(r.Context()); ok && p.UserID != id {
		apierr.WriteErrorWithContext(w, r, apierr.AuthForbidden("Cannot access another user's orders"))
		return 0, false
	}
	return id, true
}

// Checkout handles POST /api/orders/{userId}/checkout.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	o, err := h.svc.Checkout(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// History handles GET /api/orders/{userId}.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orders, err := h.svc.History(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders, "count": len(orders)})
}
