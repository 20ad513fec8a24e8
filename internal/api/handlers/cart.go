package handlers

import (
	"net/http"

	"github.com/marketfold/shopedge/internal/apierr"
	"github.com/marketfold/shopedge/internal/cart"
	"github.com/marketfold/shopedge/internal/middleware"
)

// CartHandler serves the cart endpoints.
type CartHandler struct {
	svc *cart.Service
}

// NewCartHandler creates a cart handler.
func NewCartHandler(svc *cart.Service) *CartHandler {
	return &CartHandler{svc: svc}
}

// userID resolves the cart owner from the path and checks it against the
// authenticated principal. Users may only touch their own cart.
func (h *CartHandler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(w, r, "userId")
	if !ok {
		return 0, false
	}
	if p, ok := middleware.PrincipalFrom(r.Context()); ok && p.UserID != id {
		apierr.WriteErrorWithContext(w, r, apierr.AuthForbidden("Cannot access another user's cart"))
		return 0, false
	}
	return id, true
}

// Get handles GET /api/cart/{userId}.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Items handles GET /api/cart/{userId}/items.
func (h *CartHandler) Items(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	items, err := h.svc.Items(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// Total handles GET /api/cart/{userId}/total.
func (h *CartHandler) Total(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	total, err := h.svc.Total(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total})
}

// AddItem handles POST /api/cart/{userId}/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if req.ProductID < 1 {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("product_id"))
		return
	}

	c, err := h.svc.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateItem handles PUT /api/cart/{userId}/items/{productId}.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}

	c, err := h.svc.UpdateItemQuantity(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// RemoveItem handles DELETE /api/cart/{userId}/items/{productId}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}

	c, err := h.svc.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Clear handles DELETE /api/cart/{userId}.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Clear(r.Context(), userID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
