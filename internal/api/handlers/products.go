package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/marketfold/shopedge/internal/apierr"
	"github.com/marketfold/shopedge/internal/catalog"
)

// ProductHandler serves the catalog endpoints.
type ProductHandler struct {
	svc *catalog.Service
}

// NewProductHandler creates a product handler.
func NewProductHandler(svc *catalog.Service) *ProductHandler {
	return &ProductHandler{svc: svc}
}

type productRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Category      string          `json:"category"`
	ImageURL      string          `json:"image_url"`
	Status        string          `json:"status"`
	Rating        *float64        `json:"rating"`
	Attributes    json.RawMessage `json:"attributes"`
}

func (req *productRequest) validate() *apierr.Error {
	switch {
	case req.Name == "":
		return apierr.ValidationMissingField("name")
	case req.SKU == "":
		return apierr.ValidationMissingField("sku")
	case req.Price.IsNegative():
		return apierr.ValidationInvalidValue("price", "price must not be negative")
	case req.StockQuantity < 0:
		return apierr.ValidationInvalidValue("stock_quantity", "stock must not be negative")
	case req.Rating != nil && (*req.Rating < 0 || *req.Rating > 5):
		return apierr.ValidationInvalidValue("rating", "rating must be between 0 and 5")
	}
	return nil
}

func (req *productRequest) apply(p *catalog.Product) {
	p.Name = req.Name
	p.Description = req.Description
	p.SKU = req.SKU
	p.Price = req.Price
	p.StockQuantity = req.StockQuantity
	p.Category = req.Category
	p.ImageURL = req.ImageURL
	p.Status = req.Status
	p.Rating = req.Rating
	p.Attributes = req.Attributes
}

// Create handles POST /api/products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if vErr := req.validate(); vErr != nil {
		apierr.WriteErrorWithContext(w, r, vErr)
		return
	}

	var p catalog.Product
	req.apply(&p)
	if err := h.svc.Create(r.Context(), &p); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// List handles GET /api/products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": products, "count": len(products)})
}

// Update handles PUT /api/products/{id}.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if vErr := req.validate(); vErr != nil {
		apierr.WriteErrorWithContext(w, r, vErr)
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	req.apply(p)
	if err := h.svc.Update(r.Context(), p); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/products/{id}.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdjustStock handles POST /api/products/{id}/stock.
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}

	p, err := h.svc.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Trending handles GET /api/products/trending.
func (h *ProductHandler) Trending(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("limit", "limit must be between 1 and 50"))
			return
		}
		limit = n
	}

	products, err := h.svc.Trending(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": products, "count": len(products)})
}

// pathID parses the named numeric path variable, writing a validation error
// on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id < 1 {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue(name, name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}
