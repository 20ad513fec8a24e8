package handlers

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/marketfold/shopedge/internal/apierr"
	"github.com/marketfold/shopedge/internal/search"
)

// SearchHandler serves GET /api/search.
type SearchHandler struct {
	svc *search.Service
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(svc *search.Service) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search parses the query string into a search.Query and runs it.
//
// Recognized parameters: q, category, status, min_price, max_price,
// min_rating, sort, page, size.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, apiErr := parseQuery(r)
	if apiErr != nil {
		apierr.WriteErrorWithContext(w, r, apiErr)
		return
	}

	page, err := h.svc.Search(r.Context(), q)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func parseQuery(r *http.Request) (search.Query, *apierr.Error) {
	params := r.URL.Query()
	q := search.Query{Keyword: params.Get("q")}

	if categories, ok := params["category"]; ok {
		q.Filters = append(q.Filters, search.Filter{Field: "category", Values: categories})
	}
	if statuses, ok := params["status"]; ok {
		q.Filters = append(q.Filters, search.Filter{Field: "status", Values: statuses})
	}

	priceFilter := search.Filter{Field: "price"}
	var hasPrice bool
	if raw := params.Get("min_price"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return q, apierr.SearchInvalidQuery("min_price must be a decimal number")
		}
		priceFilter.Min, hasPrice = &d, true
	}
	if raw := params.Get("max_price"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return q, apierr.SearchInvalidQuery("max_price must be a decimal number")
		}
		priceFilter.Max, hasPrice = &d, true
	}
	if hasPrice {
		q.Filters = append(q.Filters, priceFilter)
	}

	if raw := params.Get("min_rating"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return q, apierr.SearchInvalidQuery("min_rating must be a decimal number")
		}
		q.Filters = append(q.Filters, search.Filter{Field: "rating", Min: &d})
	}

	sort, err := search.ParseSort(params.Get("sort"))
	if err != nil {
		return q, apierr.SearchInvalidQuery(err.Error())
	}
	q.Sort = sort

	if raw := params.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, apierr.SearchInvalidQuery("page must be a non-negative integer")
		}
		q.Page = n
	}
	if raw := params.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, apierr.SearchInvalidQuery("size must be a positive integer")
		}
		q.PageSize = n
	}

	return q, nil
}
