package search

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/marketfold/shopedge/internal/catalog"
)

// ResultPage is one page of matches plus the size of the full match set.
type ResultPage struct {
	Items        []catalog.Product `json:"items"`
	TotalMatched int               `json:"total_matched"`
	Page         int               `json:"page"`
	PageSize     int               `json:"page_size"`
}

// Engine evaluates queries against a product slice in process. It is the
// authoritative semantics: the external index must agree with it, and it is
// the fallback when the index is unreachable.
type Engine struct{}

// Run applies the query stages in order: keyword match, structured filters,
// ordering, pagination. The input slice is never mutated.
func (Engine) Run(products []catalog.Product, q Query) ResultPage {
	q = q.Normalize()

	matched := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if matchKeyword(p, q.Keyword) && matchFilters(p, q.Filters) {
			matched = append(matched, p)
		}
	}

	orderProducts(matched, q.Sort)

	total := len(matched)
	start := q.Page * q.PageSize
	if start >= total {
		// Past the end is an empty page, not an error; the total still
		// reflects the full match set.
		return ResultPage{Items: []catalog.Product{}, TotalMatched: total, Page: q.Page, PageSize: q.PageSize}
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}

	items := make([]catalog.Product, end-start)
	copy(items, matched[start:end])
	return ResultPage{Items: items, TotalMatched: total, Page: q.Page, PageSize: q.PageSize}
}

func matchKeyword(p catalog.Product, keyword string) bool {
	if keyword == "" {
		return true
	}
	kw := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(p.Name), kw) ||
		strings.Contains(strings.ToLower(p.Description), kw)
}

// matchFilters requires every filter to hold. An unknown field matches
// nothing, so a typo narrows results instead of silently widening them.
func matchFilters(p catalog.Product, filters []Filter) bool {
	for _, f := range filters {
		if !matchFilter(p, f) {
			return false
		}
	}
	return true
}

func matchFilter(p catalog.Product, f Filter) bool {
	switch f.Field {
	case "category":
		return matchEnum(p.Category, f.Values)
	case "status":
		return matchEnum(p.Status, f.Values)
	case "price":
		return matchRange(p.Price, f.Min, f.Max)
	case "rating":
		if p.Rating == nil {
			return false
		}
		return matchRange(decimal.NewFromFloat(*p.Rating), f.Min, f.Max)
	default:
		return false
	}
}

func matchEnum(value string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return true
		}
	}
	return false
}

// matchRange treats both bounds as inclusive. An inverted range (min > max)
// matches nothing.
func matchRange(v decimal.Decimal, min, max *decimal.Decimal) bool {
	if min != nil && v.LessThan(*min) {
		return false
	}
	if max != nil && v.GreaterThan(*max) {
		return false
	}
	return true
}

// orderProducts sorts in place. Products without a value for the sort field
// go last in either direction, and id breaks every tie so the order is
// stable across runs.
func orderProducts(products []catalog.Product, s *Sort) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if s != nil {
			// Unrated products form a trailing class in either direction;
			// the direction flip must not pull them to the front.
			if s.Field == SortRating {
				switch {
				case a.Rating == nil && b.Rating == nil:
					return a.ID < b.ID
				case a.Rating == nil:
					return false
				case b.Rating == nil:
					return true
				}
			}
			if less, eq := compareField(a, b, s.Field); !eq {
				if s.Desc {
					return !less
				}
				return less
			}
		}
		return a.ID < b.ID
	})
}

// compareField reports a < b on the field, plus whether they compare equal.
func compareField(a, b catalog.Product, field string) (less, eq bool) {
	switch field {
	case SortPrice:
		cmp := a.Price.Cmp(b.Price)
		return cmp < 0, cmp == 0
	case SortName:
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		return an < bn, an == bn
	case SortCreatedAt:
		if a.CreatedAt.Equal(b.CreatedAt) {
			return false, true
		}
		return a.CreatedAt.Before(b.CreatedAt), false
	case SortRating:
		if a.Rating == nil || b.Rating == nil {
			return false, true
		}
		return *a.Rating < *b.Rating, *a.Rating == *b.Rating
	default:
		return false, true
	}
}
