// Package search implements product search: keyword matching, structured
// filters, deterministic ordering, and offset pagination, with result pages
// cached by query signature.
package search

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Sortable fields. Anything else is rejected at parse time.
const (
	SortPrice     = "price"
	SortName      = "name"
	SortCreatedAt = "created_at"
	SortRating    = "rating"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter constrains one product field. Values is enum membership, matched
// case-insensitively; Min and Max are an inclusive numeric range. A filter
// carries one kind or the other, never both.
type Filter struct {
	Field  string
	Values []string
	Min    *decimal.Decimal
	Max    *decimal.Decimal
}

// Sort names an ordering field and direction.
type Sort struct {
	Field string
	Desc  bool
}

// Query is one search request. Page is zero-based.
type Query struct {
	Keyword  string
	Filters  []Filter
	Sort     *Sort
	Page     int
	PageSize int
}

// Normalize clamps pagination to sane bounds and trims the keyword.
func (q Query) Normalize() Query {
	q.Keyword = strings.TrimSpace(q.Keyword)
	if q.Page < 0 {
		q.Page = 0
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// ParseSort turns a "field_asc" / "field_desc" token into a Sort. An empty
// token means default ordering.
func ParseSort(token string) (*Sort, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return nil, nil
	}

	field, desc := token, false
	if f, ok := strings.CutSuffix(token, "_desc"); ok {
		field, desc = f, true
	} else if f, ok := strings.CutSuffix(token, "_asc"); ok {
		field = f
	}

	switch field {
	case SortPrice, SortName, SortCreatedAt, SortRating:
		return &Sort{Field: field, Desc: desc}, nil
	default:
		return nil, fmt.Errorf("search: unknown sort field %q", field)
	}
}

// Signature returns a stable digest of the query, used as the result cache
// key. Equivalent queries must hash identically, so every part is emitted in
// canonical form and filters are ordered by field.
func (q Query) Signature() string {
	var b strings.Builder
	b.WriteString("kw=")
	b.WriteString(strings.ToLower(strings.TrimSpace(q.Keyword)))

	filters := make([]Filter, len(q.Filters))
	copy(filters, q.Filters)
	sort.Slice(filters, func(i, j int) bool { return filters[i].Field < filters[j].Field })

	for _, f := range filters {
		b.WriteString("|f=")
		b.WriteString(f.Field)
		if len(f.Values) > 0 {
			vals := make([]string, len(f.Values))
			for i, v := range f.Values {
				vals[i] = strings.ToLower(v)
			}
			sort.Strings(vals)
			b.WriteString(":" + strings.Join(vals, ","))
		}
		if f.Min != nil {
			b.WriteString(":min=" + f.Min.String())
		}
		if f.Max != nil {
			b.WriteString(":max=" + f.Max.String())
		}
	}

	b.WriteString("|sort=")
	if q.Sort != nil {
		b.WriteString(q.Sort.Field)
		if q.Sort.Desc {
			b.WriteString("_desc")
		} else {
			b.WriteString("_asc")
		}
	}
	fmt.Fprintf(&b, "|page=%d|size=%d", q.Page, q.PageSize)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
