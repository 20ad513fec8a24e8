package handlers

import (
	"net/http"

	"github.com/marketfold/shopedge/internal/apierr"
	"github.com/marketfold/shopedge/internal/cache"
)

// CacheAdminHandler serves the cache administration endpoints.
type CacheAdminHandler struct {
	coord   *cache.Coordinator
	results *cache.ResultCache
}

// NewCacheAdminHandler creates a cache admin handler. results may be nil.
func NewCacheAdminHandler(coord *cache.Coordinator, results *cache.ResultCache) *CacheAdminHandler {
	return &CacheAdminHandler{coord: coord, results: results}
}

// Stats returns counters for the TTL store and the search result cache.
// GET /api/admin/cache/stats
func (h *CacheAdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"store": statsBody(h.coord.Store().Stats())}
	if h.results != nil {
		body["search_results"] = statsBody(h.results.Stats())
	}
	writeJSON(w, http.StatusOK, body)
}

func statsBody(s cache.Stats) map[string]any {
	return map[string]any{
		"hits":    s.Hits,
		"misses":  s.Misses,
		"sets":    s.Sets,
		"deletes": s.Deletes,
		"swept":   s.Swept,
		"items":   s.Items,
	}
}

// Invalidate drops cache entries. With a prefix parameter only that
// namespace is dropped; without one, everything including the search result
// cache.
// POST /api/admin/cache/invalidate
func (h *CacheAdminHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix != "" {
		h.coord.InvalidatePrefix(r.Context(), prefix)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "prefix": prefix})
		return
	}

	for _, ns := range []string{
		cache.NamespaceCart,
		cache.NamespaceProduct,
		cache.NamespaceSearch,
		cache.NamespaceTrending,
	} {
		h.coord.InvalidatePrefix(r.Context(), ns+":")
	}
	if h.results != nil {
		h.results.Clear()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "cache invalidated"})
}

// RequireAdmin guards the admin endpoints with a shared token. An empty
// configured token disables the endpoints entirely.
func RequireAdmin(token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token == "" || r.Header.Get("X-Admin-Token") != token {
			apierr.WriteErrorWithContext(w, r, apierr.AuthForbidden(""))
			return
		}
		next(w, r)
	}
}
