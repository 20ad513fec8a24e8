package cache

import (
	"strconv"
	"strings"
)

// Cache key builders. Each aggregate is owned by exactly one namespace, so
// invalidation is always a direct key or key-prefix operation.

const (
	NamespaceCart      = "cart"
	NamespaceCartItems = "cart:items"
	NamespaceCartTotal = "cart:total"
	NamespaceProduct   = "product"
	NamespaceSearch    = "search"
	NamespaceTrending  = "trending"
	NamespaceRateLimit = "rate_limit"
)

func CartKey(userID int64) string      { return "cart:" + strconv.FormatInt(userID, 10) }
func CartItemsKey(userID int64) string { return "cart:items:" + strconv.FormatInt(userID, 10) }
func CartTotalKey(userID int64) string { return "cart:total:" + strconv.FormatInt(userID, 10) }
func ProductKey(id int64) string       { return "product:" + strconv.FormatInt(id, 10) }
func SearchKey(signature string) string { return "search:" + signature }
func TrendingKey(limit int) string     { return "trending:" + strconv.Itoa(limit) }
func RateLimitKey(clientKey string) string { return "rate_limit:" + clientKey }

// Namespace extracts the metrics namespace from a cache key. Composite cart
// sub-view keys report their own namespace so hit rates can be tracked per
// tier.
func Namespace(key string) string {
	if strings.HasPrefix(key, "cart:items:") {
		return NamespaceCartItems
	}
	if strings.HasPrefix(key, "cart:total:") {
		return NamespaceCartTotal
	}
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}
