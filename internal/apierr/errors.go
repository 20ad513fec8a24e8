package apierr

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/marketfold/shopedge/internal/logger"
)

// ErrorCode represents a structured error code
type ErrorCode string

// Error code constants organized by category
const (
	// AUTH_ - Authentication and authorization errors
	ErrAuthMissing   ErrorCode = "AUTH_MISSING"
	ErrAuthInvalid   ErrorCode = "AUTH_INVALID"
	ErrAuthForbidden ErrorCode = "AUTH_FORBIDDEN"

	// RATE_LIMIT_ - Admission control errors
	ErrRateLimitGlobal ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitClient ErrorCode = "RATE_LIMIT_CLIENT"

	// CART_ - Cart operation errors
	ErrCartItemNotFound ErrorCode = "CART_ITEM_NOT_FOUND"
	ErrCartInvalidItem  ErrorCode = "CART_INVALID_ITEM"

	// ORDER_ - Order errors
	ErrOrderEmptyCart ErrorCode = "ORDER_EMPTY_CART"

	// PRODUCT_ - Catalog errors
	ErrProductSKUExists ErrorCode = "PRODUCT_SKU_EXISTS"

	// SEARCH_ - Search operation errors
	ErrSearchInvalidQuery ErrorCode = "SEARCH_INVALID_QUERY"
	ErrSearchFailed       ErrorCode = "SEARCH_FAILED"

	// SYSTEM_ - System and server errors
	ErrSystemInternal ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemDatabase ErrorCode = "SYSTEM_DATABASE"

	// VALIDATION_ - Request validation errors
	ErrValidationInvalidJSON  ErrorCode = "VALIDATION_INVALID_JSON"
	ErrValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue ErrorCode = "VALIDATION_INVALID_VALUE"

	// RESOURCE_ - Resource errors
	ErrResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrResourceConflict ErrorCode = "RESOURCE_CONFLICT"
)

// Error represents a structured API error
type Error struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	status    int                    // HTTP status code (not serialized)
}

// ErrorResponse is the top-level error response wrapper
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates a new API error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		status:  status,
	}
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

// Helper functions for common errors

// AuthMissing creates an authentication missing error
func AuthMissing(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return New(ErrAuthMissing, message, http.StatusUnauthorized)
}

// AuthInvalid creates an invalid authentication error
func AuthInvalid(message string) *Error {
	if message == "" {
		message = "Invalid or missing authentication token"
	}
	return New(ErrAuthInvalid, message, http.StatusUnauthorized)
}

// AuthForbidden creates a forbidden error
func AuthForbidden(message string) *Error {
	if message == "" {
		message = "Access forbidden"
	}
	return New(ErrAuthForbidden, message, http.StatusForbidden)
}

// RateLimitGlobal creates a global rate limit error
func RateLimitGlobal() *Error {
	return New(ErrRateLimitGlobal, "Rate limit exceeded - too many requests globally", http.StatusTooManyRequests)
}

// RateLimitClient creates a per-client rate limit error
func RateLimitClient() *Error {
	return New(ErrRateLimitClient, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// CartItemNotFound creates a cart item not found error
func CartItemNotFound(productID int64) *Error {
	return New(ErrCartItemNotFound, "Item not found in cart", http.StatusNotFound).
		WithDetails(map[string]interface{}{"product_id": productID})
}

// CartInvalidItem creates an invalid cart item error
func CartInvalidItem(message string) *Error {
	if message == "" {
		message = "Invalid cart item"
	}
	return New(ErrCartInvalidItem, message, http.StatusBadRequest)
}

// OrderEmptyCart creates an empty cart checkout error
func OrderEmptyCart() *Error {
	return New(ErrOrderEmptyCart, "Cannot place an order from an empty cart", http.StatusBadRequest)
}

// ProductSKUExists creates a duplicate SKU error
func ProductSKUExists(sku string) *Error {
	return New(ErrProductSKUExists, "Product with this SKU already exists", http.StatusConflict).
		WithDetails(map[string]interface{}{"sku": sku})
}

// SearchInvalidQuery creates a search invalid query error
func SearchInvalidQuery(message string) *Error {
	if message == "" {
		message = "Invalid search query"
	}
	return New(ErrSearchInvalidQuery, message, http.StatusBadRequest)
}

// SearchFailed creates a search failed error
func SearchFailed(message string) *Error {
	if message == "" {
		message = "Search query failed"
	}
	return New(ErrSearchFailed, message, http.StatusInternalServerError)
}

// SystemInternal creates an internal server error
func SystemInternal(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return New(ErrSystemInternal, message, http.StatusInternalServerError)
}

// SystemDatabase creates a database error
func SystemDatabase(message string) *Error {
	if message == "" {
		message = "Database error"
	}
	return New(ErrSystemDatabase, message, http.StatusInternalServerError)
}

// ValidationInvalidJSON creates an invalid JSON error
func ValidationInvalidJSON() *Error {
	return New(ErrValidationInvalidJSON, "Invalid JSON request body", http.StatusBadRequest)
}

// ValidationMissingField creates a missing field error
func ValidationMissingField(field string) *Error {
	return New(ErrValidationMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ValidationInvalidValue creates an invalid value error
func ValidationInvalidValue(field string, message string) *Error {
	if message == "" {
		message = "Invalid value for field: " + field
	}
	return New(ErrValidationInvalidValue, message, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ResourceNotFound creates a resource not found error
func ResourceNotFound(resourceType string) *Error {
	return New(ErrResourceNotFound, resourceType+" not found", http.StatusNotFound).
		WithDetails(map[string]interface{}{"resource_type": resourceType})
}

// ResourceConflict creates a resource conflict error
func ResourceConflict(message string) *Error {
	if message == "" {
		message = "Resource conflict"
	}
	return New(ErrResourceConflict, message, http.StatusConflict)
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
