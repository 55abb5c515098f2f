package utils

import (
	"time"
)

// Reservation time constants
const (
	// DefaultReservationTTL is how long a reserved code stays claimable (15 minutes)
	DefaultReservationTTL = 15 * time.Minute

	// MaxReservationTTL is the ceiling for client-supplied TTLs (24 hours)
	MaxReservationTTL = 24 * time.Hour

	// ShortCodeCacheTTL is how long resolved tenant/category short codes stay cached (5 minutes)
	ShortCodeCacheTTL = 5 * time.Minute
)

// Cache key kinds for the short-code read-through cache
const (
	TenantCodeCacheKey   = "tenant_code"
	CategoryCodeCacheKey = "category_code"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// ContextKey is the type for request-scoped context values
type ContextKey string

// Request context keys
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)
