// Package ratelimit provides per-key rolling-window request throttling.
// The default limiter keeps windows in memory; a redis-backed limiter is
// available for deployments that already run redis.
package ratelimit

import (
	"context"
	"time"

	"aigated/pkg/types"
)

// Scope controls whether a key's quota is shared across capabilities or
// tracked per (key, capability) pair.
type Scope string

const (
	ScopeKey           Scope = "key"
	ScopeKeyCapability Scope = "key_capability"
)

// ParseScope maps the config string to a Scope, defaulting to per-key.
func ParseScope(s string) Scope {
	if s == string(ScopeKeyCapability) {
		return ScopeKeyCapability
	}
	return ScopeKey
}

// BucketFor derives the window identifier for a request.
func BucketFor(scope Scope, keyID string, capability types.Capability) string {
	if scope == ScopeKeyCapability {
		return keyID + ":" + string(capability)
	}
	return keyID
}

// Result reports the outcome of one consumption attempt.
type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long the caller should wait before retrying.
	// Only meaningful when Allowed is false.
	RetryAfter time.Duration
}

// Limiter consumes one unit of quota per admitted request. Consumption is
// atomic: two concurrent calls cannot both succeed on the last unit.
type Limiter interface {
	Allow(ctx context.Context, bucket string, limit int, window time.Duration) (Result, error)
	Close() error
}
