package keys

import (
	"time"

	"aigated/pkg/types"
)

// Status is the lifecycle state of an API key record. Records are never
// deleted, only revoked, to preserve audit history.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Policy is the per-key rate limit: Requests per Window.
// Zero values mean "use the server default".
type Policy struct {
	Requests int
	Window   time.Duration
}

// Record is one API key. The raw key is never stored, only its SHA-256
// digest; Prefix identifies the key in listings and logs.
type Record struct {
	ID           string
	Digest       string
	Prefix       string
	Owner        string
	Capabilities []types.Capability
	Policy       Policy
	Status       Status
	UsageCount   int64
	CreatedAt    time.Time
	LastUsedAt   time.Time
}

// Has reports whether the record grants the capability.
func (r *Record) Has(c types.Capability) bool {
	for _, have := range r.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Info projects the record into its admin-visible view. The digest is
// deliberately absent.
func (r *Record) Info() types.KeyInfo {
	caps := make([]string, len(r.Capabilities))
	for i, c := range r.Capabilities {
		caps[i] = string(c)
	}
	info := types.KeyInfo{
		ID:            r.ID,
		KeyPrefix:     r.Prefix,
		Owner:         r.Owner,
		Capabilities:  caps,
		Status:        string(r.Status),
		RateLimit:     r.Policy.Requests,
		WindowSeconds: int(r.Policy.Window / time.Second),
		UsageCount:    r.UsageCount,
		CreatedAtUnix: r.CreatedAt.Unix(),
	}
	if !r.LastUsedAt.IsZero() {
		info.LastUsedUnix = r.LastUsedAt.Unix()
	}
	return info
}
