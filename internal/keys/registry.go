package keys

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aigated/pkg/types"
)

const (
	keyPrefixTag = "ai_"
	prefixLen    = 12
)

// Registry authenticates and authorizes API keys against a Store.
type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// GenerateKey produces a new raw API key: "ai_" plus 32 random bytes,
// url-safe base64 without padding.
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return keyPrefixTag + base64.RawURLEncoding.EncodeToString(buf), nil
}

// DigestKey returns the hex SHA-256 digest of a raw key.
func DigestKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// KeyPrefix returns the short identifying prefix used in listings and logs.
func KeyPrefix(raw string) string {
	if len(raw) < prefixLen {
		return raw
	}
	return raw[:prefixLen]
}

// Create mints a new key record. The raw key is returned exactly once and
// never retrievable again; callers must persist it immediately.
func (r *Registry) Create(ctx context.Context, owner string, caps []types.Capability, pol Policy) (*Record, string, error) {
	if owner == "" {
		return nil, "", fmt.Errorf("owner is required")
	}
	if len(caps) == 0 {
		return nil, "", fmt.Errorf("at least one capability is required")
	}
	raw, err := GenerateKey()
	if err != nil {
		return nil, "", err
	}
	rec := &Record{
		ID:           uuid.NewString(),
		Digest:       DigestKey(raw),
		Prefix:       KeyPrefix(raw),
		Owner:        owner,
		Capabilities: append([]types.Capability(nil), caps...),
		Policy:       pol,
		Status:       StatusActive,
		CreatedAt:    time.Now(),
	}
	if err := r.store.Insert(ctx, rec); err != nil {
		return nil, "", err
	}
	return rec, raw, nil
}

// Authenticate resolves a raw key to its active record. Missing, unknown
// and revoked keys all fail with an auth error; the digest comparison is
// constant-time. Successful authentication counts as one use.
func (r *Registry) Authenticate(ctx context.Context, rawKey string) (*Record, error) {
	if rawKey == "" {
		return nil, authError{reason: "missing key"}
	}
	digest := DigestKey(rawKey)
	rec, err := r.store.GetByDigest(ctx, digest)
	if err != nil {
		if IsNotFound(err) {
			return nil, authError{reason: "invalid key"}
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(rec.Digest), []byte(digest)) != 1 {
		return nil, authError{reason: "invalid key"}
	}
	if rec.Status != StatusActive {
		return nil, authError{reason: "revoked key"}
	}
	if err := r.store.Touch(ctx, rec.ID); err != nil {
		return nil, err
	}
	rec.UsageCount++
	return rec, nil
}

// Authorize checks that the record grants the capability.
func (r *Registry) Authorize(rec *Record, c types.Capability) error {
	if !rec.Has(c) {
		return permissionDeniedError{capability: c}
	}
	return nil
}

// Revoke marks the key revoked. Subsequent Authenticate calls fail even if
// the key authenticated moments earlier.
func (r *Registry) Revoke(ctx context.Context, id string) error {
	return r.store.SetStatus(ctx, id, StatusRevoked)
}

// Activate re-enables a previously revoked key.
func (r *Registry) Activate(ctx context.Context, id string) error {
	return r.store.SetStatus(ctx, id, StatusActive)
}

// List returns all records, newest first.
func (r *Registry) List(ctx context.Context) ([]*Record, error) {
	return r.store.List(ctx)
}
