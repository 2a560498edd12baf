// Package gateway runs the per-request pipeline: authenticate, authorize,
// rate-limit, acquire the model, pass admission, invoke the backend. Each
// stage short-circuits with a typed error the HTTP layer maps to a status.
package gateway

import (
	"context"

	"github.com/rs/zerolog"

	"aigated/internal/backend"
	"aigated/internal/keys"
	"aigated/internal/manager"
	"aigated/internal/ratelimit"
	"aigated/pkg/types"
)

// Invoke runs one backend call against a ready runtime. It must not retain
// the runtime past its return.
type Invoke func(ctx context.Context, rt backend.Runtime) error

// Dispatcher wires the key registry, rate limiter and model manager into
// one request path.
type Dispatcher struct {
	keys    *keys.Registry
	limiter ratelimit.Limiter
	scope   ratelimit.Scope
	mgr     *manager.Manager
	log     zerolog.Logger
}

func New(reg *keys.Registry, lim ratelimit.Limiter, scope ratelimit.Scope, mgr *manager.Manager, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{keys: reg, limiter: lim, scope: scope, mgr: mgr, log: log}
}

// Manager exposes the underlying model manager for status endpoints.
func (d *Dispatcher) Manager() *manager.Manager { return d.mgr }

// Keys exposes the key registry for admin endpoints.
func (d *Dispatcher) Keys() *keys.Registry { return d.keys }

// Authorized authenticates the raw key and checks the capability. Used for
// endpoints that consume no model (admin, health probes).
func (d *Dispatcher) Authorized(ctx context.Context, rawKey string, c types.Capability) (*keys.Record, error) {
	rec, err := d.keys.Authenticate(ctx, rawKey)
	if err != nil {
		return nil, err
	}
	if err := d.keys.Authorize(rec, c); err != nil {
		return nil, err
	}
	return rec, nil
}

// Dispatch runs the full pipeline for one inference request. modelID may be
// empty; the capability's default model is used then. The invoke callback
// runs with the model referenced and an execution slot held; both are
// released on every exit path.
func (d *Dispatcher) Dispatch(ctx context.Context, rawKey string, c types.Capability, modelID string, invoke Invoke) error {
	rec, err := d.Authorized(ctx, rawKey, c)
	if err != nil {
		return err
	}

	if err := d.consume(ctx, rec, c); err != nil {
		return err
	}

	mdl, err := d.mgr.ResolveModel(c, modelID)
	if err != nil {
		return err
	}

	h, err := d.mgr.Acquire(ctx, mdl.ID)
	if err != nil {
		return err
	}
	defer d.mgr.Release(h)

	release, err := d.mgr.Admit(ctx, mdl.ID)
	if err != nil {
		return err
	}
	defer release()

	d.log.Debug().
		Str("key_id", rec.ID).
		Str("capability", string(c)).
		Str("model_id", mdl.ID).
		Msg("dispatch")
	return invoke(ctx, h.Runtime)
}

// consume takes one unit of the key's quota. Keys without a policy are
// unthrottled.
func (d *Dispatcher) consume(ctx context.Context, rec *keys.Record, c types.Capability) error {
	if d.limiter == nil || rec.Policy.Requests <= 0 {
		return nil
	}
	bucket := ratelimit.BucketFor(d.scope, rec.ID, c)
	res, err := d.limiter.Allow(ctx, bucket, rec.Policy.Requests, rec.Policy.Window)
	if err != nil {
		return err
	}
	if !res.Allowed {
		d.log.Warn().
			Str("key_id", rec.ID).
			Str("capability", string(c)).
			Dur("retry_after", res.RetryAfter).
			Msg("rate limit exceeded")
		return rateLimitError{retryAfter: res.RetryAfter}
	}
	return nil
}
