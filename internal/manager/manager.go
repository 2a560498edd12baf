package manager

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"aigated/internal/backend"
	"aigated/pkg/types"
)

// Manager tracks model slots under a memory budget and admits inference
// work per slot. Contention is scoped: the table lock protects only
// metadata transitions, never a load or an inference call.
type Manager struct {
	mu        sync.RWMutex
	slots     map[string]*slot
	usedEstMB int

	registry      []types.Model
	engines       map[types.Capability]backend.Engine
	budgetMB      int
	marginMB      int
	defaultModels map[types.Capability]string
	concurrency   map[types.Capability]int

	maxQueueDepth int
	maxWait       time.Duration
	loadTimeout   time.Duration
	drainTimeout  time.Duration

	loads     singleflight.Group
	publisher EventPublisher
	startTime time.Time
}

// Preflight validates fatal-only conditions that must fail at startup, not
// at request time.
func (m *Manager) Preflight() error {
	for _, mdl := range m.registry {
		if _, ok := m.engines[mdl.Capability]; !ok {
			return fmt.Errorf("no engine registered for capability %q (model %s)", mdl.Capability, mdl.ID)
		}
		if m.budgetMB > 0 && mdl.EstMB+m.marginMB > m.budgetMB {
			return fmt.Errorf("memory budget %dMB cannot fit model %s (%dMB + %dMB margin)",
				m.budgetMB, mdl.ID, mdl.EstMB, m.marginMB)
		}
	}
	for c, id := range m.defaultModels {
		mdl, ok := m.getModelByID(id)
		if !ok {
			return fmt.Errorf("default model %q for %s is not in the registry", id, c)
		}
		if mdl.Capability != c {
			return fmt.Errorf("default model %q serves %s, not %s", id, mdl.Capability, c)
		}
	}
	return nil
}

// Ready reports whether the manager can serve requests.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.engines) > 0
}

// ListModels returns a copy of the registry.
func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}

// DefaultModel resolves the configured default model id for a capability.
func (m *Manager) DefaultModel(c types.Capability) (string, bool) {
	id, ok := m.defaultModels[c]
	return id, ok
}

// ResolveModel maps a request's optional model id to a registry entry for
// the capability, falling back to the configured default.
func (m *Manager) ResolveModel(c types.Capability, requested string) (types.Model, error) {
	id := requested
	if id == "" {
		var ok bool
		if id, ok = m.defaultModels[c]; !ok {
			return types.Model{}, ErrModelNotFound("(no default for " + string(c) + ")")
		}
	}
	mdl, ok := m.getModelByID(id)
	if !ok {
		return types.Model{}, ErrModelNotFound(id)
	}
	if mdl.Capability != c {
		return types.Model{}, ErrModelNotFound(id)
	}
	return mdl, nil
}

func (m *Manager) getModelByID(id string) (types.Model, bool) {
	for _, mdl := range m.registry {
		if mdl.ID == id {
			return mdl, true
		}
	}
	return types.Model{}, false
}
