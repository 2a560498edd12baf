package manager

import (
	"context"
	"time"
)

// Acquire returns a handle on a ready slot for modelID, loading the model
// first if needed. Concurrent first-time callers for the same id share one
// load (single-flight). The caller must Release the handle.
func (m *Manager) Acquire(ctx context.Context, modelID string) (*Handle, error) {
	mdl, ok := m.getModelByID(modelID)
	if !ok {
		return nil, ErrModelNotFound(modelID)
	}

	// A successful load can still race with eviction triggered by another
	// model's load, so try the ready fast path once more after loading.
	for attempt := 0; attempt < 2; attempt++ {
		if h := m.tryRef(modelID); h != nil {
			return h, nil
		}

		ch := m.loads.DoChan(modelID, func() (any, error) {
			// The load is shared across callers; detach it from any one
			// caller's cancellation and bound it on its own.
			loadCtx, cancel := context.WithTimeout(context.Background(), m.loadTimeout)
			defer cancel()
			return nil, m.loadSlot(loadCtx, modelID)
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, ErrModelUnavailable(mdl.ID, "slot evicted during load")
}

// tryRef takes a reference if the slot is ready.
func (m *Manager) tryRef(modelID string) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[modelID]
	if s == nil || s.state != slotReady {
		return nil
	}
	s.refs++
	s.lastUsed = time.Now()
	return &Handle{ModelID: modelID, Runtime: s.runtime, slot: s}
}

// Release drops a handle's reference. At zero references the slot becomes
// eviction-eligible but stays loaded until another model needs the budget.
func (m *Manager) Release(h *Handle) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[h.ModelID]
	if s == nil || s != h.slot {
		// Slot was force-unloaded during shutdown; nothing to account.
		return
	}
	if s.refs > 0 {
		s.refs--
	}
	s.lastUsed = time.Now()
}

// loadSlot performs the exclusive load for one model id. Exactly one
// loadSlot runs per id at a time (guaranteed by the singleflight group).
func (m *Manager) loadSlot(ctx context.Context, modelID string) error {
	mdl, ok := m.getModelByID(modelID)
	if !ok {
		return ErrModelNotFound(modelID)
	}

	m.mu.Lock()
	s := m.slots[modelID]
	if s != nil && s.state == slotReady {
		m.mu.Unlock()
		return nil
	}
	if s == nil {
		s = &slot{
			id:         modelID,
			capability: mdl.Capability,
			state:      slotUnloaded,
			estMB:      mdl.EstMB,
			genCh:      make(chan struct{}, m.capConcurrency(mdl.Capability)),
			queueCh:    make(chan struct{}, m.maxQueueDepth),
		}
		m.slots[modelID] = s
	}
	s.state = slotLoading
	s.loadErr = ""
	s.lastUsed = time.Now()
	m.mu.Unlock()

	m.publisher.Publish(Event{Name: "load_start", ModelID: modelID})

	if m.budgetMB > 0 {
		if err := m.evictUntilFits(modelID, mdl.EstMB); err != nil {
			m.failSlot(s, err.Error())
			m.publisher.Publish(Event{Name: "load_budget_fail", ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
			return err
		}
	}

	engine, ok := m.engines[mdl.Capability]
	if !ok {
		err := ErrModelUnavailable(modelID, "no engine for capability "+string(mdl.Capability))
		m.failSlot(s, err.Error())
		return err
	}

	rt, err := engine.Load(ctx, mdl)
	if err != nil {
		m.failSlot(s, err.Error())
		m.publisher.Publish(Event{Name: "load_failed", ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
		return ErrModelUnavailable(modelID, "load failed: "+err.Error())
	}

	m.mu.Lock()
	s.state = slotReady
	s.runtime = rt
	s.lastUsed = time.Now()
	m.usedEstMB += mdl.EstMB
	m.mu.Unlock()
	m.publisher.Publish(Event{Name: "load_ready", ModelID: modelID, Fields: map[string]any{"est_mb": mdl.EstMB}})
	return nil
}

// failSlot marks a slot failed. A later Acquire retries the load.
func (m *Manager) failSlot(s *slot, reason string) {
	m.mu.Lock()
	s.state = slotFailed
	s.loadErr = reason
	m.mu.Unlock()
}
