package manager

import (
	"time"
)

// Unload drains a slot and removes it, releasing its memory.
// It refuses while references are held or work is queued, waiting up to the
// drain timeout before giving up.
func (m *Manager) Unload(modelID string) error {
	m.mu.Lock()
	s := m.slots[modelID]
	if s == nil {
		m.mu.Unlock()
		return ErrModelNotFound(modelID)
	}
	m.mu.Unlock()
	m.publisher.Publish(Event{Name: "unload_start", ModelID: modelID})

	deadline := time.Now().Add(m.drainTimeout)
	for {
		m.mu.RLock()
		idle := s.refs == 0 && len(s.genCh) == 0 && len(s.queueCh) == 0
		m.mu.RUnlock()
		if idle {
			break
		}
		if time.Now().After(deadline) {
			m.publisher.Publish(Event{Name: "unload_timeout", ModelID: modelID})
			return ErrModelUnavailable(modelID, "drain timed out")
		}
		time.Sleep(10 * time.Millisecond)
	}

	m.mu.Lock()
	if cur := m.slots[modelID]; cur != s {
		// Already unloaded (or replaced) by someone else.
		m.mu.Unlock()
		return nil
	}
	if s.refs > 0 {
		m.mu.Unlock()
		return ErrModelUnavailable(modelID, "slot busy")
	}
	// Only ready slots are counted in the footprint.
	accounted := s.state == slotReady
	s.state = slotUnloading
	rt := s.runtime
	s.runtime = nil
	if accounted {
		m.usedEstMB -= s.estMB
		if m.usedEstMB < 0 {
			m.usedEstMB = 0
		}
	}
	delete(m.slots, modelID)
	m.mu.Unlock()

	if rt != nil {
		_ = rt.Close()
	}
	m.publisher.Publish(Event{Name: "unload_done", ModelID: modelID})
	return nil
}

// Close unloads every slot; used during shutdown.
func (m *Manager) Close() error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.slots))
	for id := range m.slots {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		_ = m.Unload(id)
	}
	return nil
}
