package manager

import "time"

// evictUntilFits unloads least-recently-used idle slots until requiredMB
// fits within budget + margin. A slot is idle when it is ready with zero
// references and no queued or in-flight work. If nothing is evictable the
// load fails with resource exhaustion rather than blocking indefinitely.
func (m *Manager) evictUntilFits(forModelID string, requiredMB int) error {
	for {
		m.mu.Lock()
		if m.usedEstMB+requiredMB+m.marginMB <= m.budgetMB {
			m.mu.Unlock()
			return nil
		}
		var lru *slot
		for _, s := range m.slots {
			if s.id == forModelID || s.state != slotReady {
				continue
			}
			if s.refs > 0 || len(s.genCh) > 0 || len(s.queueCh) > 0 {
				continue
			}
			if lru == nil || s.lastUsed.Before(lru.lastUsed) {
				lru = s
			}
		}
		if lru == nil {
			m.mu.Unlock()
			return ErrModelUnavailable(forModelID, reasonResourceExhausted)
		}
		lru.state = slotUnloading
		rt := lru.runtime
		lru.runtime = nil
		m.usedEstMB -= lru.estMB
		if m.usedEstMB < 0 {
			m.usedEstMB = 0
		}
		delete(m.slots, lru.id)
		m.mu.Unlock()

		// Close outside the lock; the runtime may release memory slowly.
		if rt != nil {
			_ = rt.Close()
		}
		m.publisher.Publish(Event{Name: "evict", ModelID: lru.id, Fields: map[string]any{
			"est_mb":    lru.estMB,
			"last_used": lru.lastUsed.Unix(),
			"idle_for":  time.Since(lru.lastUsed).String(),
		}})
	}
}
