package manager

import (
	"aigated/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := types.StatusResponse{
		BudgetMB: m.budgetMB,
		UsedMB:   m.usedEstMB,
		MarginMB: m.marginMB,
		State:    "idle",
	}
	resp.Slots = make([]types.SlotStatus, 0, len(m.slots))
	for _, s := range m.slots {
		if s.state == slotReady {
			resp.State = "ready"
		}
		if s.state == slotLoading && resp.State != "ready" {
			resp.State = "loading"
		}
		resp.Slots = append(resp.Slots, types.SlotStatus{
			ModelID:       s.id,
			Capability:    s.capability,
			State:         string(s.state),
			Refs:          s.refs,
			EstMB:         s.estMB,
			LastUsedUnix:  s.lastUsed.Unix(),
			QueueLen:      len(s.queueCh),
			Inflight:      len(s.genCh),
			MaxQueueDepth: cap(s.queueCh),
		})
	}
	return resp
}
