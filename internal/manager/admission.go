package manager

import (
	"context"
	"time"
)

// Admit reserves a queue slot and then an execution slot for the model.
// Entries are served in arrival order; waits are bounded by the manager's
// max wait and by ctx. Returns a release func to be deferred.
func (m *Manager) Admit(ctx context.Context, modelID string) (func(), error) {
	m.mu.RLock()
	s := m.slots[modelID]
	m.mu.RUnlock()
	if s == nil {
		return func() {}, ErrModelNotFound(modelID)
	}

	// Fast path: respect an already-canceled context.
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	// Reserve a waiting-room slot; a full queue that stays full past the
	// deadline is backpressure.
	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case s.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{modelID: modelID}
	}

	// Wait for an execution slot.
	acquired := false
	defer func() {
		if !acquired {
			<-s.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(m.maxWait)
	defer timer2.Stop()
	select {
	case s.genCh <- struct{}{}:
		acquired = true
		m.mu.Lock()
		s.lastUsed = time.Now()
		m.mu.Unlock()
		return func() { <-s.genCh; <-s.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		return func() {}, waitTimeoutError{modelID: modelID}
	}
}
