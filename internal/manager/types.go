package manager

import (
	"time"

	"aigated/internal/backend"
	"aigated/pkg/types"
)

// slotState is the lifecycle state of one model slot.
type slotState string

const (
	slotUnloaded  slotState = "unloaded"
	slotLoading   slotState = "loading"
	slotReady     slotState = "ready"
	slotUnloading slotState = "unloading"
	slotFailed    slotState = "failed"
)

// slot tracks one loadable model. Invariants: refs may only be incremented
// while state is ready; the slot may only transition to unloading when refs
// is zero.
type slot struct {
	id         string
	capability types.Capability
	state      slotState
	estMB      int
	lastUsed   time.Time
	refs       int
	runtime    backend.Runtime
	loadErr    string
	// Admission primitives
	genCh   chan struct{} // buffered: concurrent executions for this slot
	queueCh chan struct{} // buffered: waiting-room slots
}

// Handle is a live reference to a ready model. Callers must Release it on
// every exit path.
type Handle struct {
	ModelID string
	Runtime backend.Runtime
	slot    *slot
}
