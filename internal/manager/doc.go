// Package manager owns model lifecycle and admission control. It is
// structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults.
//   - types.go: slot state machine and the Handle type.
//   - errors.go: error types and helpers (IsModelUnavailable, IsTooBusy, ...).
//   - acquire.go: Acquire/Release with single-flight loading.
//   - evict.go: LRU eviction to fit within the memory budget.
//   - admission.go: per-slot queueing and execution admission.
//   - status.go: Status reporting.
//   - unload.go: graceful drain and shutdown.
//   - events.go: lifecycle event publishing.
//
// External packages should treat this package as the orchestration layer and
// use public methods only. Internal types are subject to change.
package manager
