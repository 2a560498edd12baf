package manager

import (
	"time"

	"aigated/internal/backend"
	"aigated/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultConcurrency   = 1
	defaultLoadTimeout   = 2 * time.Minute
	defaultDrainTimeout  = 5 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry []types.Model
	// Engines maps each capability to its inference backend.
	Engines map[types.Capability]backend.Engine
	// BudgetMB bounds the summed footprint of loaded models (0 = unlimited).
	BudgetMB int
	// MarginMB is memory kept free under the budget.
	MarginMB int
	// DefaultModels maps a capability to the model id used when requests
	// omit one.
	DefaultModels map[types.Capability]string
	// Concurrency maps a capability to its maximum concurrent executions.
	Concurrency   map[types.Capability]int
	MaxQueueDepth int
	MaxWait       time.Duration
	LoadTimeout   time.Duration
	DrainTimeout  time.Duration
	// Publisher receives lifecycle events; nil drops them.
	Publisher EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		registry:      cfg.Registry,
		engines:       cfg.Engines,
		budgetMB:      cfg.BudgetMB,
		marginMB:      cfg.MarginMB,
		defaultModels: cfg.DefaultModels,
		concurrency:   cfg.Concurrency,
		slots:         make(map[string]*slot),
		publisher:     cfg.Publisher,
	}
	if m.engines == nil {
		m.engines = make(map[types.Capability]backend.Engine)
	}
	if m.defaultModels == nil {
		m.defaultModels = make(map[types.Capability]string)
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if cfg.LoadTimeout <= 0 {
		m.loadTimeout = defaultLoadTimeout
	} else {
		m.loadTimeout = cfg.LoadTimeout
	}
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	m.startTime = time.Now()
	return m
}

// capConcurrency returns the execution cap for a capability.
func (m *Manager) capConcurrency(c types.Capability) int {
	if n, ok := m.concurrency[c]; ok && n > 0 {
		return n
	}
	return defaultConcurrency
}
