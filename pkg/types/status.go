package types

// SlotStatus summarizes one managed model slot for /status.
type SlotStatus struct {
	ModelID       string     `json:"model_id"`
	Capability    Capability `json:"capability"`
	State         string     `json:"state"`
	Refs          int        `json:"refs"`
	EstMB         int        `json:"est_mb"`
	LastUsedUnix  int64      `json:"last_used_unix"`
	QueueLen      int        `json:"queue_len"`
	Inflight      int        `json:"inflight"`
	MaxQueueDepth int        `json:"max_queue_depth"`
}

// StatusResponse is the detailed service status for GET /status.
type StatusResponse struct {
	State    string       `json:"state"`
	BudgetMB int          `json:"budget_mb"`
	UsedMB   int          `json:"used_mb"`
	MarginMB int          `json:"margin_mb"`
	Slots    []SlotStatus `json:"slots"`
	Error    string       `json:"error,omitempty"`
}
