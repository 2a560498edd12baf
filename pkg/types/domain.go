package types

// Capability is a named permission scope granted to an API key. Each
// inference endpoint family is guarded by exactly one capability.
type Capability string

const (
	CapGenerate   Capability = "generate"
	CapTranscribe Capability = "transcribe"
	CapEmbed      Capability = "embed"
	CapOCR        Capability = "ocr"
	CapBusiness   Capability = "business"
	CapAdmin      Capability = "admin"
)

// Capabilities lists every known capability in a stable order.
func Capabilities() []Capability {
	return []Capability{CapGenerate, CapTranscribe, CapEmbed, CapOCR, CapBusiness, CapAdmin}
}

// ParseCapability validates a capability name.
func ParseCapability(s string) (Capability, bool) {
	switch Capability(s) {
	case CapGenerate, CapTranscribe, CapEmbed, CapOCR, CapBusiness, CapAdmin:
		return Capability(s), true
	}
	return "", false
}

// Model describes a loadable inference model on disk.
type Model struct {
	// Stable identifier, e.g. "llm:mistral-7b".
	ID string `json:"id"`
	// Human-friendly name.
	Name string `json:"name"`
	// Capability this model serves.
	Capability Capability `json:"capability"`
	// Path to the model file on disk.
	Path string `json:"path"`
	// Estimated resident footprint in MB. Zero means "estimate from file size".
	EstMB int `json:"est_mb,omitempty"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}
