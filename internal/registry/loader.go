package registry

import (
	"fmt"
	"path/filepath"

	"aigated/internal/common/fsutil"
	"aigated/internal/config"
	"aigated/pkg/types"
)

// FromEntries builds the model registry from configuration entries.
// Paths are made absolute (with ~ expansion) and footprints without an
// explicit estimate are derived from the file size on disk.
func FromEntries(entries []config.ModelEntry) ([]types.Model, error) {
	models := make([]types.Model, 0, len(entries))
	for _, e := range entries {
		capability, ok := types.ParseCapability(e.Capability)
		if !ok {
			return nil, fmt.Errorf("model %s: unknown capability %q", e.ID, e.Capability)
		}
		if capability == types.CapAdmin {
			return nil, fmt.Errorf("model %s: admin is not a model capability", e.ID)
		}
		p, err := fsutil.ExpandHome(e.Path)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", e.ID, err)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("model %s: abs path: %w", e.ID, err)
		}
		name := e.Name
		if name == "" {
			name = e.ID
		}
		est := e.EstMB
		if est <= 0 {
			est = fsutil.FileSizeMB(abs)
		}
		models = append(models, types.Model{
			ID:         e.ID,
			Name:       name,
			Capability: capability,
			Path:       abs,
			EstMB:      est,
		})
	}
	return models, nil
}

// MaxFootprintMB returns the largest estimated footprint in the registry.
func MaxFootprintMB(models []types.Model) int {
	max := 0
	for _, m := range models {
		if m.EstMB > max {
			max = m.EstMB
		}
	}
	return max
}
