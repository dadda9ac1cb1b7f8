package face

import (
	"fmt"

	"github.com/kozaktomas/badge-rename/internal/config"
)

// NewDetector creates the detector selected in the configuration.
func NewDetector(cfg *config.Config) (Detector, error) {
	switch cfg.Face.Detector {
	case "haar":
		d, err := NewHaarDetector(cfg.Face.CascadePath, cfg.Face.ScaleFactor, cfg.Face.MinNeighbors)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "server":
		return NewServerDetector(cfg.Embedding.URL), nil
	default:
		return nil, fmt.Errorf("unknown face detector %q", cfg.Face.Detector)
	}
}
