package matcher

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Outcome is where an image ended up.
type Outcome string

const (
	OutcomeBadge     Outcome = "badge"
	OutcomePhoto     Outcome = "photo"
	OutcomeUnmatched Outcome = "unmatched"
)

// Decision reasons
const (
	ReasonBadgeText      = "badge text"
	ReasonLastRemaining  = "last remaining name"
	ReasonLookahead      = "lookahead face match"
	ReasonLookaheadBadge = "lookahead face match with badge text"
	ReasonNearbyBadge    = "face match with nearby badge"
	ReasonNoFace         = "no face"
	ReasonNoBadgeFace    = "no face on badge"
	ReasonNoMatch        = "no nearby badge matched"
	ReasonNotProcessed   = "not processed"
)

// Decision records the final location of one input image.
type Decision struct {
	Index       int     `yaml:"index"`
	Source      string  `yaml:"source"`
	Outcome     Outcome `yaml:"outcome"`
	Name        string  `yaml:"name,omitempty"`
	Destination string  `yaml:"destination"`
	Reason      string  `yaml:"reason"`
}

// NameTotal counts the outputs attributed to one person.
type NameTotal struct {
	Name   string `yaml:"name"`
	Badges int    `yaml:"badges"`
	Photos int    `yaml:"photos"`
}

// Report describes a completed run.
type Report struct {
	RunID      string     `yaml:"run_id"`
	StartedAt  time.Time  `yaml:"started_at"`
	FinishedAt time.Time  `yaml:"finished_at"`
	Images     int        `yaml:"images"`
	Decisions  []Decision `yaml:"decisions"`
}

// Totals returns per-name output counts in order of first appearance.
func (r *Report) Totals() []NameTotal {
	var totals []NameTotal
	idx := make(map[string]int)
	for _, d := range r.Decisions {
		if d.Outcome == OutcomeUnmatched {
			continue
		}
		i, ok := idx[d.Name]
		if !ok {
			i = len(totals)
			idx[d.Name] = i
			totals = append(totals, NameTotal{Name: d.Name})
		}
		if d.Outcome == OutcomeBadge {
			totals[i].Badges++
		} else {
			totals[i].Photos++
		}
	}
	return totals
}

// Unmatched returns the sources copied to the unmatched directory.
func (r *Report) Unmatched() []string {
	var out []string
	for _, d := range r.Decisions {
		if d.Outcome == OutcomeUnmatched {
			out = append(out, d.Source)
		}
	}
	return out
}

// Count returns the number of decisions with the given outcome.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, d := range r.Decisions {
		if d.Outcome == o {
			n++
		}
	}
	return n
}

// WriteYAML saves the report as a YAML manifest.
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
