package matcher

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestState_MarkUsed(t *testing.T) {
	s := NewState()
	if s.IsUsed(3) {
		t.Fatal("fresh state reports image as used")
	}
	if !s.MarkUsed(3) {
		t.Error("first MarkUsed should return true")
	}
	if s.MarkUsed(3) {
		t.Error("second MarkUsed should return false")
	}
	if !s.IsUsed(3) || s.UsedCount() != 1 {
		t.Errorf("unexpected state: used=%v count=%d", s.IsUsed(3), s.UsedCount())
	}
}

func TestState_BadgeCountsOnlyGrow(t *testing.T) {
	s := NewState()
	if got := s.BadgeCount("Alice"); got != 0 {
		t.Errorf("default count = %d", got)
	}
	if got := s.IncrementBadgeCount("Alice"); got != 1 {
		t.Errorf("first increment = %d", got)
	}
	if got := s.IncrementBadgeCount("Alice"); got != 2 {
		t.Errorf("second increment = %d", got)
	}

	s.SetBadgeCount("Alice", 1)
	if got := s.BadgeCount("Alice"); got != 2 {
		t.Errorf("count lowered to %d", got)
	}
	s.SetBadgeCount("Alice", 5)
	if got := s.BadgeCount("Alice"); got != 5 {
		t.Errorf("count = %d; want 5", got)
	}
}

func TestState_Remaining(t *testing.T) {
	roster := []string{"Alice", "Bob", "Carol"}
	s := NewState()

	if got := s.Remaining(roster); !slices.Equal(got, roster) {
		t.Errorf("Remaining = %v", got)
	}

	s.MarkAssigned("Bob")
	s.MarkAssigned("Bob")
	if !s.IsAssigned("Bob") {
		t.Error("Bob should be assigned")
	}
	if got := s.Remaining(roster); !slices.Equal(got, []string{"Alice", "Carol"}) {
		t.Errorf("Remaining = %v", got)
	}
}

func TestReport(t *testing.T) {
	r := &Report{
		RunID:  "run-1",
		Images: 4,
		Decisions: []Decision{
			{Index: 0, Source: "a.jpg", Outcome: OutcomeBadge, Name: "Alice", Destination: "out/Alice-badge.jpeg"},
			{Index: 1, Source: "b.jpg", Outcome: OutcomePhoto, Name: "Alice", Destination: "out/Alice-1.jpeg"},
			{Index: 3, Source: "d.jpg", Outcome: OutcomePhoto, Name: "Bob", Destination: "out/Bob-1.jpeg"},
			{Index: 2, Source: "c.jpg", Outcome: OutcomeUnmatched, Destination: "out/unmatched/c.jpg"},
		},
	}

	totals := r.Totals()
	expected := []NameTotal{{Name: "Alice", Badges: 1, Photos: 1}, {Name: "Bob", Photos: 1}}
	if !slices.Equal(totals, expected) {
		t.Errorf("Totals = %+v", totals)
	}
	if got := r.Unmatched(); !slices.Equal(got, []string{"c.jpg"}) {
		t.Errorf("Unmatched = %v", got)
	}
	if r.Count(OutcomePhoto) != 2 {
		t.Errorf("Count(photo) = %d", r.Count(OutcomePhoto))
	}

	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := r.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var back Report
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("manifest is not valid YAML: %v", err)
	}
	if back.RunID != "run-1" || len(back.Decisions) != 4 || back.Decisions[2].Name != "Bob" {
		t.Errorf("unexpected manifest contents: %+v", back)
	}
}
