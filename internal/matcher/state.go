package matcher

// State is the bookkeeping shared by every step of one run. All sets only
// grow and badge counts are never lowered.
type State struct {
	used        map[int]struct{}
	badgeCounts map[string]int
	assigned    map[string]struct{}
}

func NewState() *State {
	return &State{
		used:        make(map[int]struct{}),
		badgeCounts: make(map[string]int),
		assigned:    make(map[string]struct{}),
	}
}

// MarkUsed records that the image at idx has its final location. It returns
// false if the image was already used.
func (s *State) MarkUsed(idx int) bool {
	if _, ok := s.used[idx]; ok {
		return false
	}
	s.used[idx] = struct{}{}
	return true
}

func (s *State) IsUsed(idx int) bool {
	_, ok := s.used[idx]
	return ok
}

func (s *State) UsedCount() int {
	return len(s.used)
}

// IncrementBadgeCount bumps the badge count for name and returns the new value.
func (s *State) IncrementBadgeCount(name string) int {
	s.badgeCounts[name]++
	return s.badgeCounts[name]
}

// SetBadgeCount raises the badge count for name to n. Lower values are ignored.
func (s *State) SetBadgeCount(name string, n int) {
	if n > s.badgeCounts[name] {
		s.badgeCounts[name] = n
	}
}

func (s *State) BadgeCount(name string) int {
	return s.badgeCounts[name]
}

func (s *State) MarkAssigned(name string) {
	s.assigned[name] = struct{}{}
}

func (s *State) IsAssigned(name string) bool {
	_, ok := s.assigned[name]
	return ok
}

// Remaining returns the roster names that have no badge yet, in roster order.
func (s *State) Remaining(names []string) []string {
	var remaining []string
	for _, n := range names {
		if !s.IsAssigned(n) {
			remaining = append(remaining, n)
		}
	}
	return remaining
}
