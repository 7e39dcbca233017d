// Package progress tracks the per-security outcome of a multi-security
// report run so the CLI can summarize which securities made it into the
// artifact and which were skipped.
package progress

import (
	"fmt"
	"sort"
	"sync"
)

// State tracks which securities of a report run are pending, completed or
// failed. It is safe for concurrent use.
type State struct {
	// Expected contains the set of securities the run was asked to fetch.
	Expected map[string]struct{}
	// Completed contains the securities whose rows made it into the aggregate.
	Completed map[string]struct{}
	// Failed maps skipped securities to the reason they were skipped.
	Failed map[string]string
	// Done preserves the order in which securities finished successfully.
	Done []string
	// mu protects concurrent access to all fields
	mu sync.Mutex
}

// NewState creates a State with initialized maps.
func NewState() *State {
	return &State{
		Expected:  make(map[string]struct{}),
		Completed: make(map[string]struct{}),
		Failed:    make(map[string]string),
	}
}

// ExpectBatch marks the given securities as part of the run.
func (s *State) ExpectBatch(securities []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sec := range securities {
		s.Expected[sec] = struct{}{}
	}
}

// Complete marks a security as successfully fetched.
func (s *State) Complete(security string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.Expected[security]; !exists {
		s.Expected[security] = struct{}{}
	}
	s.Completed[security] = struct{}{}
	s.Done = append(s.Done, security)
}

// Fail marks a security as skipped with a reason.
func (s *State) Fail(security string, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.Expected[security]; !exists {
		s.Expected[security] = struct{}{}
	}
	s.Failed[security] = reason
}

// Counts returns how many securities completed, failed and were expected.
func (s *State) Counts() (completed, failed, expected int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Completed), len(s.Failed), len(s.Expected)
}

// FailedList returns the skipped securities with reasons, sorted by name.
func (s *State) FailedList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.Failed))
	for sec, reason := range s.Failed {
		out = append(out, fmt.Sprintf("%s: %s", sec, reason))
	}
	sort.Strings(out)
	return out
}
