package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no probe has been recorded yet.
	ErrNotFound = errors.New("no probe results recorded")
)

// ProbeStatus is the outcome of a single warehouse probe.
type ProbeStatus string

const (
	ProbeOK            ProbeStatus = "ok"
	ProbeFailed        ProbeStatus = "error"
	ProbeUninitialized ProbeStatus = "uninitialized"
	ProbeCircuitOpen   ProbeStatus = "circuit_open"
)

// ProbeResult records one warehouse probe.
type ProbeResult struct {
	Timestamp time.Time     `json:"timestamp"` // always UTC
	Status    ProbeStatus   `json:"status"`
	Latency   time.Duration `json:"latencyNs"`
	Error     string        `json:"error,omitempty"`
}

// MemoryStore is a concurrency-safe in-memory history of probe results.
type MemoryStore struct {
	mu      sync.RWMutex
	history []ProbeResult

	// retention configuration
	maxHistory int           // max number of results kept
	maxAge     time.Duration // optional max age for results
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Save appends a result and enforces retention.
func (s *MemoryStore) Save(result ProbeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, result)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		over := len(s.history) - s.maxHistory
		s.history = append([]ProbeResult(nil), s.history[over:]...)
	}

	// Enforce retention by age. The newest result is always kept.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.history)-1; i++ {
			if !s.history[i].Timestamp.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.history = s.history[i:]
		}
	}
}

// Latest returns the most recent result.
func (s *MemoryStore) Latest() (ProbeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.history) == 0 {
		return ProbeResult{}, ErrNotFound
	}
	return s.history[len(s.history)-1], nil
}

// Range returns all results between from and to (inclusive).
func (s *MemoryStore) Range(from, to time.Time) []ProbeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ProbeResult
	for _, r := range s.history {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			result = append(result, r)
		}
	}
	return result
}

// FailuresSince counts non-ok results recorded at or after since.
func (s *MemoryStore) FailuresSince(since time.Time) int {
	n := 0
	for _, r := range s.Range(since, time.Now()) {
		if r.Status != ProbeOK {
			n++
		}
	}
	return n
}
