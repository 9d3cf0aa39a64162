// Package stats collects run counters for the end-of-run summary.
package stats

import (
	"sort"
	"sync"
	"time"
)

// Tracker counts network probes and discovered names per source. All methods
// are safe for concurrent use and tolerate a nil receiver, so components can
// record unconditionally.
type Tracker struct {
	mu      sync.Mutex
	start   time.Time
	probes  map[string]int
	sources map[string]int
}

// Snapshot is a point-in-time copy of the tracked counters.
type Snapshot struct {
	Probes   map[string]int
	Sources  map[string]int
	Duration time.Duration
}

func NewTracker() *Tracker {
	return &Tracker{
		start:   time.Now(),
		probes:  make(map[string]int),
		sources: make(map[string]int),
	}
}

// RecordProbe counts one outbound network operation of the given kind
// (ns, axfr, wildcard, mx, http).
func (t *Tracker) RecordProbe(kind string) {
	if t == nil || kind == "" {
		return
	}
	t.mu.Lock()
	t.probes[kind]++
	t.mu.Unlock()
}

// RecordNames counts how many names a source contributed.
func (t *Tracker) RecordNames(source string, count int) {
	if t == nil || source == "" || count < 0 {
		return
	}
	t.mu.Lock()
	t.sources[source] += count
	t.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		Probes:   make(map[string]int, len(t.probes)),
		Sources:  make(map[string]int, len(t.sources)),
		Duration: time.Since(t.start),
	}
	for kind, count := range t.probes {
		snap.Probes[kind] = count
	}
	for source, count := range t.sources {
		snap.Sources[source] = count
	}
	return snap
}

// SourceNames returns the tracked source names in sorted order.
func (s Snapshot) SourceNames() []string {
	sources := make([]string, 0, len(s.Sources))
	for source := range s.Sources {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}

// TotalProbes sums every recorded probe kind.
func (s Snapshot) TotalProbes() int {
	total := 0
	for _, count := range s.Probes {
		total += count
	}
	return total
}
