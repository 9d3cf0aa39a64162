package stats

import (
	"sync"
	"testing"
)

func TestTrackerCounts(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordProbe("axfr")
	tracker.RecordProbe("axfr")
	tracker.RecordProbe("mx")
	tracker.RecordNames("dns", 3)
	tracker.RecordNames("crt.sh", 5)
	tracker.RecordNames("dns", 2)

	snap := tracker.Snapshot()
	if snap.Probes["axfr"] != 2 || snap.Probes["mx"] != 1 {
		t.Fatalf("unexpected probe counts: %+v", snap.Probes)
	}
	if snap.TotalProbes() != 3 {
		t.Fatalf("TotalProbes = %d, want 3", snap.TotalProbes())
	}
	if snap.Sources["dns"] != 5 || snap.Sources["crt.sh"] != 5 {
		t.Fatalf("unexpected source counts: %+v", snap.Sources)
	}

	sources := snap.SourceNames()
	if len(sources) != 2 || sources[0] != "crt.sh" || sources[1] != "dns" {
		t.Fatalf("unexpected source order: %v", sources)
	}
}

func TestTrackerConcurrentRecording(t *testing.T) {
	tracker := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.RecordProbe("http")
			tracker.RecordNames("crt.sh", 1)
		}()
	}
	wg.Wait()

	snap := tracker.Snapshot()
	if snap.Probes["http"] != 50 || snap.Sources["crt.sh"] != 50 {
		t.Fatalf("lost updates: %+v %+v", snap.Probes, snap.Sources)
	}
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tracker *Tracker
	tracker.RecordProbe("axfr")
	tracker.RecordNames("dns", 1)
	snap := tracker.Snapshot()
	if snap.TotalProbes() != 0 || len(snap.Sources) != 0 {
		t.Fatalf("nil tracker produced counters: %+v", snap)
	}
}
