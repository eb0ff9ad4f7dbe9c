package jobstats

import (
	"testing"
	"time"
)

func TestCollectorRecordsRuns(t *testing.T) {
	c := NewCollector()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return at }

	c.RecordRun("rank", 10, 250*time.Millisecond)
	c.RecordRun("rank", 5, 100*time.Millisecond)
	c.RecordFailure("poll-server")

	reports := c.Snapshot()
	if len(reports) != 2 {
		t.Fatalf("unexpected report count: got=%d want=2", len(reports))
	}

	byName := make(map[string]JobReport, len(reports))
	for _, r := range reports {
		byName[r.Name] = r
	}

	rank := byName["rank"]
	if rank.Runs != 2 || rank.Items != 15 {
		t.Fatalf("unexpected rank counters: %+v", rank)
	}
	if !rank.LastSuccessAt.Equal(at) {
		t.Fatalf("unexpected last success: %v", rank.LastSuccessAt)
	}
	if rank.LastDuration != 100 {
		t.Fatalf("unexpected last duration: %d", rank.LastDuration)
	}

	if poll := byName["poll-server"]; poll.Failures != 1 || poll.Runs != 0 {
		t.Fatalf("unexpected poll counters: %+v", poll)
	}
}

func TestCollectorSnapshotIsCopy(t *testing.T) {
	c := NewCollector()
	c.RecordRun("reap", 1, time.Millisecond)

	first := c.Snapshot()
	first[0].Runs = 99

	second := c.Snapshot()
	if second[0].Runs != 1 {
		t.Fatalf("snapshot must not alias internal state: %+v", second[0])
	}
}
