package audit

import (
	"path/filepath"
	"testing"
	"time"
)

// writeTestLog creates a temp decision log with known entries.
func writeTestLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	base := time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Timestamp: base.Format(TimestampFormat), EventID: "e-1", EventType: EventNavigation, URL: "https://example.com", Band: "safe", Outcome: "allowed"},
		{Timestamp: base.Add(2 * time.Second).Format(TimestampFormat), EventID: "e-2", EventType: EventNavigation, URL: "https://paypa1.com", Band: "dangerous", Score: 0.55, Outcome: "blocked", Reason: "typosquat of paypal"},
		{Timestamp: base.Add(4 * time.Second).Format(TimestampFormat), EventID: "e-3", EventType: EventSubmission, FormOrigin: "https://shop.example", ActionOrigin: "https://pay.example", Outcome: "allowed"},
		{Timestamp: base.Add(6 * time.Second).Format(TimestampFormat), EventID: "e-4", EventType: EventNavigation, URL: "https://secure-bank.xyz", Band: "suspicious", Score: 0.2, Outcome: "warned_and_allowed"},
		{Timestamp: base.Add(8 * time.Second).Format(TimestampFormat), EventID: "e-5", EventType: EventNavigation, URL: "https://evil.test", Band: "suspicious", Outcome: "allowed", Degraded: true, Reason: "policy store unavailable"},
		{Timestamp: base.Add(10 * time.Second).Format(TimestampFormat), EventID: "e-6", EventType: EventSubmission, FormOrigin: "https://login.example", ActionOrigin: "http://harvest.test", Outcome: "blocked"},
	}

	for _, e := range entries {
		if err := log.Record(e); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestReplayFiltersByEventType(t *testing.T) {
	path := writeTestLog(t)

	result, err := Replay(path, Filter{EventType: EventSubmission})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Entries) != 2 {
		t.Errorf("expected 2 submission entries, got %d", len(result.Entries))
	}
	for _, e := range result.Entries {
		if e.EventType != EventSubmission {
			t.Errorf("unexpected event type: %s", e.EventType)
		}
	}
}

func TestReplayTimeRangeFrom(t *testing.T) {
	path := writeTestLog(t)

	from := time.Date(2025, 1, 15, 14, 0, 5, 0, time.UTC)
	result, err := Replay(path, Filter{From: from})
	if err != nil {
		t.Fatal(err)
	}

	// Entries at 14:00:06, 14:00:08, 14:00:10
	if len(result.Entries) != 3 {
		t.Errorf("expected 3 entries after from filter, got %d", len(result.Entries))
	}
}

func TestReplayTimeRangeTo(t *testing.T) {
	path := writeTestLog(t)

	to := time.Date(2025, 1, 15, 14, 0, 3, 0, time.UTC)
	result, err := Replay(path, Filter{To: to})
	if err != nil {
		t.Fatal(err)
	}

	// Entries at 14:00:00, 14:00:02
	if len(result.Entries) != 2 {
		t.Errorf("expected 2 entries before to filter, got %d", len(result.Entries))
	}
}

func TestReplayTimeRangeBoth(t *testing.T) {
	path := writeTestLog(t)

	from := time.Date(2025, 1, 15, 14, 0, 1, 0, time.UTC)
	to := time.Date(2025, 1, 15, 14, 0, 7, 0, time.UTC)
	result, err := Replay(path, Filter{From: from, To: to})
	if err != nil {
		t.Fatal(err)
	}

	// Entries at 14:00:02, 14:00:04, 14:00:06
	if len(result.Entries) != 3 {
		t.Errorf("expected 3 entries in time window, got %d", len(result.Entries))
	}
}

func TestReplayEmptyResult(t *testing.T) {
	path := writeTestLog(t)

	result, err := Replay(path, Filter{EventType: EventSweep})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Entries) != 0 {
		t.Errorf("expected 0 sweep entries, got %d", len(result.Entries))
	}
	if result.Summary.Total != 0 {
		t.Errorf("expected 0 total, got %d", result.Summary.Total)
	}
}

func TestReplaySummaryCountsCorrect(t *testing.T) {
	path := writeTestLog(t)

	result, err := Replay(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}

	s := result.Summary
	if s.Total != 6 {
		t.Errorf("total: expected 6, got %d", s.Total)
	}
	if s.Allowed != 3 {
		t.Errorf("allowed: expected 3, got %d", s.Allowed)
	}
	if s.Blocked != 2 {
		t.Errorf("blocked: expected 2, got %d", s.Blocked)
	}
	if s.Warned != 1 {
		t.Errorf("warned: expected 1, got %d", s.Warned)
	}
	if s.Degraded != 1 {
		t.Errorf("degraded: expected 1, got %d", s.Degraded)
	}
}
