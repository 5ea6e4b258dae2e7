package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Filter holds query criteria for reading the decision log back.
type Filter struct {
	EventType string    // empty = all event types
	From      time.Time // zero value = no lower bound
	To        time.Time // zero value = no upper bound
}

// Summary holds outcome counts for a set of replayed entries.
type Summary struct {
	Total          int    `json:"total"`
	Allowed        int    `json:"allowed"`
	Blocked        int    `json:"blocked"`
	Quarantined    int    `json:"quarantined"`
	Warned         int    `json:"warned"`
	Degraded       int    `json:"degraded"`
	FirstTimestamp string `json:"first_timestamp,omitempty"`
	LastTimestamp  string `json:"last_timestamp,omitempty"`
}

// Result holds filtered entries and their summary.
type Result struct {
	Entries []Entry `json:"entries"`
	Summary Summary `json:"summary"`
}

// Replay reads the decision log and returns entries matching the
// filter. Malformed lines are skipped rather than aborting the read;
// Verify is the tool for detecting tampering.
func Replay(path string, filter Filter) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open decision log: %w", err)
	}
	defer f.Close()

	result := &Result{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if filter.EventType != "" && entry.EventType != filter.EventType {
			continue
		}
		if !filter.From.IsZero() || !filter.To.IsZero() {
			ts, err := time.Parse(TimestampFormat, entry.Timestamp)
			if err != nil {
				continue
			}
			if !filter.From.IsZero() && ts.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && ts.After(filter.To) {
				continue
			}
		}
		result.Entries = append(result.Entries, entry)
		updateSummary(&result.Summary, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: read decision log: %w", err)
	}
	return result, nil
}

func updateSummary(s *Summary, entry Entry) {
	s.Total++
	switch entry.Outcome {
	case "allowed":
		s.Allowed++
	case "blocked":
		s.Blocked++
	case "quarantined":
		s.Quarantined++
	case "warned_and_allowed", "warned_and_blocked":
		s.Warned++
	}
	if entry.Degraded {
		s.Degraded++
	}
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}
