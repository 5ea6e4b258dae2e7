package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a Result as a human-readable text timeline.
func FormatTimeline(result *Result) string {
	if len(result.Entries) == 0 {
		return "No decisions recorded.\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Decisions: %s–%s UTC\n",
		formatDateTime(result.Summary.FirstTimestamp),
		formatTimeOnly(result.Summary.LastTimestamp)))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		subject := e.URL
		if e.EventType == EventSubmission {
			subject = e.FormOrigin + " → " + e.ActionOrigin
		}
		tag := ""
		if e.Degraded {
			tag = "  [degraded]"
		}
		b.WriteString(fmt.Sprintf("%-10s %-11s %-18s %-10s %-48s%s\n",
			formatTimeOnly(e.Timestamp), e.EventType,
			strings.ToUpper(e.Outcome), e.Band, truncate(subject, 48), tag))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))
	return b.String()
}

// FormatJSON renders a Result as indented JSON.
func FormatJSON(result *Result) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("audit: marshal result: %w", err)
	}
	return string(data), nil
}

func formatSummary(s Summary) string {
	parts := []string{}
	if s.Allowed > 0 {
		parts = append(parts, fmt.Sprintf("%d allowed", s.Allowed))
	}
	if s.Blocked > 0 {
		parts = append(parts, fmt.Sprintf("%d blocked", s.Blocked))
	}
	if s.Quarantined > 0 {
		parts = append(parts, fmt.Sprintf("%d quarantined", s.Quarantined))
	}
	if s.Warned > 0 {
		parts = append(parts, fmt.Sprintf("%d warned", s.Warned))
	}
	if s.Degraded > 0 {
		parts = append(parts, fmt.Sprintf("%d degraded", s.Degraded))
	}
	if len(parts) == 0 {
		parts = append(parts, "no outcomes")
	}
	return fmt.Sprintf("Summary: %s | %d total\n", strings.Join(parts, ", "), s.Total)
}

func formatDateTime(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

// truncate shortens s to max runes; byte slicing could split a
// multibyte rune mid-sequence.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
