package policydiff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders the diff result as human-readable text.
func FormatText(r *Result) string {
	if !r.HasChanges {
		return fmt.Sprintf("Policy diff: %s → %s\n\nNo changes detected.\n", r.OldPath, r.NewPath)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Policy diff: %s → %s\n", r.OldPath, r.NewPath)

	writeSection(&b, "Policies", r.Policies)
	writeSection(&b, "Relationships", r.Relationships)
	writeSection(&b, "Templates", r.Templates)

	return b.String()
}

// FormatJSON renders the diff result as JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diff result: %w", err)
	}
	return string(data), nil
}

func writeSection(b *strings.Builder, title string, changes []EntryChange) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintf(b, "\n  %s:\n", title)
	for _, c := range changes {
		switch c.Type {
		case "added":
			fmt.Fprintf(b, "    + %s\n", c.Entry)
		case "removed":
			fmt.Fprintf(b, "    - %s\n", c.Entry)
		case "changed":
			fmt.Fprintf(b, "    ~ %s\n", c.Entry)
		}
	}
}
