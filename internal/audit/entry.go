package audit

// Event types recorded in the decision log.
const (
	EventNavigation = "navigation"
	EventSubmission = "submission"
	EventDownload   = "download"
	EventSweep      = "sweep"
	EventImport     = "import"
)

// Entry is one line in the hash-chained JSONL decision log.
// All fields are scalars (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type Entry struct {
	Timestamp    string  `json:"ts"`
	EventID      string  `json:"event_id"`
	EventType    string  `json:"event_type"`
	URL          string  `json:"url,omitempty"`
	FormOrigin   string  `json:"form_origin,omitempty"`
	ActionOrigin string  `json:"action_origin,omitempty"`
	Band         string  `json:"band,omitempty"`
	Score        float64 `json:"score,omitempty"`
	Outcome      string  `json:"outcome"`
	Reason       string  `json:"reason,omitempty"`
	PolicyID     int64   `json:"policy_id,omitempty"`
	Degraded     bool    `json:"degraded,omitempty"`
	PrevHash     string  `json:"prev_hash"`
}
