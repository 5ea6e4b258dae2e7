package decision

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Anomaly component weights. The anomaly score is reported alongside
// the URL threat score, never merged into it.
const (
	weightHiddenRatio   = 0.3
	weightFieldCount    = 0.2
	weightActionDomain  = 0.3
	weightFrequency     = 0.2
	weightMultiPassword = 0.2
	weightNoInteraction = 0.3
)

// frequencyWindow bounds how long submission timestamps are retained.
const frequencyWindow = time.Minute

// AnomalyDetector scores structural form anomalies that the URL scorer
// cannot see: hidden-field stuffing, data-harvesting field counts,
// disreputable action hosts, and bot-like submission cadence.
type AnomalyDetector struct {
	mu          sync.Mutex
	submissions map[string][]time.Time
	now         func() time.Time
}

// NewAnomalyDetector returns a detector with an empty frequency history.
func NewAnomalyDetector() *AnomalyDetector {
	return &AnomalyDetector{
		submissions: make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Score computes the anomaly score for one submission and the indicator
// list explaining it. The score is capped at 1.0. Calling Score records
// the submission timestamp for frequency analysis.
func (d *AnomalyDetector) Score(ev FormSubmitEvent) (float64, []string) {
	var score float64
	var indicators []string

	if ratio := hiddenFieldRatio(ev); ratio > 0.5 {
		score += weightHiddenRatio * ratio
		indicators = append(indicators, fmt.Sprintf("high hidden field ratio (%.0f%%)", ratio*100))
	}

	if fc := fieldCountScore(ev); fc > 0.7 {
		score += weightFieldCount * fc
		indicators = append(indicators, fmt.Sprintf("excessive field count (%d fields)", len(ev.Fields)))
	}

	if ds := actionDomainScore(ev.ActionURL); ds > 0.5 {
		score += weightActionDomain * ds
		indicators = append(indicators, fmt.Sprintf("suspicious action domain: %s", hostOf(ev.ActionURL)))
	}

	if fs := d.frequencyScore(ev.FormOrigin); fs >= 0.7 {
		score += weightFrequency * fs
		indicators = append(indicators, "unusual submission frequency detected")
	}

	if ev.countType(FieldPassword) > 1 {
		score += weightMultiPassword
		indicators = append(indicators, "multiple password fields")
	}

	if !ev.UserInteracted {
		score += weightNoInteraction
		indicators = append(indicators, "submission without user interaction")
	}

	if score > 1.0 {
		score = 1.0
	}
	return score, indicators
}

// hiddenFieldRatio normalizes the hidden/total ratio: below 0.3 is
// normal, 0.3–0.5 ramps to 0.5, above 0.5 ramps to 1.0.
func hiddenFieldRatio(ev FormSubmitEvent) float64 {
	if len(ev.Fields) == 0 {
		return 0
	}
	ratio := float64(ev.countType(FieldHidden)) / float64(len(ev.Fields))
	switch {
	case ratio < 0.3:
		return 0
	case ratio < 0.5:
		return (ratio - 0.3) / 0.2 * 0.5
	default:
		return 0.5 + (ratio-0.5)/0.5*0.5
	}
}

// fieldCountScore ramps with form size: 2-15 fields is normal, 20+ is
// typical of data harvesting, 50+ is maximum suspicion.
func fieldCountScore(ev FormSubmitEvent) float64 {
	n := float64(len(ev.Fields))
	switch {
	case n <= 15:
		return 0
	case n <= 25:
		return (n - 15) / 10 * 0.5
	case n <= 50:
		return 0.5 + (n-25)/25*0.5
	default:
		return 1.0
	}
}

var suspiciousHostPatterns = []string{
	"data-collect", "analytics", "tracking", "logger",
	"harvester", "phishing", "fake-", "scam",
	".tk", ".ml", ".ga", ".cf", ".gq",
}

func actionDomainScore(actionURL string) float64 {
	host := hostOf(actionURL)
	if host == "" {
		return 0
	}
	for _, pattern := range suspiciousHostPatterns {
		if strings.Contains(host, pattern) {
			return 0.8
		}
	}
	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return 0.7
	}
	if len(host) > 40 {
		return 0.6
	}
	return 0
}

// frequencyScore records the submission and scores bot-like cadence:
// five or more submissions from one origin inside five seconds is
// certain automation, three is suspicious.
func (d *AnomalyDetector) frequencyScore(formOrigin string) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	cutoff := now.Add(-frequencyWindow)
	kept := d.submissions[formOrigin][:0]
	for _, ts := range d.submissions[formOrigin] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	d.submissions[formOrigin] = kept

	recent := 0
	fiveSecondsAgo := now.Add(-5 * time.Second)
	for _, ts := range kept {
		if !ts.Before(fiveSecondsAgo) {
			recent++
		}
	}
	switch {
	case recent >= 5:
		return 1.0
	case recent >= 3:
		return 0.7
	default:
		return 0
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
