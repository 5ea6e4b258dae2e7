// Package scorer aggregates weighted URL threat signals into a bounded
// score and risk band. Scoring is pure computation: no I/O, no clock, no
// failure mode beyond the recovered malformed-URL case.
package scorer

import (
	"fmt"
	"strings"

	"github.com/ppiankov/sentinel/internal/config"
	"github.com/ppiankov/sentinel/internal/model"
	"github.com/ppiankov/sentinel/internal/skeleton"
	"github.com/ppiankov/sentinel/internal/typosquat"
	"github.com/ppiankov/sentinel/internal/urlx"
)

// Signal names a triggered detection.
type Signal string

const (
	SignalHomograph      Signal = "homograph"
	SignalTyposquat      Signal = "typosquat"
	SignalIPLiteral      Signal = "ip_literal"
	SignalSuspiciousTLD  Signal = "suspicious_tld"
	SignalSubdomainAbuse Signal = "subdomain_abuse"
	SignalHighEntropy    Signal = "high_entropy"
	SignalShortDomain    Signal = "short_domain"
)

// Analysis is the scorer verdict plus the diagnostics an escalation
// prompt needs: skeleton form, nearest popular domain, edit distance,
// and the human-readable explanation.
type Analysis struct {
	URL           string         `json:"url"`
	Score         float64        `json:"score"`
	Band          model.RiskBand `json:"band"`
	Confidence    float64        `json:"confidence"`
	Signals       []Signal       `json:"signals,omitempty"`
	Reasons       []string       `json:"reasons,omitempty"`
	Explanation   string         `json:"explanation"`
	Host          string         `json:"host,omitempty"`
	Skeleton      string         `json:"skeleton,omitempty"`
	Confusables   []rune         `json:"-"`
	ClosestDomain string         `json:"closest_domain,omitempty"`
	EditDistance  int            `json:"edit_distance"`
	Entropy       float64        `json:"entropy"`
	Malformed     bool           `json:"malformed,omitempty"`
	ZeroRisk      bool           `json:"zero_risk,omitempty"`
}

// Triggered reports whether a signal fired.
func (a Analysis) Triggered(s Signal) bool {
	for _, sig := range a.Signals {
		if sig == s {
			return true
		}
	}
	return false
}

// Analyze scores a URL against the given configuration.
//
// Each triggered signal contributes its weight independently; the sum is
// capped at 1.0 and never goes negative. HTTPS transport does not reduce
// the score — encryption says nothing about destination trust. A URL
// with no parseable host comes back Safe with the Malformed flag set
// instead of an error: scoring failures must never block navigation.
func Analyze(raw string, cfg *config.ScoringConfig) Analysis {
	if cfg == nil {
		cfg = config.DefaultScoring()
	}

	a := Analysis{URL: raw, Band: model.BandSafe, EditDistance: -1}

	if urlx.ZeroRiskScheme(raw) {
		a.ZeroRisk = true
		a.Explanation = "no remote destination"
		return a
	}

	feat, err := urlx.Extract(raw)
	if err != nil {
		a.Malformed = true
		a.Explanation = "invalid URL format"
		return a
	}
	a.Host = feat.Host
	a.Entropy = feat.Entropy

	// Homograph: skeleton collides with a popular domain the host is not.
	a.Skeleton = skeleton.Skeleton(feat.Host)
	if match, ok := skeleton.DetectHomograph(feat.Host, cfg.PopularDomains); ok {
		a.Confusables = match.Confusables
		a.addSignal(SignalHomograph, cfg.Weights.Homograph,
			fmt.Sprintf("contains Unicode lookalike characters imitating %s (homograph attack)", match.Domain))
	}

	// Typosquat: small edit distance to a popular domain.
	if !feat.IsIPLiteral && feat.RegistrableLabel != "" {
		closest := typosquat.Closest(feat.RegistrableLabel, cfg.PopularDomains)
		a.ClosestDomain = closest.Closest
		a.EditDistance = closest.Distance
		if closest.IsCandidate() {
			a.addSignal(SignalTyposquat, cfg.Weights.Typosquat,
				fmt.Sprintf("similar to legitimate domain %q (edit distance: %d)", closest.Closest, closest.Distance))
		}
	}

	// IP-literal host, independent of scheme.
	if feat.IsIPLiteral {
		a.addSignal(SignalIPLiteral, cfg.Weights.IPLiteral,
			fmt.Sprintf("host is a raw IP address (%s)", feat.Host))
	}

	// Suspicious TLD.
	if feat.TLD != "" && cfg.SuspiciousTLD(feat.TLD) {
		a.addSignal(SignalSuspiciousTLD, cfg.Weights.SuspiciousTLD,
			fmt.Sprintf("suspicious TLD: .%s", feat.TLD))
	}

	// Subdomain abuse: deep nesting or a brand name buried in a
	// non-terminal label (paypal.com.evil.example).
	if feat.SubdomainCount >= cfg.SubdomainThreshold {
		a.addSignal(SignalSubdomainAbuse, cfg.Weights.SubdomainAbuse,
			fmt.Sprintf("excessive subdomain nesting (%d levels)", feat.SubdomainCount))
	} else if brand := brandInSubdomain(feat, cfg.PopularDomains); brand != "" {
		a.addSignal(SignalSubdomainAbuse, cfg.Weights.SubdomainAbuse,
			fmt.Sprintf("brand name %q appears in a subdomain label", brand))
	}

	// High entropy suggests a generated domain name.
	if feat.Entropy >= cfg.EntropyThreshold {
		a.addSignal(SignalHighEntropy, cfg.Weights.HighEntropy,
			fmt.Sprintf("high domain entropy (%.2f) suggests random generation", feat.Entropy))
	}

	// Very short domains are weakly suspicious.
	if !feat.IsIPLiteral && len(feat.RegistrableLabel) > 0 && len(feat.RegistrableLabel) < cfg.ShortDomainLength {
		a.addSignal(SignalShortDomain, cfg.Weights.ShortDomain, "very short domain name")
	}

	if a.Score > 1.0 {
		a.Score = 1.0
	}

	a.Confidence = float64(len(a.Reasons)) / 3.0
	if a.Confidence > 1.0 {
		a.Confidence = 1.0
	}

	a.Band = bandFor(a.Score, cfg.Bands)

	if len(a.Reasons) == 0 {
		a.Explanation = "no phishing indicators detected"
	} else {
		a.Explanation = strings.Join(a.Reasons, "; ")
	}

	return a
}

func (a *Analysis) addSignal(s Signal, weight float64, reason string) {
	a.Signals = append(a.Signals, s)
	a.Reasons = append(a.Reasons, reason)
	a.Score += weight
}

func bandFor(score float64, bands config.Bands) model.RiskBand {
	switch {
	case score >= bands.DangerousMin:
		return model.BandDangerous
	case score >= bands.SuspiciousMin:
		return model.BandSuspicious
	default:
		return model.BandSafe
	}
}

// brandInSubdomain returns the popular brand whose registrable name
// appears as a full non-terminal label of the host, or "".
func brandInSubdomain(feat urlx.Features, popular []string) string {
	if len(feat.Labels) < 3 {
		return ""
	}
	// Every label left of the registrable one.
	subLabels := feat.Labels[:len(feat.Labels)-2]
	for _, domain := range popular {
		name := domain
		if dot := strings.IndexByte(domain, '.'); dot > 0 {
			name = domain[:dot]
		}
		if name == feat.RegistrableLabel {
			// The brand itself is the registrable domain; legitimate.
			continue
		}
		for _, label := range subLabels {
			if label == name {
				return name
			}
		}
	}
	return ""
}
