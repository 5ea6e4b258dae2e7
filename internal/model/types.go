package model

import (
	"fmt"
	"time"
)

// PolicyAction is what a matched policy does to the triggering event.
type PolicyAction string

const (
	ActionAllow         PolicyAction = "allow"
	ActionBlock         PolicyAction = "block"
	ActionQuarantine    PolicyAction = "quarantine"
	ActionBlockAutofill PolicyAction = "block_autofill"
	ActionWarnUser      PolicyAction = "warn_user"
)

// ParseAction maps a string to a PolicyAction. Fail-closed: unknown → Block.
func ParseAction(s string) PolicyAction {
	switch PolicyAction(s) {
	case ActionAllow, ActionBlock, ActionQuarantine, ActionBlockAutofill, ActionWarnUser:
		return PolicyAction(s)
	default:
		return ActionBlock
	}
}

// MatchKind classifies what situation a policy was created for.
type MatchKind string

const (
	MatchDownloadOriginFileType MatchKind = "download_origin_file_type"
	MatchFormActionMismatch     MatchKind = "form_action_mismatch"
	MatchInsecureCredentialPost MatchKind = "insecure_credential_post"
	MatchThirdPartyFormPost     MatchKind = "third_party_form_post"
	MatchPhishingURL            MatchKind = "phishing_url"
)

// Policy is a stored rule matched by decreasing specificity:
// content hash > URL pattern > rule name.
type Policy struct {
	ID          int64        `json:"id"`
	RuleName    string       `json:"rule_name,omitempty"`
	URLPattern  string       `json:"url_pattern,omitempty"`
	ContentHash string       `json:"content_hash,omitempty"`
	MimeType    string       `json:"mime_type,omitempty"`
	Action      PolicyAction `json:"action"`
	MatchKind   MatchKind    `json:"match_kind"`
	CreatedAt   time.Time    `json:"created_at"`
	CreatedBy   string       `json:"created_by"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	HitCount    int64        `json:"hit_count"`
	LastHit     *time.Time   `json:"last_hit,omitempty"`
}

// Expired reports whether the policy has passed its expiry.
func (p Policy) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// Validate checks the policy invariants before it reaches storage.
func (p Policy) Validate() error {
	if p.ContentHash == "" && p.URLPattern == "" && p.RuleName == "" {
		return fmt.Errorf("%w: policy needs at least one of content_hash, url_pattern, rule_name", ErrValidation)
	}
	if p.ContentHash != "" && !validHexHash(p.ContentHash) {
		return fmt.Errorf("%w: content_hash must be 64 hex characters", ErrValidation)
	}
	if p.URLPattern != "" && !ValidURLPattern(p.URLPattern) {
		return fmt.Errorf("%w: invalid url_pattern %q", ErrValidation, p.URLPattern)
	}
	if p.HitCount < 0 {
		return fmt.Errorf("%w: negative hit_count", ErrValidation)
	}
	switch p.Action {
	case ActionAllow, ActionBlock, ActionQuarantine, ActionBlockAutofill, ActionWarnUser:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrValidation, p.Action)
	}
	return nil
}

// RelationshipKind is the polarity of a remembered form-submission pairing.
type RelationshipKind string

const (
	RelationshipTrusted RelationshipKind = "trusted"
	RelationshipBlocked RelationshipKind = "blocked"
)

// CredentialRelationship records a user decision about a
// (form origin, action origin) submission pair.
type CredentialRelationship struct {
	ID           int64            `json:"id"`
	FormOrigin   string           `json:"form_origin"`
	ActionOrigin string           `json:"action_origin"`
	Kind         RelationshipKind `json:"kind"`
	CreatedAt    time.Time        `json:"created_at"`
	CreatedBy    string           `json:"created_by"`
	LastUsed     *time.Time       `json:"last_used,omitempty"`
	UseCount     int64            `json:"use_count"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}

// Expired reports whether the relationship has passed its expiry.
func (r CredentialRelationship) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// Validate checks the relationship invariants before it reaches storage.
func (r CredentialRelationship) Validate() error {
	if r.FormOrigin == "" || r.ActionOrigin == "" {
		return fmt.Errorf("%w: relationship needs form_origin and action_origin", ErrValidation)
	}
	if r.Kind != RelationshipTrusted && r.Kind != RelationshipBlocked {
		return fmt.Errorf("%w: unknown relationship kind %q", ErrValidation, r.Kind)
	}
	if r.UseCount < 0 {
		return fmt.Errorf("%w: negative use_count", ErrValidation)
	}
	return nil
}

// ThreatMetadata describes a detected threat before it is recorded.
type ThreatMetadata struct {
	URL         string `json:"url"`
	Filename    string `json:"filename,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	FileSize    uint64 `json:"file_size,omitempty"`
	RuleName    string `json:"rule_name,omitempty"`
	Severity    string `json:"severity"`
}

// ThreatRecord is an immutable audit row: written once, never updated.
type ThreatRecord struct {
	ID          int64     `json:"id"`
	DetectedAt  time.Time `json:"detected_at"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	MimeType    string    `json:"mime_type,omitempty"`
	FileSize    uint64    `json:"file_size,omitempty"`
	RuleName    string    `json:"rule_name,omitempty"`
	Severity    string    `json:"severity"`
	ActionTaken string    `json:"action_taken"`
	PolicyID    *int64    `json:"policy_id,omitempty"`
	AlertJSON   string    `json:"alert_json,omitempty"`
}

// CredentialAlert is the audit record of a form-submission security prompt.
type CredentialAlert struct {
	ID                int64     `json:"id"`
	DetectedAt        time.Time `json:"detected_at"`
	FormOrigin        string    `json:"form_origin"`
	ActionOrigin      string    `json:"action_origin"`
	AlertType         string    `json:"alert_type"`
	Severity          string    `json:"severity"`
	HasPasswordField  bool      `json:"has_password_field"`
	HasEmailField     bool      `json:"has_email_field"`
	UsesHTTPS         bool      `json:"uses_https"`
	IsCrossOrigin     bool      `json:"is_cross_origin"`
	UserAction        string    `json:"user_action,omitempty"`
	PolicyID          *int64    `json:"policy_id,omitempty"`
	AnomalyScore      float64   `json:"anomaly_score"`
	AnomalyIndicators []string  `json:"anomaly_indicators,omitempty"`
	AlertJSON         string    `json:"alert_json,omitempty"`
}

// PolicyTemplate is a reusable named bundle of policy parameters.
// Templates are only mutated by administrative import, never by matching.
type PolicyTemplate struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Category     string     `json:"category"`
	TemplateJSON string     `json:"template_json"`
	Builtin      bool       `json:"builtin"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// Validate checks template invariants before it reaches storage.
func (t PolicyTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: template needs a name", ErrValidation)
	}
	if t.TemplateJSON == "" {
		return fmt.Errorf("%w: template needs a body", ErrValidation)
	}
	return nil
}

// RiskBand classifies a threat score.
type RiskBand string

const (
	BandSafe       RiskBand = "safe"
	BandSuspicious RiskBand = "suspicious"
	BandDangerous  RiskBand = "dangerous"
)

// Outcome is the terminal state of one navigation or submission event.
type Outcome string

const (
	OutcomeAllowed          Outcome = "allowed"
	OutcomeBlocked          Outcome = "blocked"
	OutcomeQuarantined      Outcome = "quarantined"
	OutcomeWarnedAndAllowed Outcome = "warned_and_allowed"
	OutcomeWarnedAndBlocked Outcome = "warned_and_blocked"
)

func validHexHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
