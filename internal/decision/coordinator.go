// Package decision orchestrates one security check per navigation or
// form-submission event: extract and score the URL, consult the policy
// store for a remembered decision, escalate unresolved suspicion to the
// caller, then persist what the user chose.
//
// The coordinator holds no ambient user-decision state. Every verdict
// travels as an explicit request/response value through the Escalator
// interface, and a cancelled escalation abandons the event without
// writing anything.
package decision

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ppiankov/sentinel/internal/audit"
	"github.com/ppiankov/sentinel/internal/config"
	"github.com/ppiankov/sentinel/internal/model"
	"github.com/ppiankov/sentinel/internal/scorer"
	"github.com/ppiankov/sentinel/internal/store"
)

// Verdict is the user's answer to an escalation.
type Verdict string

const (
	VerdictTrust  Verdict = "trust"
	VerdictBlock  Verdict = "block"
	VerdictIgnore Verdict = "ignore"
)

// Escalation is the diagnostic payload handed to the caller when a
// suspicious event has no stored decision.
type Escalation struct {
	URL               string          `json:"url"`
	Band              model.RiskBand  `json:"band"`
	Score             float64         `json:"score"`
	Signals           []scorer.Signal `json:"signals,omitempty"`
	Reasons           []string        `json:"reasons,omitempty"`
	Skeleton          string          `json:"skeleton,omitempty"`
	ClosestDomain     string          `json:"closest_domain,omitempty"`
	EditDistance      int             `json:"edit_distance"`
	FormOrigin        string          `json:"form_origin,omitempty"`
	ActionOrigin      string          `json:"action_origin,omitempty"`
	AnomalyScore      float64         `json:"anomaly_score,omitempty"`
	AnomalyIndicators []string        `json:"anomaly_indicators,omitempty"`
}

// Response is the caller's decision. Persist extends it beyond this
// event: a Trust or Block with Persist writes a Policy or
// CredentialRelationship so the same fingerprint never re-prompts.
type Response struct {
	Verdict Verdict
	Persist bool
}

// Escalator presents an escalation to the user and returns their
// decision. Implementations must honor ctx cancellation.
type Escalator interface {
	Escalate(ctx context.Context, req Escalation) (Response, error)
}

// Decision is the terminal outcome of one checked event.
type Decision struct {
	EventID           string             `json:"event_id"`
	Outcome           model.Outcome      `json:"outcome"`
	Action            model.PolicyAction `json:"action"`
	Analysis          scorer.Analysis    `json:"analysis"`
	PolicyID          *int64             `json:"policy_id,omitempty"`
	Escalated         bool               `json:"escalated,omitempty"`
	Degraded          bool               `json:"degraded,omitempty"`
	AnomalyScore      float64            `json:"anomaly_score,omitempty"`
	AnomalyIndicators []string           `json:"anomaly_indicators,omitempty"`
}

// Coordinator runs the per-event state machine. Safe for concurrent use.
type Coordinator struct {
	store     *store.Store
	escalator Escalator
	log       *audit.Log
	cfg       atomic.Pointer[config.ScoringConfig]
	anomaly   *AnomalyDetector
	overrides *AutofillOverrides
}

// New builds a coordinator. escalator and log may be nil: without an
// escalator the coordinator applies band defaults (block Dangerous,
// warn-and-allow Suspicious); without a log no decisions are journaled.
func New(st *store.Store, escalator Escalator, log *audit.Log, cfg *config.ScoringConfig) *Coordinator {
	c := &Coordinator{
		store:     st,
		escalator: escalator,
		log:       log,
		anomaly:   NewAnomalyDetector(),
		overrides: NewAutofillOverrides(),
	}
	if cfg == nil {
		cfg = config.DefaultScoring()
	}
	c.cfg.Store(cfg)
	return c
}

// SetConfig swaps the scoring configuration. Wired to the config
// watcher's reload callback; in-flight checks keep the config they
// started with.
func (c *Coordinator) SetConfig(cfg *config.ScoringConfig) {
	if cfg != nil {
		c.cfg.Store(cfg)
	}
}

// Overrides exposes the one-time autofill override set.
func (c *Coordinator) Overrides() *AutofillOverrides { return c.overrides }

// CheckNavigation decides one navigation event. The only error it
// returns is context cancellation during escalation; everything else
// degrades to a scorer-only verdict rather than blocking navigation.
func (c *Coordinator) CheckNavigation(ctx context.Context, rawURL string) (Decision, error) {
	a := scorer.Analyze(rawURL, c.cfg.Load())
	d := Decision{
		EventID:  uuid.NewString(),
		Outcome:  model.OutcomeAllowed,
		Action:   model.ActionAllow,
		Analysis: a,
	}

	if a.ZeroRisk || a.Malformed {
		c.auditNavigation(d)
		return d, nil
	}

	meta := model.ThreatMetadata{URL: rawURL, Severity: severityFor(a.Band)}
	p, err := c.store.Match(ctx, meta)
	switch {
	case err == nil:
		d.PolicyID = &p.ID
		d.Action = p.Action
		d.Outcome = outcomeForAction(p.Action)
		if d.Outcome != model.OutcomeAllowed {
			c.recordThreat(ctx, meta, d)
		}
		c.auditNavigation(d)
		return d, nil
	case errors.Is(err, model.ErrNotFound):
		// No stored decision; fall through to the live verdict.
	default:
		d.Degraded = true
	}

	if a.Band == model.BandSafe {
		c.auditNavigation(d)
		return d, nil
	}

	verdict, persist, err := c.escalate(ctx, Escalation{
		URL:           rawURL,
		Band:          a.Band,
		Score:         a.Score,
		Signals:       a.Signals,
		Reasons:       a.Reasons,
		Skeleton:      a.Skeleton,
		ClosestDomain: a.ClosestDomain,
		EditDistance:  a.EditDistance,
	})
	if err != nil {
		return Decision{}, err
	}
	d.Escalated = true

	switch verdict {
	case VerdictTrust:
		d.Outcome = model.OutcomeWarnedAndAllowed
		d.Action = model.ActionAllow
		if persist && !d.Degraded {
			if id, err := c.store.CreatePolicy(ctx, navigationPolicy(a, model.ActionAllow)); err == nil {
				d.PolicyID = &id
			}
		}
	case VerdictBlock:
		d.Outcome = model.OutcomeWarnedAndBlocked
		d.Action = model.ActionBlock
		if persist && !d.Degraded {
			if id, err := c.store.CreatePolicy(ctx, navigationPolicy(a, model.ActionBlock)); err == nil {
				d.PolicyID = &id
			}
		}
	default:
		d.Outcome = model.OutcomeWarnedAndAllowed
		d.Action = model.ActionWarnUser
	}

	if !d.Degraded {
		c.recordThreat(ctx, meta, d)
	}
	c.auditNavigation(d)
	return d, nil
}

// CheckSubmission decides one form-submission event. The anomaly score
// rides alongside the URL threat score in the decision; they are never
// merged.
func (c *Coordinator) CheckSubmission(ctx context.Context, ev FormSubmitEvent) (Decision, error) {
	a := scorer.Analyze(ev.ActionURL, c.cfg.Load())
	anomalyScore, indicators := c.anomaly.Score(ev)
	d := Decision{
		EventID:           uuid.NewString(),
		Outcome:           model.OutcomeAllowed,
		Action:            model.ActionAllow,
		Analysis:          a,
		AnomalyScore:      anomalyScore,
		AnomalyIndicators: indicators,
	}

	actionOrigin := ev.ActionOrigin()
	if actionOrigin == "" {
		// Relative or unparseable action: same-document post.
		c.auditSubmission(d, ev, actionOrigin)
		return d, nil
	}

	if ev.Autofill && c.overrides.Consume(ev.FormOrigin, ev.AutofillField) {
		c.auditSubmission(d, ev, actionOrigin)
		return d, nil
	}

	// A stored relationship decides without prompting.
	if rel, err := c.store.GetRelationship(ctx, ev.FormOrigin, actionOrigin, model.RelationshipTrusted); err == nil {
		_ = c.store.TouchRelationship(ctx, rel.ID)
		c.auditSubmission(d, ev, actionOrigin)
		return d, nil
	} else if !errors.Is(err, model.ErrNotFound) {
		d.Degraded = true
	}
	if !d.Degraded {
		if rel, err := c.store.GetRelationship(ctx, ev.FormOrigin, actionOrigin, model.RelationshipBlocked); err == nil {
			_ = c.store.TouchRelationship(ctx, rel.ID)
			d.Outcome = model.OutcomeBlocked
			d.Action = model.ActionBlock
			c.recordAlert(ctx, ev, a, d, "blocked_relationship", "high", "auto")
			c.auditSubmission(d, ev, actionOrigin)
			return d, nil
		}
	}

	alertType, severity := classifySubmission(ev, a, anomalyScore)
	if alertType == "" {
		c.auditSubmission(d, ev, actionOrigin)
		return d, nil
	}

	verdict, persist, err := c.escalate(ctx, Escalation{
		URL:               ev.ActionURL,
		Band:              a.Band,
		Score:             a.Score,
		Signals:           a.Signals,
		Reasons:           a.Reasons,
		Skeleton:          a.Skeleton,
		ClosestDomain:     a.ClosestDomain,
		EditDistance:      a.EditDistance,
		FormOrigin:        ev.FormOrigin,
		ActionOrigin:      actionOrigin,
		AnomalyScore:      anomalyScore,
		AnomalyIndicators: indicators,
	})
	if err != nil {
		return Decision{}, err
	}
	d.Escalated = true

	switch verdict {
	case VerdictTrust:
		d.Outcome = model.OutcomeWarnedAndAllowed
		if persist && !d.Degraded {
			_, _ = c.store.CreateRelationship(ctx, model.CredentialRelationship{
				FormOrigin:   ev.FormOrigin,
				ActionOrigin: actionOrigin,
				Kind:         model.RelationshipTrusted,
				CreatedBy:    "user",
			})
		}
	case VerdictBlock:
		d.Outcome = model.OutcomeWarnedAndBlocked
		d.Action = model.ActionBlock
		if persist && !d.Degraded {
			_, _ = c.store.CreateRelationship(ctx, model.CredentialRelationship{
				FormOrigin:   ev.FormOrigin,
				ActionOrigin: actionOrigin,
				Kind:         model.RelationshipBlocked,
				CreatedBy:    "user",
			})
		}
	default:
		d.Outcome = model.OutcomeWarnedAndAllowed
		d.Action = model.ActionWarnUser
	}

	// The alert is recorded whatever the user chose.
	c.recordAlert(ctx, ev, a, d, alertType, severity, string(verdict))
	c.auditSubmission(d, ev, actionOrigin)
	return d, nil
}

// escalate resolves an unresolved suspicious event. Without an
// escalator the band default applies: Dangerous blocks, Suspicious
// warns and proceeds. An escalator error after context cancellation
// abandons the event.
func (c *Coordinator) escalate(ctx context.Context, req Escalation) (Verdict, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if c.escalator == nil {
		if req.Band == model.BandDangerous {
			return VerdictBlock, false, nil
		}
		return VerdictIgnore, false, nil
	}
	resp, err := c.escalator.Escalate(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		if req.Band == model.BandDangerous {
			return VerdictBlock, false, nil
		}
		return VerdictIgnore, false, nil
	}
	return resp.Verdict, resp.Persist, nil
}

// classifySubmission names the most specific alert condition, or ""
// when nothing about the submission warrants a prompt.
func classifySubmission(ev FormSubmitEvent, a scorer.Analysis, anomalyScore float64) (string, string) {
	password := ev.HasPasswordField()
	switch {
	case password && !ev.UsesHTTPS():
		return "insecure_credential_post", "high"
	case a.Band == model.BandDangerous:
		return "phishing_url", "high"
	case password && ev.CrossOrigin():
		return "third_party_form_post", "medium"
	case a.Band == model.BandSuspicious:
		return "phishing_url", "medium"
	case anomalyScore >= 0.5:
		return "form_anomaly", "medium"
	default:
		return "", ""
	}
}

func navigationPolicy(a scorer.Analysis, action model.PolicyAction) model.Policy {
	return model.Policy{
		URLPattern: "*" + a.Host + "*",
		Action:     action,
		MatchKind:  model.MatchPhishingURL,
		CreatedBy:  "user",
	}
}

func (c *Coordinator) recordThreat(ctx context.Context, meta model.ThreatMetadata, d Decision) {
	payload, _ := json.Marshal(d.Analysis)
	_, _ = c.store.RecordThreat(ctx, meta, string(d.Outcome), d.PolicyID, string(payload))
}

func (c *Coordinator) recordAlert(ctx context.Context, ev FormSubmitEvent, a scorer.Analysis, d Decision, alertType, severity, userAction string) {
	if d.Degraded {
		return
	}
	payload, _ := json.Marshal(a)
	_, _ = c.store.RecordCredentialAlert(ctx, model.CredentialAlert{
		FormOrigin:        ev.FormOrigin,
		ActionOrigin:      ev.ActionOrigin(),
		AlertType:         alertType,
		Severity:          severity,
		HasPasswordField:  ev.HasPasswordField(),
		HasEmailField:     ev.HasEmailField(),
		UsesHTTPS:         ev.UsesHTTPS(),
		IsCrossOrigin:     ev.CrossOrigin(),
		UserAction:        userAction,
		PolicyID:          d.PolicyID,
		AnomalyScore:      d.AnomalyScore,
		AnomalyIndicators: d.AnomalyIndicators,
		AlertJSON:         string(payload),
	})
}

func (c *Coordinator) auditNavigation(d Decision) {
	if c.log == nil {
		return
	}
	_ = c.log.Record(audit.Entry{
		EventID:   d.EventID,
		EventType: audit.EventNavigation,
		URL:       d.Analysis.URL,
		Band:      string(d.Analysis.Band),
		Score:     d.Analysis.Score,
		Outcome:   string(d.Outcome),
		Reason:    d.Analysis.Explanation,
		PolicyID:  policyIDValue(d.PolicyID),
		Degraded:  d.Degraded,
	})
}

func (c *Coordinator) auditSubmission(d Decision, ev FormSubmitEvent, actionOrigin string) {
	if c.log == nil {
		return
	}
	_ = c.log.Record(audit.Entry{
		EventID:      d.EventID,
		EventType:    audit.EventSubmission,
		URL:          ev.ActionURL,
		FormOrigin:   ev.FormOrigin,
		ActionOrigin: actionOrigin,
		Band:         string(d.Analysis.Band),
		Score:        d.Analysis.Score,
		Outcome:      string(d.Outcome),
		Reason:       d.Analysis.Explanation,
		PolicyID:     policyIDValue(d.PolicyID),
		Degraded:     d.Degraded,
	})
}

func severityFor(band model.RiskBand) string {
	switch band {
	case model.BandDangerous:
		return "high"
	case model.BandSuspicious:
		return "medium"
	default:
		return "low"
	}
}

func outcomeForAction(action model.PolicyAction) model.Outcome {
	switch action {
	case model.ActionBlock, model.ActionBlockAutofill:
		return model.OutcomeBlocked
	case model.ActionQuarantine:
		return model.OutcomeQuarantined
	case model.ActionWarnUser:
		return model.OutcomeWarnedAndAllowed
	default:
		return model.OutcomeAllowed
	}
}

func policyIDValue(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
