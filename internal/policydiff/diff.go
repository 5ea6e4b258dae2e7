// Package policydiff compares two exported policy documents for the
// admin surface: what an import would add, remove, or change relative
// to the current store.
package policydiff

import (
	"fmt"
	"strings"

	"github.com/ppiankov/sentinel/internal/model"
	"github.com/ppiankov/sentinel/internal/store"
)

// EntryChange represents one added, removed, or changed record.
type EntryChange struct {
	Type  string `json:"type"` // "added", "removed", "changed"
	Entry string `json:"entry"`
}

// Result holds the comparison of two export documents.
type Result struct {
	OldPath       string        `json:"old_path"`
	NewPath       string        `json:"new_path"`
	Policies      []EntryChange `json:"policies,omitempty"`
	Relationships []EntryChange `json:"relationships,omitempty"`
	Templates     []EntryChange `json:"templates,omitempty"`
	HasChanges    bool          `json:"has_changes"`
}

// Diff compares two export documents. Records are keyed by their match
// fingerprint, not their row ids, so re-exported databases with
// different autoincrement values still diff cleanly.
func Diff(old, new store.Document) *Result {
	r := &Result{}
	r.Policies = diffPolicies(old.Policies, new.Policies)
	r.Relationships = diffRelationships(old.Relationships, new.Relationships)
	r.Templates = diffTemplates(old.Templates, new.Templates)
	r.HasChanges = len(r.Policies) > 0 || len(r.Relationships) > 0 || len(r.Templates) > 0
	return r
}

func policyKey(p model.Policy) string {
	return strings.ToLower(p.ContentHash) + "|" + p.URLPattern + "|" + p.RuleName
}

func policyLabel(p model.Policy) string {
	parts := []string{}
	if p.ContentHash != "" {
		parts = append(parts, "hash="+p.ContentHash[:12]+"…")
	}
	if p.URLPattern != "" {
		parts = append(parts, "pattern="+p.URLPattern)
	}
	if p.RuleName != "" {
		parts = append(parts, "rule="+p.RuleName)
	}
	return strings.Join(parts, " ")
}

func diffPolicies(oldPolicies, newPolicies []model.Policy) []EntryChange {
	oldMap := make(map[string]model.Policy)
	for _, p := range oldPolicies {
		oldMap[policyKey(p)] = p
	}
	newMap := make(map[string]model.Policy)
	for _, p := range newPolicies {
		newMap[policyKey(p)] = p
	}

	var out []EntryChange
	for _, p := range newPolicies {
		k := policyKey(p)
		if oldP, exists := oldMap[k]; exists {
			if oldP.Action != p.Action {
				out = append(out, EntryChange{
					Type:  "changed",
					Entry: fmt.Sprintf("%s → %s (was: %s)", policyLabel(p), p.Action, oldP.Action),
				})
			}
		} else {
			out = append(out, EntryChange{
				Type:  "added",
				Entry: fmt.Sprintf("%s → %s", policyLabel(p), p.Action),
			})
		}
	}
	for _, p := range oldPolicies {
		if _, exists := newMap[policyKey(p)]; !exists {
			out = append(out, EntryChange{
				Type:  "removed",
				Entry: fmt.Sprintf("%s → %s", policyLabel(p), p.Action),
			})
		}
	}
	return out
}

func relationshipKey(r model.CredentialRelationship) string {
	return r.FormOrigin + "|" + r.ActionOrigin
}

func relationshipLabel(r model.CredentialRelationship) string {
	return fmt.Sprintf("%s → %s", r.FormOrigin, r.ActionOrigin)
}

func diffRelationships(oldRels, newRels []model.CredentialRelationship) []EntryChange {
	oldMap := make(map[string]model.CredentialRelationship)
	for _, r := range oldRels {
		oldMap[relationshipKey(r)] = r
	}
	newMap := make(map[string]model.CredentialRelationship)
	for _, r := range newRels {
		newMap[relationshipKey(r)] = r
	}

	var out []EntryChange
	for _, r := range newRels {
		k := relationshipKey(r)
		if oldR, exists := oldMap[k]; exists {
			if oldR.Kind != r.Kind {
				out = append(out, EntryChange{
					Type:  "changed",
					Entry: fmt.Sprintf("%s: %s (was: %s)", relationshipLabel(r), r.Kind, oldR.Kind),
				})
			}
		} else {
			out = append(out, EntryChange{
				Type:  "added",
				Entry: fmt.Sprintf("%s: %s", relationshipLabel(r), r.Kind),
			})
		}
	}
	for _, r := range oldRels {
		if _, exists := newMap[relationshipKey(r)]; !exists {
			out = append(out, EntryChange{
				Type:  "removed",
				Entry: fmt.Sprintf("%s: %s", relationshipLabel(r), r.Kind),
			})
		}
	}
	return out
}

func diffTemplates(oldTemplates, newTemplates []model.PolicyTemplate) []EntryChange {
	oldMap := make(map[string]model.PolicyTemplate)
	for _, t := range oldTemplates {
		oldMap[t.Name] = t
	}
	newMap := make(map[string]model.PolicyTemplate)
	for _, t := range newTemplates {
		newMap[t.Name] = t
	}

	var out []EntryChange
	for _, t := range newTemplates {
		if oldT, exists := oldMap[t.Name]; exists {
			if oldT.TemplateJSON != t.TemplateJSON {
				out = append(out, EntryChange{Type: "changed", Entry: t.Name})
			}
		} else {
			out = append(out, EntryChange{Type: "added", Entry: t.Name})
		}
	}
	for _, t := range oldTemplates {
		if _, exists := newMap[t.Name]; !exists {
			out = append(out, EntryChange{Type: "removed", Entry: t.Name})
		}
	}
	return out
}
