package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/sentinel/internal/model"
)

// ExportVersion identifies the document layout. Importers reject
// versions they do not understand.
const ExportVersion = 1

// Document is the portable snapshot of user-authored policy state.
// Threat history and alerts are audit data and stay local.
type Document struct {
	Version       int                            `json:"version"`
	ExportedAt    time.Time                      `json:"exported_at"`
	Policies      []model.Policy                 `json:"policies"`
	Relationships []model.CredentialRelationship `json:"relationships"`
	Templates     []model.PolicyTemplate         `json:"templates"`
}

// Export snapshots policies, relationships, and user templates into a
// Document. Builtin templates are omitted; every install reseeds them.
func (s *Store) Export(ctx context.Context) (Document, error) {
	doc := Document{Version: ExportVersion, ExportedAt: time.Now().UTC()}

	policies, err := s.ListPolicies(ctx)
	if err != nil {
		return doc, err
	}
	doc.Policies = policies

	rels, err := s.ListRelationships(ctx, "")
	if err != nil {
		return doc, err
	}
	doc.Relationships = rels

	templates, err := s.ListTemplates(ctx, "")
	if err != nil {
		return doc, err
	}
	for _, t := range templates {
		if t.Builtin {
			continue
		}
		doc.Templates = append(doc.Templates, t)
	}
	return doc, nil
}

// ImportResult reports what an import applied.
type ImportResult struct {
	Policies      int `json:"policies"`
	Relationships int `json:"relationships"`
	Templates     int `json:"templates"`
}

// Import applies a Document inside one transaction: every record is
// validated up front and nothing is written if any record fails, so a
// bad document can never leave the store half-imported. Existing rows
// that collide with imported ones are replaced.
func (s *Store) Import(ctx context.Context, doc Document) (ImportResult, error) {
	var out ImportResult
	err := s.do(func() error {
		if doc.Version != ExportVersion {
			return fmt.Errorf("%w: unsupported export version %d", model.ErrValidation, doc.Version)
		}
		for i, p := range doc.Policies {
			if err := p.Validate(); err != nil {
				return fmt.Errorf("policy %d: %w", i, err)
			}
		}
		for i, r := range doc.Relationships {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("relationship %d: %w", i, err)
			}
		}
		for i, t := range doc.Templates {
			if err := t.Validate(); err != nil {
				return fmt.Errorf("template %d: %w", i, err)
			}
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store: begin import: %w", err)
		}
		defer tx.Rollback()

		for _, p := range doc.Policies {
			if p.CreatedAt.IsZero() {
				p.CreatedAt = time.Now().UTC()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO policies(rule_name, url_pattern, content_hash, mime_type, action, match_kind,
					created_at, created_by, expires_at, hit_count, last_hit)
				VALUES(?,?,?,?,?,?,?,?,?,?,?);`,
				nullString(p.RuleName), nullString(p.URLPattern), nullString(p.ContentHash),
				nullString(p.MimeType), string(p.Action), string(p.MatchKind),
				p.CreatedAt.UTC().UnixNano(), p.CreatedBy, unixOrNil(p.ExpiresAt),
				p.HitCount, unixOrNil(p.LastHit))
			if err != nil {
				return fmt.Errorf("store: import policy: %w", err)
			}
			out.Policies++
		}

		for _, r := range doc.Relationships {
			if r.CreatedAt.IsZero() {
				r.CreatedAt = time.Now().UTC()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO credential_relationships(form_origin, action_origin, kind,
					created_at, created_by, last_used, use_count, expires_at, notes)
				VALUES(?,?,?,?,?,?,?,?,?)
				ON CONFLICT(form_origin, action_origin, kind) DO UPDATE SET
					last_used=excluded.last_used, use_count=excluded.use_count,
					expires_at=excluded.expires_at, notes=excluded.notes;`,
				r.FormOrigin, r.ActionOrigin, string(r.Kind),
				r.CreatedAt.UTC().UnixNano(), r.CreatedBy, unixOrNil(r.LastUsed),
				r.UseCount, unixOrNil(r.ExpiresAt), r.Notes)
			if err != nil {
				return fmt.Errorf("store: import relationship: %w", err)
			}
			out.Relationships++
		}

		for _, t := range doc.Templates {
			if t.CreatedAt.IsZero() {
				t.CreatedAt = time.Now().UTC()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO policy_templates(name, description, category, template_json, builtin, created_at, updated_at)
				VALUES(?,?,?,?,0,?,?)
				ON CONFLICT(name) DO UPDATE SET
					description=excluded.description, category=excluded.category,
					template_json=excluded.template_json, updated_at=excluded.updated_at;`,
				t.Name, t.Description, t.Category, t.TemplateJSON,
				t.CreatedAt.UTC().UnixNano(), unixOrNil(t.UpdatedAt))
			if err != nil {
				return fmt.Errorf("store: import template: %w", err)
			}
			out.Templates++
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit import: %w", err)
		}
		s.cache.purge()
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return out, nil
}
