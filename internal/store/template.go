package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/sentinel/internal/model"
)

const templateColumns = `id, name, description, category, template_json, builtin, created_at, updated_at`

// CreateTemplate inserts a named template. Names are unique; a duplicate
// is ErrConflict.
func (s *Store) CreateTemplate(ctx context.Context, t model.PolicyTemplate) (int64, error) {
	var id int64
	err := s.do(func() error {
		if err := t.Validate(); err != nil {
			return err
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO policy_templates(name, description, category, template_json, builtin, created_at, updated_at)
			VALUES(?,?,?,?,?,?,?);`,
			t.Name,
			t.Description,
			t.Category,
			t.TemplateJSON,
			boolToInt(t.Builtin),
			t.CreatedAt.UTC().UnixNano(),
			unixOrNil(t.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: template %q already exists", model.ErrConflict, t.Name)
			}
			return fmt.Errorf("store: insert template: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// GetTemplate returns one template by name.
func (s *Store) GetTemplate(ctx context.Context, name string) (model.PolicyTemplate, error) {
	var t model.PolicyTemplate
	err := s.do(func() error {
		row := s.db.QueryRowContext(ctx,
			`SELECT `+templateColumns+` FROM policy_templates WHERE name = ?;`, name)
		var err error
		t, err = scanTemplate(row)
		return err
	})
	return t, err
}

// ListTemplates returns all templates, optionally filtered by category.
func (s *Store) ListTemplates(ctx context.Context, category string) ([]model.PolicyTemplate, error) {
	var out []model.PolicyTemplate
	err := s.do(func() error {
		query := `SELECT ` + templateColumns + ` FROM policy_templates ORDER BY name;`
		args := []any{}
		if category != "" {
			query = `SELECT ` + templateColumns + ` FROM policy_templates
				WHERE category = ? ORDER BY name;`
			args = append(args, category)
		}
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("store: list templates: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanTemplate(rows)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	return out, err
}

// UpdateTemplate replaces a template's body by name and stamps updated_at.
func (s *Store) UpdateTemplate(ctx context.Context, t model.PolicyTemplate) error {
	return s.do(func() error {
		if err := t.Validate(); err != nil {
			return err
		}
		res, err := s.db.ExecContext(ctx, `
			UPDATE policy_templates SET description=?, category=?, template_json=?, updated_at=?
			WHERE name = ?;`,
			t.Description, t.Category, t.TemplateJSON,
			time.Now().UTC().UnixNano(), t.Name)
		if err != nil {
			return fmt.Errorf("store: update template: %w", err)
		}
		return requireRow(res)
	})
}

// DeleteTemplate removes a template by name. Builtin templates cannot be
// deleted, only overwritten by a later seed.
func (s *Store) DeleteTemplate(ctx context.Context, name string) error {
	return s.do(func() error {
		var builtin int
		err := s.db.QueryRowContext(ctx,
			`SELECT builtin FROM policy_templates WHERE name = ?;`, name).Scan(&builtin)
		if err == sql.ErrNoRows {
			return model.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("store: delete template: %w", err)
		}
		if builtin != 0 {
			return fmt.Errorf("%w: template %q is builtin", model.ErrValidation, name)
		}
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM policy_templates WHERE name = ?;`, name)
		if err != nil {
			return fmt.Errorf("store: delete template: %w", err)
		}
		return requireRow(res)
	})
}

// templateBody is the shape of template_json: policy parameters with
// {placeholder} variables to fill at instantiation time.
type templateBody struct {
	RuleName   string `json:"rule_name,omitempty"`
	URLPattern string `json:"url_pattern,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
	Action     string `json:"action"`
	MatchKind  string `json:"match_kind"`
	TTLHours   int64  `json:"ttl_hours,omitempty"`
}

// Instantiate expands a template into a concrete policy, substituting
// {name} placeholders from vars, and stores it.
func (s *Store) Instantiate(ctx context.Context, name string, vars map[string]string, createdBy string) (int64, error) {
	t, err := s.GetTemplate(ctx, name)
	if err != nil {
		return 0, err
	}

	var body templateBody
	if err := json.Unmarshal([]byte(t.TemplateJSON), &body); err != nil {
		return 0, fmt.Errorf("%w: template %q body: %v", model.ErrValidation, name, err)
	}

	p := model.Policy{
		RuleName:   substitute(body.RuleName, vars),
		URLPattern: substitute(body.URLPattern, vars),
		MimeType:   substitute(body.MimeType, vars),
		Action:     model.ParseAction(body.Action),
		MatchKind:  model.MatchKind(body.MatchKind),
		CreatedBy:  createdBy,
	}
	if body.TTLHours > 0 {
		exp := time.Now().UTC().Add(time.Duration(body.TTLHours) * time.Hour)
		p.ExpiresAt = &exp
	}
	return s.CreatePolicy(ctx, p)
}

// SeedBuiltinTemplates upserts the shipped template set. User-created
// templates are untouched.
func (s *Store) SeedBuiltinTemplates(ctx context.Context) error {
	for _, t := range builtinTemplates() {
		_, err := s.CreateTemplate(ctx, t)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrConflict) {
			return err
		}
		if err := s.UpdateTemplate(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func builtinTemplates() []model.PolicyTemplate {
	return []model.PolicyTemplate{
		{
			Name:        "block-downloads-from-site",
			Description: "Block all downloads whose URL matches a site pattern.",
			Category:    "downloads",
			TemplateJSON: `{"url_pattern":"*{host}*","action":"block",` +
				`"match_kind":"download_origin_file_type"}`,
			Builtin: true,
		},
		{
			Name:        "quarantine-executables",
			Description: "Quarantine executable downloads from a site pattern.",
			Category:    "downloads",
			TemplateJSON: `{"url_pattern":"*{host}*","mime_type":"application/x-executable",` +
				`"action":"quarantine","match_kind":"download_origin_file_type"}`,
			Builtin: true,
		},
		{
			Name:        "block-cross-origin-credentials",
			Description: "Block credential posts from a form origin to third parties.",
			Category:    "credentials",
			TemplateJSON: `{"rule_name":"cross-origin-post:{form_origin}","action":"block_autofill",` +
				`"match_kind":"third_party_form_post"}`,
			Builtin: true,
		},
		{
			Name:        "warn-insecure-login",
			Description: "Warn when a login form posts over plain HTTP.",
			Category:    "credentials",
			TemplateJSON: `{"rule_name":"insecure-post:{form_origin}","action":"warn_user",` +
				`"match_kind":"insecure_credential_post"}`,
			Builtin: true,
		},
		{
			Name:        "block-phishing-lookalike",
			Description: "Block navigation to a confirmed lookalike domain, 30-day TTL.",
			Category:    "phishing",
			TemplateJSON: `{"url_pattern":"*{host}*","action":"block",` +
				`"match_kind":"phishing_url","ttl_hours":720}`,
			Builtin: true,
		},
	}
}

func substitute(s string, vars map[string]string) string {
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func scanTemplate(row rowScanner) (model.PolicyTemplate, error) {
	var (
		t         model.PolicyTemplate
		builtin   int
		createdAt int64
		updatedAt sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Category, &t.TemplateJSON,
		&builtin, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return t, model.ErrNotFound
	}
	if err != nil {
		return t, fmt.Errorf("store: scan template: %w", err)
	}
	t.Builtin = builtin != 0
	t.CreatedAt = time.Unix(0, createdAt).UTC()
	t.UpdatedAt = timePtr(updatedAt)
	return t, nil
}
