package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/sentinel/internal/model"
)

const relationshipColumns = `id, form_origin, action_origin, kind, created_at, created_by,
	last_used, use_count, expires_at, notes`

// CreateRelationship inserts a trusted or blocked pairing. The same
// (form, action) pair cannot be both trusted and blocked: an existing
// row of the opposite kind, or a duplicate of the same kind, is
// ErrConflict and the existing row stays unchanged.
func (s *Store) CreateRelationship(ctx context.Context, r model.CredentialRelationship) (int64, error) {
	var id int64
	err := s.do(func() error {
		if err := r.Validate(); err != nil {
			return err
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}

		opposite := model.RelationshipBlocked
		if r.Kind == model.RelationshipBlocked {
			opposite = model.RelationshipTrusted
		}
		// The opposite-kind guard and the insert run as one statement:
		// two concurrent creates of opposite kinds must not both pass a
		// separate check before either inserts.
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO credential_relationships(form_origin, action_origin, kind,
				created_at, created_by, last_used, use_count, expires_at, notes)
			SELECT ?,?,?,?,?,?,?,?,?
			WHERE NOT EXISTS (
				SELECT 1 FROM credential_relationships
				WHERE form_origin = ? AND action_origin = ? AND kind = ?
			);`,
			r.FormOrigin,
			r.ActionOrigin,
			string(r.Kind),
			r.CreatedAt.UTC().UnixNano(),
			r.CreatedBy,
			unixOrNil(r.LastUsed),
			r.UseCount,
			unixOrNil(r.ExpiresAt),
			r.Notes,
			r.FormOrigin,
			r.ActionOrigin,
			string(opposite),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: relationship (%s, %s, %s) already exists",
					model.ErrConflict, r.FormOrigin, r.ActionOrigin, r.Kind)
			}
			return fmt.Errorf("store: insert relationship: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: (%s, %s) already has a %s relationship",
				model.ErrConflict, r.FormOrigin, r.ActionOrigin, opposite)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// GetRelationship looks up one pairing by origins and kind. Expired rows
// report ErrNotFound; the sweep removes them later.
func (s *Store) GetRelationship(ctx context.Context, formOrigin, actionOrigin string, kind model.RelationshipKind) (model.CredentialRelationship, error) {
	var r model.CredentialRelationship
	err := s.do(func() error {
		row := s.db.QueryRowContext(ctx,
			`SELECT `+relationshipColumns+` FROM credential_relationships
			 WHERE form_origin = ? AND action_origin = ? AND kind = ?;`,
			formOrigin, actionOrigin, string(kind))
		var err error
		r, err = scanRelationship(row)
		if err != nil {
			return err
		}
		if r.Expired(time.Now().UTC()) {
			return model.ErrNotFound
		}
		return nil
	})
	return r, err
}

// ListRelationships returns all pairings, optionally filtered by kind.
func (s *Store) ListRelationships(ctx context.Context, kind model.RelationshipKind) ([]model.CredentialRelationship, error) {
	var out []model.CredentialRelationship
	err := s.do(func() error {
		query := `SELECT ` + relationshipColumns + ` FROM credential_relationships ORDER BY created_at DESC;`
		args := []any{}
		if kind != "" {
			query = `SELECT ` + relationshipColumns + ` FROM credential_relationships
				WHERE kind = ? ORDER BY created_at DESC;`
			args = append(args, string(kind))
		}
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("store: list relationships: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanRelationship(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

// TouchRelationship increments use_count and stamps last_used.
func (s *Store) TouchRelationship(ctx context.Context, id int64) error {
	return s.do(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE credential_relationships
			 SET use_count = use_count + 1, last_used = ? WHERE id = ?;`,
			time.Now().UTC().UnixNano(), id)
		if err != nil {
			return fmt.Errorf("store: touch relationship: %w", err)
		}
		return requireRow(res)
	})
}

// DeleteRelationship revokes a pairing.
func (s *Store) DeleteRelationship(ctx context.Context, id int64) error {
	return s.do(func() error {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM credential_relationships WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("store: delete relationship: %w", err)
		}
		return requireRow(res)
	})
}

func scanRelationship(row rowScanner) (model.CredentialRelationship, error) {
	var (
		r         model.CredentialRelationship
		kind      string
		createdAt int64
		lastUsed  sql.NullInt64
		expiresAt sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.FormOrigin, &r.ActionOrigin, &kind, &createdAt,
		&r.CreatedBy, &lastUsed, &r.UseCount, &expiresAt, &r.Notes)
	if err == sql.ErrNoRows {
		return r, model.ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("store: scan relationship: %w", err)
	}
	r.Kind = model.RelationshipKind(kind)
	r.CreatedAt = time.Unix(0, createdAt).UTC()
	r.LastUsed = timePtr(lastUsed)
	r.ExpiresAt = timePtr(expiresAt)
	return r, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
