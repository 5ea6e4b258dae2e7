package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ppiankov/sentinel/internal/model"
)

const policyColumns = `id, rule_name, url_pattern, content_hash, mime_type, action, match_kind,
	created_at, created_by, expires_at, hit_count, last_hit`

// CreatePolicy validates and inserts a policy, returning its id.
// The match cache is purged before the insert is acknowledged.
func (s *Store) CreatePolicy(ctx context.Context, p model.Policy) (int64, error) {
	var id int64
	err := s.do(func() error {
		if err := p.Validate(); err != nil {
			return err
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		s.cache.purge()
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO policies(rule_name, url_pattern, content_hash, mime_type, action, match_kind,
				created_at, created_by, expires_at, hit_count, last_hit)
			VALUES(?,?,?,?,?,?,?,?,?,?,?);`,
			nullString(p.RuleName),
			nullString(p.URLPattern),
			nullString(p.ContentHash),
			nullString(p.MimeType),
			string(p.Action),
			string(p.MatchKind),
			p.CreatedAt.UTC().UnixNano(),
			p.CreatedBy,
			unixOrNil(p.ExpiresAt),
			p.HitCount,
			unixOrNil(p.LastHit),
		)
		if err != nil {
			return fmt.Errorf("store: insert policy: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// GetPolicy returns one policy by id.
func (s *Store) GetPolicy(ctx context.Context, id int64) (model.Policy, error) {
	var p model.Policy
	err := s.do(func() error {
		row := s.db.QueryRowContext(ctx,
			`SELECT `+policyColumns+` FROM policies WHERE id = ?;`, id)
		var err error
		p, err = scanPolicy(row)
		return err
	})
	return p, err
}

// ListPolicies returns all policies, newest first.
func (s *Store) ListPolicies(ctx context.Context) ([]model.Policy, error) {
	var out []model.Policy
	err := s.do(func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+policyColumns+` FROM policies ORDER BY created_at DESC;`)
		if err != nil {
			return fmt.Errorf("store: list policies: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			p, err := scanPolicy(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, err
}

// UpdatePolicy replaces a policy's fields by id.
func (s *Store) UpdatePolicy(ctx context.Context, id int64, p model.Policy) error {
	return s.do(func() error {
		if err := p.Validate(); err != nil {
			return err
		}
		s.cache.purge()
		res, err := s.db.ExecContext(ctx, `
			UPDATE policies SET rule_name=?, url_pattern=?, content_hash=?, mime_type=?,
				action=?, match_kind=?, created_by=?, expires_at=?
			WHERE id = ?;`,
			nullString(p.RuleName),
			nullString(p.URLPattern),
			nullString(p.ContentHash),
			nullString(p.MimeType),
			string(p.Action),
			string(p.MatchKind),
			p.CreatedBy,
			unixOrNil(p.ExpiresAt),
			id,
		)
		if err != nil {
			return fmt.Errorf("store: update policy: %w", err)
		}
		return requireRow(res)
	})
}

// DeletePolicy removes a policy by id.
func (s *Store) DeletePolicy(ctx context.Context, id int64) error {
	return s.do(func() error {
		s.cache.purge()
		res, err := s.db.ExecContext(ctx, `DELETE FROM policies WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("store: delete policy: %w", err)
		}
		return requireRow(res)
	})
}

// PolicyCount returns the number of stored policies.
func (s *Store) PolicyCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.do(func() error {
		return s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM policies;`).Scan(&n)
	})
	return n, err
}

// bumpPolicyHit increments hit_count and stamps last_hit. Hit counts are
// monotonically non-decreasing while the policy is live.
func (s *Store) bumpPolicyHit(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE policies SET hit_count = hit_count + 1, last_hit = ? WHERE id = ?;`,
		time.Now().UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("store: bump policy hit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (model.Policy, error) {
	var (
		p          model.Policy
		ruleName   sql.NullString
		urlPattern sql.NullString
		hash       sql.NullString
		mime       sql.NullString
		action     string
		matchKind  string
		createdAt  int64
		expiresAt  sql.NullInt64
		lastHit    sql.NullInt64
	)
	err := row.Scan(&p.ID, &ruleName, &urlPattern, &hash, &mime, &action, &matchKind,
		&createdAt, &p.CreatedBy, &expiresAt, &p.HitCount, &lastHit)
	if err == sql.ErrNoRows {
		return p, model.ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("store: scan policy: %w", err)
	}
	p.RuleName = orEmpty(ruleName)
	p.URLPattern = orEmpty(urlPattern)
	p.ContentHash = orEmpty(hash)
	p.MimeType = orEmpty(mime)
	p.Action = model.PolicyAction(action)
	p.MatchKind = model.MatchKind(matchKind)
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.ExpiresAt = timePtr(expiresAt)
	p.LastHit = timePtr(lastHit)
	return p, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
