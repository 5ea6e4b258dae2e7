package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ppiankov/sentinel/internal/model"
)

const threatColumns = `id, detected_at, url, filename, content_hash, mime_type, file_size,
	rule_name, severity, action_taken, policy_id, alert_json`

// RecordThreat appends one immutable row to the threat history.
// There is deliberately no update path for this table.
func (s *Store) RecordThreat(ctx context.Context, meta model.ThreatMetadata, actionTaken string, policyID *int64, alertJSON string) (int64, error) {
	var id int64
	err := s.do(func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO threat_history(detected_at, url, filename, content_hash, mime_type,
				file_size, rule_name, severity, action_taken, policy_id, alert_json)
			VALUES(?,?,?,?,?,?,?,?,?,?,?);`,
			time.Now().UTC().UnixNano(),
			meta.URL,
			nullString(meta.Filename),
			nullString(meta.ContentHash),
			nullString(meta.MimeType),
			int64(meta.FileSize),
			nullString(meta.RuleName),
			meta.Severity,
			actionTaken,
			policyIDArg(policyID),
			nullString(alertJSON),
		)
		if err != nil {
			return fmt.Errorf("store: record threat: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// ThreatHistory returns threat records, newest first. A zero since
// returns everything.
func (s *Store) ThreatHistory(ctx context.Context, since time.Time) ([]model.ThreatRecord, error) {
	var out []model.ThreatRecord
	err := s.do(func() error {
		query := `SELECT ` + threatColumns + ` FROM threat_history ORDER BY detected_at DESC;`
		args := []any{}
		if !since.IsZero() {
			query = `SELECT ` + threatColumns + ` FROM threat_history
				WHERE detected_at >= ? ORDER BY detected_at DESC;`
			args = append(args, since.UTC().UnixNano())
		}
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("store: threat history: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanThreat(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

// ThreatsByRule returns threat records matching a rule name.
func (s *Store) ThreatsByRule(ctx context.Context, rule string) ([]model.ThreatRecord, error) {
	var out []model.ThreatRecord
	err := s.do(func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+threatColumns+` FROM threat_history
			 WHERE rule_name = ? ORDER BY detected_at DESC;`, rule)
		if err != nil {
			return fmt.Errorf("store: threats by rule: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanThreat(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

// ThreatCount returns the number of history rows.
func (s *Store) ThreatCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.do(func() error {
		return s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threat_history;`).Scan(&n)
	})
	return n, err
}

// CleanupOldThreats deletes history older than the retention window.
func (s *Store) CleanupOldThreats(ctx context.Context, keep time.Duration) (int64, error) {
	var deleted int64
	err := s.do(func() error {
		cutoff := time.Now().UTC().Add(-keep).UnixNano()
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM threat_history WHERE detected_at < ?;`, cutoff)
		if err != nil {
			return fmt.Errorf("store: cleanup old threats: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

func scanThreat(row rowScanner) (model.ThreatRecord, error) {
	var (
		r          model.ThreatRecord
		detectedAt int64
		filename   sql.NullString
		hash       sql.NullString
		mime       sql.NullString
		fileSize   int64
		rule       sql.NullString
		policyID   sql.NullInt64
		alertJSON  sql.NullString
	)
	err := row.Scan(&r.ID, &detectedAt, &r.URL, &filename, &hash, &mime, &fileSize,
		&rule, &r.Severity, &r.ActionTaken, &policyID, &alertJSON)
	if err == sql.ErrNoRows {
		return r, model.ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("store: scan threat: %w", err)
	}
	r.DetectedAt = time.Unix(0, detectedAt).UTC()
	r.Filename = orEmpty(filename)
	r.ContentHash = orEmpty(hash)
	r.MimeType = orEmpty(mime)
	r.FileSize = uint64(fileSize)
	r.RuleName = orEmpty(rule)
	r.PolicyID = int64Ptr(policyID)
	r.AlertJSON = orEmpty(alertJSON)
	return r, nil
}

func policyIDArg(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
