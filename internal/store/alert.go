package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/sentinel/internal/model"
)

const alertColumns = `id, detected_at, form_origin, action_origin, alert_type, severity,
	has_password_field, has_email_field, uses_https, is_cross_origin,
	user_action, policy_id, anomaly_score, anomaly_indicators, alert_json`

// RecordCredentialAlert inserts a form-submission alert row.
func (s *Store) RecordCredentialAlert(ctx context.Context, a model.CredentialAlert) (int64, error) {
	var id int64
	err := s.do(func() error {
		if a.FormOrigin == "" || a.ActionOrigin == "" {
			return fmt.Errorf("%w: alert needs form_origin and action_origin", model.ErrValidation)
		}
		if a.DetectedAt.IsZero() {
			a.DetectedAt = time.Now().UTC()
		}
		indicators, err := json.Marshal(a.AnomalyIndicators)
		if err != nil {
			return fmt.Errorf("store: marshal indicators: %w", err)
		}
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO credential_alerts(detected_at, form_origin, action_origin, alert_type,
				severity, has_password_field, has_email_field, uses_https, is_cross_origin,
				user_action, policy_id, anomaly_score, anomaly_indicators, alert_json)
			VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
			a.DetectedAt.UTC().UnixNano(),
			a.FormOrigin,
			a.ActionOrigin,
			a.AlertType,
			a.Severity,
			boolToInt(a.HasPasswordField),
			boolToInt(a.HasEmailField),
			boolToInt(a.UsesHTTPS),
			boolToInt(a.IsCrossOrigin),
			nullString(a.UserAction),
			policyIDArg(a.PolicyID),
			a.AnomalyScore,
			string(indicators),
			nullString(a.AlertJSON),
		)
		if err != nil {
			return fmt.Errorf("store: record credential alert: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// CredentialAlerts returns alerts, newest first. A zero since returns
// everything.
func (s *Store) CredentialAlerts(ctx context.Context, since time.Time) ([]model.CredentialAlert, error) {
	var out []model.CredentialAlert
	err := s.do(func() error {
		query := `SELECT ` + alertColumns + ` FROM credential_alerts ORDER BY detected_at DESC;`
		args := []any{}
		if !since.IsZero() {
			query = `SELECT ` + alertColumns + ` FROM credential_alerts
				WHERE detected_at >= ? ORDER BY detected_at DESC;`
			args = append(args, since.UTC().UnixNano())
		}
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("store: credential alerts: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			a, err := scanAlert(rows)
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	return out, err
}

// AlertsByOrigin returns alerts where either side matches the origin.
func (s *Store) AlertsByOrigin(ctx context.Context, origin string) ([]model.CredentialAlert, error) {
	var out []model.CredentialAlert
	err := s.do(func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+alertColumns+` FROM credential_alerts
			 WHERE form_origin = ? OR action_origin = ? ORDER BY detected_at DESC;`,
			origin, origin)
		if err != nil {
			return fmt.Errorf("store: alerts by origin: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			a, err := scanAlert(rows)
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	return out, err
}

// SetAlertUserAction records the user's response on an existing alert.
func (s *Store) SetAlertUserAction(ctx context.Context, id int64, userAction string) error {
	return s.do(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE credential_alerts SET user_action = ? WHERE id = ?;`, userAction, id)
		if err != nil {
			return fmt.Errorf("store: set alert user action: %w", err)
		}
		return requireRow(res)
	})
}

func scanAlert(row rowScanner) (model.CredentialAlert, error) {
	var (
		a           model.CredentialAlert
		detectedAt  int64
		hasPassword int
		hasEmail    int
		usesHTTPS   int
		crossOrigin int
		userAction  sql.NullString
		policyID    sql.NullInt64
		indicators  sql.NullString
		alertJSON   sql.NullString
	)
	err := row.Scan(&a.ID, &detectedAt, &a.FormOrigin, &a.ActionOrigin, &a.AlertType,
		&a.Severity, &hasPassword, &hasEmail, &usesHTTPS, &crossOrigin,
		&userAction, &policyID, &a.AnomalyScore, &indicators, &alertJSON)
	if err == sql.ErrNoRows {
		return a, model.ErrNotFound
	}
	if err != nil {
		return a, fmt.Errorf("store: scan alert: %w", err)
	}
	a.DetectedAt = time.Unix(0, detectedAt).UTC()
	a.HasPasswordField = hasPassword != 0
	a.HasEmailField = hasEmail != 0
	a.UsesHTTPS = usesHTTPS != 0
	a.IsCrossOrigin = crossOrigin != 0
	a.UserAction = orEmpty(userAction)
	a.PolicyID = int64Ptr(policyID)
	a.AlertJSON = orEmpty(alertJSON)
	if s := orEmpty(indicators); s != "" {
		_ = json.Unmarshal([]byte(s), &a.AnomalyIndicators)
	}
	return a, nil
}
