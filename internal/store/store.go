// Package store is the durable policy decision store: policies,
// credential relationships, threat history, credential alerts, and
// policy templates in a single SQLite database file per profile.
//
// WAL journaling gives concurrent readers alongside one committed
// writer. Every statement is parameterized — caller-supplied values are
// never concatenated into SQL. A circuit breaker fronts all operations
// so a broken database degrades to "no policy found" instead of hanging
// navigation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/sentinel/internal/breaker"
	"github.com/ppiankov/sentinel/internal/model"
)

// cacheSize bounds the policy match LRU.
const cacheSize = 1000

// Store owns the database and is the only writer of policy state.
// Query methods return row copies; no live handles cross the boundary.
type Store struct {
	db      *sql.DB
	cache   *policyCache
	breaker *breaker.Breaker
}

// Open opens (creating if needed) the database at path and migrates the
// schema. WAL mode and busy timeout are set through the DSN so every
// pooled connection gets them.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: mkdir db dir: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	cache, err := newPolicyCache(cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:      db,
		cache:   cache,
		breaker: breaker.New(breaker.DatabaseConfig()),
	}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DefaultPath returns the per-profile database location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "sentinel", "policy.db")
	}
	return filepath.Join(home, ".sentinel", "policy.db")
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS policies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rule_name TEXT,
			url_pattern TEXT,
			content_hash TEXT,
			mime_type TEXT,
			action TEXT NOT NULL,
			match_kind TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			created_by TEXT NOT NULL DEFAULT '',
			expires_at INTEGER,
			hit_count INTEGER NOT NULL DEFAULT 0,
			last_hit INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_policies_hash ON policies(content_hash);`,
		`CREATE INDEX IF NOT EXISTS idx_policies_rule ON policies(rule_name);`,
		`CREATE INDEX IF NOT EXISTS idx_policies_expires ON policies(expires_at);`,
		`CREATE TABLE IF NOT EXISTS credential_relationships (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			form_origin TEXT NOT NULL,
			action_origin TEXT NOT NULL,
			kind TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			created_by TEXT NOT NULL DEFAULT '',
			last_used INTEGER,
			use_count INTEGER NOT NULL DEFAULT 0,
			expires_at INTEGER,
			notes TEXT NOT NULL DEFAULT '',
			UNIQUE(form_origin, action_origin, kind)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_pair ON credential_relationships(form_origin, action_origin);`,
		`CREATE TABLE IF NOT EXISTS threat_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			detected_at INTEGER NOT NULL,
			url TEXT NOT NULL,
			filename TEXT,
			content_hash TEXT,
			mime_type TEXT,
			file_size INTEGER NOT NULL DEFAULT 0,
			rule_name TEXT,
			severity TEXT NOT NULL,
			action_taken TEXT NOT NULL,
			policy_id INTEGER,
			alert_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_threats_detected ON threat_history(detected_at);`,
		`CREATE INDEX IF NOT EXISTS idx_threats_rule ON threat_history(rule_name);`,
		`CREATE TABLE IF NOT EXISTS credential_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			detected_at INTEGER NOT NULL,
			form_origin TEXT NOT NULL,
			action_origin TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			has_password_field INTEGER NOT NULL DEFAULT 0,
			has_email_field INTEGER NOT NULL DEFAULT 0,
			uses_https INTEGER NOT NULL DEFAULT 0,
			is_cross_origin INTEGER NOT NULL DEFAULT 0,
			user_action TEXT,
			policy_id INTEGER,
			anomaly_score REAL NOT NULL DEFAULT 0,
			anomaly_indicators TEXT,
			alert_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_detected ON credential_alerts(detected_at);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_origin ON credential_alerts(form_origin, action_origin);`,
		`CREATE TABLE IF NOT EXISTS policy_templates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			template_json TEXT NOT NULL,
			builtin INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// do runs op behind the circuit breaker. Logical outcomes (not found,
// conflict, validation) never count as storage failures; only real
// database errors advance the breaker toward open.
func (s *Store) do(op func() error) error {
	if err := s.breaker.Allow(); err != nil {
		return model.ErrStorageUnavailable
	}
	err := op()
	if err == nil || isLogicalError(err) {
		s.breaker.RecordSuccess()
		return err
	}
	s.breaker.RecordFailure()
	return err
}

func isLogicalError(err error) bool {
	return errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrConflict) ||
		errors.Is(err, model.ErrValidation)
}

// Healthy reports whether the breaker is closed and a trivial query
// succeeds.
func (s *Store) Healthy(ctx context.Context) bool {
	if s.breaker.State() == breaker.Open {
		return false
	}
	var one int
	return s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one) == nil
}

// VerifyIntegrity runs SQLite's integrity check. A passing check also
// resets the circuit breaker.
func (s *Store) VerifyIntegrity(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check;`).Scan(&result); err != nil {
		return fmt.Errorf("store: integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("store: integrity check failed: %s", result)
	}
	s.breaker.Reset()
	return nil
}

// Vacuum reclaims space after large deletes.
func (s *Store) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `VACUUM;`)
	if err != nil {
		return fmt.Errorf("store: vacuum: %w", err)
	}
	return nil
}

// BreakerMetrics exposes a snapshot of the circuit breaker counters.
func (s *Store) BreakerMetrics() breaker.Metrics { return s.breaker.Snapshot() }

// CacheMetrics exposes a snapshot of the match cache counters.
func (s *Store) CacheMetrics() CacheMetrics { return s.cache.metrics() }

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
