package store

import (
	"database/sql"
	"time"
)

// Timestamps are stored as unix nanoseconds, matching WAL-friendly
// integer affinity and avoiding locale-dependent text parsing.

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixNano()
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func orEmpty(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.String
}
