package store

import (
	"context"
	"fmt"
	"time"
)

// SweepResult reports what one expiry pass removed.
type SweepResult struct {
	Policies      int64 `json:"policies"`
	Relationships int64 `json:"relationships"`
}

// SweepExpired deletes policies and relationships whose expires_at has
// passed. Rows without an expiry are never touched. The sweep is
// idempotent: a second pass with no intervening expiries removes
// nothing.
func (s *Store) SweepExpired(ctx context.Context) (SweepResult, error) {
	var out SweepResult
	err := s.do(func() error {
		now := time.Now().UTC().UnixNano()

		res, err := s.db.ExecContext(ctx,
			`DELETE FROM policies WHERE expires_at IS NOT NULL AND expires_at < ?;`, now)
		if err != nil {
			return fmt.Errorf("store: sweep policies: %w", err)
		}
		out.Policies, _ = res.RowsAffected()

		res, err = s.db.ExecContext(ctx,
			`DELETE FROM credential_relationships WHERE expires_at IS NOT NULL AND expires_at < ?;`, now)
		if err != nil {
			return fmt.Errorf("store: sweep relationships: %w", err)
		}
		out.Relationships, _ = res.RowsAffected()

		if out.Policies > 0 {
			s.cache.purge()
		}
		return nil
	})
	return out, err
}

// RunSweeper deletes expired rows on a fixed interval until ctx is
// cancelled. Intended to be launched once per store as a goroutine.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(SweepResult)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := s.SweepExpired(ctx)
			if err != nil {
				continue
			}
			if onSweep != nil && (res.Policies > 0 || res.Relationships > 0) {
				onSweep(res)
			}
		}
	}
}
