package store

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/sentinel/internal/model"
)

// Match finds the stored policy governing a threat, by decreasing
// specificity: exact content hash, then URL pattern, then rule name.
// A hit bumps the policy's counters. ErrNotFound is the normal negative
// result, not a failure.
//
// Results are cached in the LRU keyed by the match key; negative results
// are cached too so hot misses skip the scans.
func (s *Store) Match(ctx context.Context, meta model.ThreatMetadata) (model.Policy, error) {
	var matched model.Policy
	err := s.do(func() error {
		key := matchKey(meta)

		if entry, ok := s.cache.get(key); ok {
			if entry.negative {
				return model.ErrNotFound
			}
			p, err := s.matchCachedPolicy(ctx, entry.policyID)
			if err == nil {
				matched = p
				return s.bumpPolicyHit(ctx, p.ID)
			}
			// Row vanished or expired since it was cached; fall through
			// to a fresh scan.
		}

		p, err := s.matchScan(ctx, meta)
		if err != nil {
			if err == model.ErrNotFound {
				s.cache.put(key, cachedMatch{negative: true})
			}
			return err
		}
		s.cache.put(key, cachedMatch{policyID: p.ID})
		matched = p
		return s.bumpPolicyHit(ctx, p.ID)
	})
	return matched, err
}

// matchCachedPolicy re-reads a cached policy id, rejecting expired rows.
func (s *Store) matchCachedPolicy(ctx context.Context, id int64) (model.Policy, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE id = ?;`, id)
	p, err := scanPolicy(row)
	if err != nil {
		return p, err
	}
	if p.Expired(time.Now().UTC()) {
		return p, model.ErrNotFound
	}
	return p, nil
}

func (s *Store) matchScan(ctx context.Context, meta model.ThreatMetadata) (model.Policy, error) {
	now := time.Now().UTC()

	if meta.ContentHash != "" {
		if p, err := s.matchByHash(ctx, meta.ContentHash, now); err == nil {
			return p, nil
		} else if err != model.ErrNotFound {
			return model.Policy{}, err
		}
	}
	if meta.URL != "" {
		if p, err := s.matchByURLPattern(ctx, meta.URL, now); err == nil {
			return p, nil
		} else if err != model.ErrNotFound {
			return model.Policy{}, err
		}
	}
	if meta.RuleName != "" {
		if p, err := s.matchByRuleName(ctx, meta.RuleName, now); err == nil {
			return p, nil
		} else if err != model.ErrNotFound {
			return model.Policy{}, err
		}
	}
	return model.Policy{}, model.ErrNotFound
}

// matchByHash compares candidate hashes in constant time rather than in
// SQL, so lookup timing leaks nothing about stored hash contents.
func (s *Store) matchByHash(ctx context.Context, hash string, now time.Time) (model.Policy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyColumns+` FROM policies
		 WHERE content_hash IS NOT NULL ORDER BY created_at DESC;`)
	if err != nil {
		return model.Policy{}, fmt.Errorf("store: match by hash: %w", err)
	}
	defer rows.Close()

	target := []byte(strings.ToLower(hash))
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return model.Policy{}, err
		}
		if p.Expired(now) {
			continue
		}
		if subtle.ConstantTimeCompare(target, []byte(strings.ToLower(p.ContentHash))) == 1 {
			return p, nil
		}
	}
	if err := rows.Err(); err != nil {
		return model.Policy{}, err
	}
	return model.Policy{}, model.ErrNotFound
}

// matchByURLPattern evaluates stored glob patterns in code; SQL LIKE has
// different wildcard semantics and would require escaping user input.
func (s *Store) matchByURLPattern(ctx context.Context, url string, now time.Time) (model.Policy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyColumns+` FROM policies
		 WHERE url_pattern IS NOT NULL ORDER BY created_at DESC;`)
	if err != nil {
		return model.Policy{}, fmt.Errorf("store: match by url pattern: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return model.Policy{}, err
		}
		if p.Expired(now) {
			continue
		}
		if model.MatchURLPattern(p.URLPattern, url) {
			return p, nil
		}
	}
	if err := rows.Err(); err != nil {
		return model.Policy{}, err
	}
	return model.Policy{}, model.ErrNotFound
}

func (s *Store) matchByRuleName(ctx context.Context, rule string, now time.Time) (model.Policy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyColumns+` FROM policies
		 WHERE rule_name = ? ORDER BY created_at DESC;`, rule)
	if err != nil {
		return model.Policy{}, fmt.Errorf("store: match by rule name: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return model.Policy{}, err
		}
		if p.Expired(now) {
			continue
		}
		return p, nil
	}
	if err := rows.Err(); err != nil {
		return model.Policy{}, err
	}
	return model.Policy{}, model.ErrNotFound
}

// matchKey builds the cache key from the fields matching consults, in
// priority order, so distinct fingerprints never collide.
func matchKey(meta model.ThreatMetadata) string {
	return strings.ToLower(meta.ContentHash) + "|" + meta.URL + "|" + meta.RuleName
}
