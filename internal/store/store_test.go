package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/sentinel/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "policy.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPolicyCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	exp := time.Now().UTC().Add(time.Hour).Truncate(time.Nanosecond)
	p := model.Policy{
		RuleName:   "block-evil",
		URLPattern: "*evil.example*",
		Action:     model.ActionBlock,
		MatchKind:  model.MatchPhishingURL,
		CreatedBy:  "user",
		ExpiresAt:  &exp,
	}

	id, err := s.CreatePolicy(ctx, p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetPolicy(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RuleName != p.RuleName || got.URLPattern != p.URLPattern {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.Action != model.ActionBlock || got.MatchKind != model.MatchPhishingURL {
		t.Errorf("action/kind mismatch: %+v", got)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(exp) {
		t.Errorf("expires_at = %v, want %v", got.ExpiresAt, exp)
	}

	got.Action = model.ActionWarnUser
	if err := s.UpdatePolicy(ctx, id, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = s.GetPolicy(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Action != model.ActionWarnUser {
		t.Errorf("action after update = %q", got.Action)
	}

	if err := s.DeletePolicy(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetPolicy(ctx, id); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("get after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeletePolicy(ctx, id); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("double delete = %v, want ErrNotFound", err)
	}
}

func TestCreatePolicyRejectsInvalid(t *testing.T) {
	s := testStore(t)

	_, err := s.CreatePolicy(context.Background(), model.Policy{
		Action:    model.ActionBlock,
		MatchKind: model.MatchPhishingURL,
	})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	n, err := s.PolicyCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("count after rejected insert = %d", n)
	}
}

func TestListPoliciesNewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		_, err := s.CreatePolicy(ctx, model.Policy{
			RuleName:  fmt.Sprintf("rule-%d", i),
			Action:    model.ActionBlock,
			MatchKind: model.MatchPhishingURL,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListPolicies(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].RuleName != "rule-2" || list[2].RuleName != "rule-0" {
		t.Errorf("order = %s,%s,%s", list[0].RuleName, list[1].RuleName, list[2].RuleName)
	}
}

func TestMatchPriority(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	hash := strings.Repeat("ab", 32)

	mk := func(p model.Policy) int64 {
		t.Helper()
		id, err := s.CreatePolicy(ctx, p)
		if err != nil {
			t.Fatal(err)
		}
		return id
	}
	hashID := mk(model.Policy{ContentHash: hash, Action: model.ActionQuarantine, MatchKind: model.MatchDownloadOriginFileType})
	patternID := mk(model.Policy{URLPattern: "*evil.example*", Action: model.ActionBlock, MatchKind: model.MatchPhishingURL})
	ruleID := mk(model.Policy{RuleName: "generic-rule", Action: model.ActionWarnUser, MatchKind: model.MatchPhishingURL})

	meta := model.ThreatMetadata{
		URL:         "https://evil.example/payload",
		ContentHash: hash,
		RuleName:    "generic-rule",
	}

	// All three fields present: the hash match wins.
	p, err := s.Match(ctx, meta)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != hashID {
		t.Errorf("matched %d, want hash policy %d", p.ID, hashID)
	}

	// No hash: pattern beats rule name.
	meta.ContentHash = ""
	p, err = s.Match(ctx, meta)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != patternID {
		t.Errorf("matched %d, want pattern policy %d", p.ID, patternID)
	}

	// Rule name only.
	meta.URL = "https://unrelated.example"
	p, err = s.Match(ctx, meta)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != ruleID {
		t.Errorf("matched %d, want rule policy %d", p.ID, ruleID)
	}
}

func TestMatchHashCaseInsensitive(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	hash := strings.Repeat("AB", 32)

	id, err := s.CreatePolicy(ctx, model.Policy{
		ContentHash: hash, Action: model.ActionBlock, MatchKind: model.MatchDownloadOriginFileType,
	})
	if err != nil {
		t.Fatal(err)
	}

	p, err := s.Match(ctx, model.ThreatMetadata{ContentHash: strings.ToLower(hash)})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != id {
		t.Errorf("matched %d, want %d", p.ID, id)
	}
}

func TestMatchNotFoundIsNotFailure(t *testing.T) {
	s := testStore(t)

	_, err := s.Match(context.Background(), model.ThreatMetadata{URL: "https://nothing.example"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	// Negative matches never trip the breaker.
	for i := 0; i < 10; i++ {
		if _, err := s.Match(context.Background(), model.ThreatMetadata{URL: "https://nothing.example"}); !errors.Is(err, model.ErrNotFound) {
			t.Fatal(err)
		}
	}
	if m := s.BreakerMetrics(); m.ConsecutiveFailures != 0 {
		t.Errorf("breaker failures = %d after logical misses", m.ConsecutiveFailures)
	}
}

func TestMatchBumpsHitCount(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreatePolicy(ctx, model.Policy{
		RuleName: "hot-rule", Action: model.ActionBlock, MatchKind: model.MatchPhishingURL,
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := s.Match(ctx, model.ThreatMetadata{RuleName: "hot-rule"}); err != nil {
			t.Fatal(err)
		}
	}

	p, err := s.GetPolicy(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if p.HitCount != 3 {
		t.Errorf("hit_count = %d, want 3", p.HitCount)
	}
	if p.LastHit == nil {
		t.Error("last_hit not stamped")
	}
}

func TestMatchSkipsExpired(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Minute)

	_, err := s.CreatePolicy(ctx, model.Policy{
		RuleName: "stale", Action: model.ActionBlock, MatchKind: model.MatchPhishingURL, ExpiresAt: &past,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Match(ctx, model.ThreatMetadata{RuleName: "stale"}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expired policy matched: %v", err)
	}
}

func TestMatchCacheInvalidatedByCreate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	meta := model.ThreatMetadata{RuleName: "late-rule"}

	// Prime the negative cache.
	if _, err := s.Match(ctx, meta); !errors.Is(err, model.ErrNotFound) {
		t.Fatal(err)
	}

	id, err := s.CreatePolicy(ctx, model.Policy{
		RuleName: "late-rule", Action: model.ActionBlock, MatchKind: model.MatchPhishingURL,
	})
	if err != nil {
		t.Fatal(err)
	}

	p, err := s.Match(ctx, meta)
	if err != nil {
		t.Fatalf("match after create: %v", err)
	}
	if p.ID != id {
		t.Errorf("matched %d, want %d", p.ID, id)
	}
}

func TestRelationshipLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	r := model.CredentialRelationship{
		FormOrigin:   "https://login.example",
		ActionOrigin: "https://auth.example",
		Kind:         model.RelationshipTrusted,
		CreatedBy:    "user",
	}
	id, err := s.CreateRelationship(ctx, r)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetRelationship(ctx, r.FormOrigin, r.ActionOrigin, model.RelationshipTrusted)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id || got.UseCount != 0 {
		t.Errorf("got %+v", got)
	}

	if err := s.TouchRelationship(ctx, id); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetRelationship(ctx, r.FormOrigin, r.ActionOrigin, model.RelationshipTrusted)
	if err != nil {
		t.Fatal(err)
	}
	if got.UseCount != 1 {
		t.Errorf("use_count = %d, want exactly 1 per touch", got.UseCount)
	}
	if got.LastUsed == nil {
		t.Error("last_used not stamped")
	}

	if err := s.DeleteRelationship(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRelationship(ctx, r.FormOrigin, r.ActionOrigin, model.RelationshipTrusted); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("get after delete = %v", err)
	}
}

func TestRelationshipConflicts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	r := model.CredentialRelationship{
		FormOrigin:   "https://login.example",
		ActionOrigin: "https://auth.example",
		Kind:         model.RelationshipTrusted,
	}
	if _, err := s.CreateRelationship(ctx, r); err != nil {
		t.Fatal(err)
	}

	// Duplicate of the same kind.
	if _, err := s.CreateRelationship(ctx, r); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("duplicate = %v, want ErrConflict", err)
	}

	// Same pair, opposite kind: also a conflict, existing row untouched.
	r.Kind = model.RelationshipBlocked
	if _, err := s.CreateRelationship(ctx, r); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("opposite kind = %v, want ErrConflict", err)
	}
	if _, err := s.GetRelationship(ctx, r.FormOrigin, r.ActionOrigin, model.RelationshipTrusted); err != nil {
		t.Fatalf("original relationship lost: %v", err)
	}
}

func TestRelationshipExclusiveUnderConcurrency(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	const pairs = 50
	var wg sync.WaitGroup
	errs := make([][2]error, pairs)
	for i := 0; i < pairs; i++ {
		form := fmt.Sprintf("https://login%d.example", i)
		kinds := [2]model.RelationshipKind{model.RelationshipTrusted, model.RelationshipBlocked}
		for j := range kinds {
			wg.Add(1)
			go func(i, j int, kind model.RelationshipKind) {
				defer wg.Done()
				_, errs[i][j] = s.CreateRelationship(ctx, model.CredentialRelationship{
					FormOrigin:   form,
					ActionOrigin: "https://auth.example",
					Kind:         kind,
					CreatedBy:    "user",
				})
			}(i, j, kinds[j])
		}
	}
	wg.Wait()

	for i := 0; i < pairs; i++ {
		created := 0
		for j := 0; j < 2; j++ {
			switch {
			case errs[i][j] == nil:
				created++
			case !errors.Is(errs[i][j], model.ErrConflict):
				t.Fatalf("pair %d kind %d: %v", i, j, errs[i][j])
			}
		}
		if created != 1 {
			t.Errorf("pair %d: %d creates succeeded, want exactly 1", i, created)
		}
	}
}

func TestRelationshipExpiryHidesRow(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Minute)

	_, err := s.CreateRelationship(ctx, model.CredentialRelationship{
		FormOrigin:   "https://a.example",
		ActionOrigin: "https://b.example",
		Kind:         model.RelationshipTrusted,
		ExpiresAt:    &past,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.GetRelationship(ctx, "https://a.example", "https://b.example", model.RelationshipTrusted)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expired relationship visible: %v", err)
	}
}

func TestThreatHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	pid := int64(42)
	_, err := s.RecordThreat(ctx, model.ThreatMetadata{
		URL: "https://evil.example", RuleName: "lookalike", Severity: "high",
	}, "blocked", &pid, `{"score":0.8}`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.RecordThreat(ctx, model.ThreatMetadata{
		URL: "https://other.example", RuleName: "other", Severity: "medium",
	}, "warned", nil, "")
	if err != nil {
		t.Fatal(err)
	}

	all, err := s.ThreatHistory(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d", len(all))
	}
	// Newest first.
	if all[0].URL != "https://other.example" {
		t.Errorf("order wrong: %s first", all[0].URL)
	}

	byRule, err := s.ThreatsByRule(ctx, "lookalike")
	if err != nil {
		t.Fatal(err)
	}
	if len(byRule) != 1 || byRule[0].PolicyID == nil || *byRule[0].PolicyID != 42 {
		t.Errorf("byRule = %+v", byRule)
	}

	recent, err := s.ThreatHistory(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 0 {
		t.Errorf("future cutoff returned %d rows", len(recent))
	}
}

func TestCredentialAlerts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.RecordCredentialAlert(ctx, model.CredentialAlert{
		FormOrigin:        "https://login.example",
		ActionOrigin:      "http://harvest.example",
		AlertType:         "insecure_credential_post",
		Severity:          "high",
		HasPasswordField:  true,
		IsCrossOrigin:     true,
		AnomalyScore:      0.6,
		AnomalyIndicators: []string{"high_hidden_field_ratio", "no_user_interaction"},
	})
	if err != nil {
		t.Fatal(err)
	}

	alerts, err := s.CredentialAlerts(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("len = %d", len(alerts))
	}
	a := alerts[0]
	if !a.HasPasswordField || !a.IsCrossOrigin || a.UsesHTTPS {
		t.Errorf("flags wrong: %+v", a)
	}
	if len(a.AnomalyIndicators) != 2 {
		t.Errorf("indicators = %v", a.AnomalyIndicators)
	}

	if err := s.SetAlertUserAction(ctx, id, "blocked"); err != nil {
		t.Fatal(err)
	}
	byOrigin, err := s.AlertsByOrigin(ctx, "http://harvest.example")
	if err != nil {
		t.Fatal(err)
	}
	if len(byOrigin) != 1 || byOrigin[0].UserAction != "blocked" {
		t.Errorf("byOrigin = %+v", byOrigin)
	}

	// Origins are required.
	if _, err := s.RecordCredentialAlert(ctx, model.CredentialAlert{FormOrigin: "https://a"}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("missing action_origin = %v, want ErrValidation", err)
	}
}

func TestSweepExpired(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Minute)
	future := time.Now().UTC().Add(time.Hour)

	for _, exp := range []*time.Time{&past, &future, nil} {
		_, err := s.CreatePolicy(ctx, model.Policy{
			RuleName: fmt.Sprintf("p-%v", exp), Action: model.ActionBlock,
			MatchKind: model.MatchPhishingURL, ExpiresAt: exp,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	_, err := s.CreateRelationship(ctx, model.CredentialRelationship{
		FormOrigin: "https://a.example", ActionOrigin: "https://b.example",
		Kind: model.RelationshipTrusted, ExpiresAt: &past,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.SweepExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Policies != 1 || res.Relationships != 1 {
		t.Fatalf("swept %+v, want 1 policy and 1 relationship", res)
	}

	n, err := s.PolicyCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("policies remaining = %d, want 2", n)
	}

	// Idempotent: nothing left to remove.
	res, err = s.SweepExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Policies != 0 || res.Relationships != 0 {
		t.Errorf("second sweep removed %+v", res)
	}
}

func TestConcurrentWriters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreatePolicy(ctx, model.Policy{
				RuleName: fmt.Sprintf("rule-%d", i), Action: model.ActionBlock,
				MatchKind: model.MatchPhishingURL,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent create: %v", err)
		}
	}

	count, err := s.PolicyCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != n {
		t.Errorf("count = %d, want %d", count, n)
	}
}

func TestHealthyAndIntegrity(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if !s.Healthy(ctx) {
		t.Error("fresh store not healthy")
	}
	if err := s.VerifyIntegrity(ctx); err != nil {
		t.Errorf("integrity: %v", err)
	}
	if err := s.Vacuum(ctx); err != nil {
		t.Errorf("vacuum: %v", err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
