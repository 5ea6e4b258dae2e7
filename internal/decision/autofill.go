package decision

import "sync"

// AutofillOverrides tracks one-time user grants that let a single
// autofill proceed on a form the monitor would otherwise hold back.
// Overrides are in-memory only: they do not survive a restart and each
// grant is consumed by exactly one use.
type AutofillOverrides struct {
	mu     sync.Mutex
	grants map[string]map[string]struct{}
}

// NewAutofillOverrides returns an empty override set.
func NewAutofillOverrides() *AutofillOverrides {
	return &AutofillOverrides{grants: make(map[string]map[string]struct{})}
}

// Grant records a one-time override for a field on a form origin.
func (o *AutofillOverrides) Grant(formOrigin, field string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	set, ok := o.grants[formOrigin]
	if !ok {
		set = make(map[string]struct{})
		o.grants[formOrigin] = set
	}
	set[field] = struct{}{}
}

// Has reports whether an unconsumed override exists.
func (o *AutofillOverrides) Has(formOrigin, field string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.grants[formOrigin][field]
	return ok
}

// Consume uses up an override, reporting whether one existed. A second
// Consume for the same grant returns false.
func (o *AutofillOverrides) Consume(formOrigin, field string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	set, ok := o.grants[formOrigin]
	if !ok {
		return false
	}
	if _, ok := set[field]; !ok {
		return false
	}
	delete(set, field)
	if len(set) == 0 {
		delete(o.grants, formOrigin)
	}
	return true
}
