// Package whitelist decides which assets count towards tracked USD metrics.
package whitelist

import "sync"

// Registry holds the trusted and excluded asset sequences.
// Both sequences keep insertion order and may contain duplicates; membership
// is an exact string comparison, so identifiers must already be canonical.
type Registry struct {
	mu       sync.RWMutex
	trusted  []string
	excluded []string
}

// NewRegistry creates a registry from the configured trusted and excluded ids.
func NewRegistry(trusted, excluded []string) *Registry {
	return &Registry{
		trusted:  append([]string(nil), trusted...),
		excluded: append([]string(nil), excluded...),
	}
}

// IsTrusted reports whether id is on the whitelist.
func (r *Registry) IsTrusted(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return contains(r.trusted, id)
}

// IsBlacklisted reports whether id has been excluded.
func (r *Registry) IsBlacklisted(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return contains(r.excluded, id)
}

// Exclude appends id to the exclusion sequence. Repeated calls append again.
func (r *Registry) Exclude(id string) {
	r.mu.Lock()
	r.excluded = append(r.excluded, id)
	r.mu.Unlock()
}

// Trusted returns a copy of the whitelist in insertion order.
func (r *Registry) Trusted() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.trusted...)
}

// Excluded returns a copy of the exclusion sequence in insertion order.
func (r *Registry) Excluded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.excluded...)
}

func contains(seq []string, id string) bool {
	for _, v := range seq {
		if v == id {
			return true
		}
	}
	return false
}
