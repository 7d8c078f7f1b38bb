package policy

import (
	"fmt"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// Registry holds the browser policies for one platform in probe order.
type Registry struct {
	goos     string
	policies []BrowserPolicy
}

// NewRegistry creates a registry with the default browsers supported on goos.
// Order is chrome, edge, safari; unsupported browsers are left out.
func NewRegistry(goos string) *Registry {
	return NewRegistryWithPolicies(goos, NewChromePolicy(), NewEdgePolicy(), NewSafariPolicy())
}

// NewRegistryWithPolicies creates a registry with custom policies (for testing).
func NewRegistryWithPolicies(goos string, policies ...BrowserPolicy) *Registry {
	r := &Registry{goos: goos}
	for _, p := range policies {
		r.Register(p)
	}
	return r
}

// Register appends a policy if it is supported on the registry's platform.
// Re-registering an ID replaces the previous policy in place.
func (r *Registry) Register(p BrowserPolicy) {
	if !p.Supported(r.goos) {
		return
	}
	for i, existing := range r.policies {
		if existing.ID() == p.ID() {
			r.policies[i] = p
			return
		}
	}
	r.policies = append(r.policies, p)
}

// Get returns a policy by ID.
func (r *Registry) Get(id domain.BrowserID) (BrowserPolicy, bool) {
	for _, p := range r.policies {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

// GetAll returns all registered policies in probe order.
func (r *Registry) GetAll() []BrowserPolicy {
	return append([]BrowserPolicy(nil), r.policies...)
}

// IDs returns the browser IDs in probe order.
func (r *Registry) IDs() []domain.BrowserID {
	ids := make([]domain.BrowserID, 0, len(r.policies))
	for _, p := range r.policies {
		ids = append(ids, p.ID())
	}
	return ids
}

// GOOS returns the platform this registry was built for.
func (r *Registry) GOOS() string {
	return r.goos
}

// ProcessPatterns returns the process names for a browser on this platform.
func (r *Registry) ProcessPatterns(id domain.BrowserID) ([]string, error) {
	p, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedBrowser, id, r.goos)
	}
	return p.ProcessPatterns(r.goos), nil
}
