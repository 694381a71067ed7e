// Package extractor parses seller pages into price records, one strategy
// per supported storefront.
package extractor

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"pricescout/internal/pricing"
)

// ErrUnknownSite is returned when no strategy is registered for a site
// identifier. The dispatcher treats it as a configuration error and fails
// the run before submitting any task.
var ErrUnknownSite = errors.New("unknown site identifier")

// Deps carries everything a strategy needs to do its work.
type Deps struct {
	Fetcher pricing.Fetcher
	Clock   pricing.Clock
	Logger  *zap.Logger
}

// Builder constructs a strategy from its dependencies.
type Builder func(deps Deps) pricing.Extractor

// Registry maps site identifiers to extractor builders. New storefronts are
// supported by registering another builder under their identifier.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry pre-loaded with the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	r.Register(SiteSSG, func(deps Deps) pricing.Extractor { return NewSSG(deps) })
	r.Register(SiteGmarket, func(deps Deps) pricing.Extractor { return NewGmarket(deps) })
	return r
}

// Register adds or replaces the builder for a site identifier.
func (r *Registry) Register(site string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[site] = b
}

// New builds the strategy for the given site identifier.
func (r *Registry) New(site string, deps Deps) (pricing.Extractor, error) {
	r.mu.RLock()
	b, ok := r.builders[site]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSite, site)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return b(deps), nil
}

// Sites lists the registered site identifiers, sorted.
func (r *Registry) Sites() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sites := make([]string, 0, len(r.builders))
	for site := range r.builders {
		sites = append(sites, site)
	}
	sort.Strings(sites)
	return sites
}
