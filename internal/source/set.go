// Package source holds the declarative, priority-ordered list of market-data
// providers. Reconcilers ask the Set for every enabled provider with a given
// capability instead of hard-coding a fallback chain.
package source

import (
	"context"
	"sort"
	"time"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// DefaultTimeout bounds a single provider call when none is configured.
const DefaultTimeout = 5 * time.Second

// Provider binds a concrete client to its configured identity. Impl may
// implement any subset of the domain fetcher interfaces.
type Provider struct {
	ID       string
	Priority int
	Enabled  bool
	Timeout  time.Duration
	Impl     any
}

// Bound is a provider narrowed to one capability.
type Bound[T any] struct {
	ID       string
	Priority int
	Timeout  time.Duration
	Fetcher  T
}

// WithTimeout derives the per-call context for this provider.
func (b Bound[T]) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// Set is an immutable, priority-ordered provider list.
type Set struct {
	providers []Provider
}

// NewSet sorts providers by ascending priority, then ID.
func NewSet(providers ...Provider) *Set {
	ps := make([]Provider, len(providers))
	copy(ps, providers)
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Priority != ps[j].Priority {
			return ps[i].Priority < ps[j].Priority
		}
		return ps[i].ID < ps[j].ID
	})
	return &Set{providers: ps}
}

// Providers returns every configured provider in priority order, enabled or
// not.
func (s *Set) Providers() []Provider {
	out := make([]Provider, len(s.providers))
	copy(out, s.providers)
	return out
}

// Rank returns the position of id in priority order, or len(providers) for
// an unknown id. Reconcilers use it to break ties.
func (s *Set) Rank(id string) int {
	for i, p := range s.providers {
		if p.ID == id {
			return i
		}
	}
	return len(s.providers)
}

func (s *Set) PriceFetchers() []Bound[domain.PriceFetcher] {
	return capable[domain.PriceFetcher](s)
}

func (s *Set) NavFetchers() []Bound[domain.NavFetcher] {
	return capable[domain.NavFetcher](s)
}

func (s *Set) FundListers() []Bound[domain.FundLister] {
	return capable[domain.FundLister](s)
}

func (s *Set) LimitFetchers() []Bound[domain.PurchaseLimitFetcher] {
	return capable[domain.PurchaseLimitFetcher](s)
}

func capable[T any](s *Set) []Bound[T] {
	var out []Bound[T]
	for _, p := range s.providers {
		if !p.Enabled {
			continue
		}
		f, ok := p.Impl.(T)
		if !ok {
			continue
		}
		out = append(out, Bound[T]{ID: p.ID, Priority: p.Priority, Timeout: p.Timeout, Fetcher: f})
	}
	return out
}
