// Package selector locates functional elements on a third-party page whose
// markup changes without notice. Every UI role the publisher needs is backed
// by a ranked list of candidate locators; resolution walks the list in order
// within a bounded budget and reports which candidate matched.
package selector

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Candidate is one locator strategy for a UI role.
type Candidate struct {
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
}

// CandidateSet is the ordered list of candidates registered for one role.
// Order is significant: earlier candidates are preferred.
type CandidateSet struct {
	Role       string      `yaml:"role"`
	Candidates []Candidate `yaml:"candidates"`
}

// Match reports the candidate that resolved for a role.
type Match struct {
	Role      string
	Candidate Candidate
	// Index is the position of the winning candidate in the set.
	Index int
}

// ResolutionFailure is returned when no candidate resolved within the budget.
// It is always non-fatal to the run as a whole but fatal to the current stage.
type ResolutionFailure struct {
	Role            string
	CandidatesTried []string
	Budget          time.Duration
}

func (e *ResolutionFailure) Error() string {
	return fmt.Sprintf("no locator resolved for role %q within %v (tried: %s)",
		e.Role, e.Budget, strings.Join(e.CandidatesTried, ", "))
}

// ProbeFunc attempts to find a matching, currently-interactable element for
// query within the lifetime of ctx. A nil return means the element is present.
type ProbeFunc func(ctx context.Context, query string) error

// minSlice is the floor for a per-candidate probe; below this the probe is
// mostly connection overhead and tells us nothing.
const minSlice = 200 * time.Millisecond

// Resolver resolves UI roles against a live page through a probe.
type Resolver struct {
	registry Registry
	probe    ProbeFunc
}

// NewResolver creates a resolver over the given registry and probe.
func NewResolver(reg Registry, probe ProbeFunc) *Resolver {
	return &Resolver{registry: reg, probe: probe}
}

// Resolve tries each candidate for role in declaration order and returns the
// first that resolves. The budget is divided across candidates, not
// multiplied, so worst-case latency stays bounded by roughly one budget.
func (r *Resolver) Resolve(ctx context.Context, role string, budget time.Duration) (Match, error) {
	set, ok := r.registry[role]
	if !ok || len(set.Candidates) == 0 {
		return Match{}, fmt.Errorf("no candidate set registered for role %q", role)
	}

	// The outer deadline carries the full budget; per-candidate slices may
	// be floored, but the walk can never exceed the role budget.
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	slice := budget / time.Duration(len(set.Candidates))
	if slice < minSlice {
		slice = minSlice
	}

	tried := make([]string, 0, len(set.Candidates))
	for i, c := range set.Candidates {
		tried = append(tried, c.Name)

		probeCtx, probeCancel := context.WithTimeout(ctx, slice)
		err := r.probe(probeCtx, c.Query)
		probeCancel()

		if err == nil {
			return Match{Role: role, Candidate: c, Index: i}, nil
		}
		if ctx.Err() != nil {
			break
		}
	}

	return Match{}, &ResolutionFailure{Role: role, CandidatesTried: tried, Budget: budget}
}

// Known reports whether a candidate set exists for role.
func (r *Resolver) Known(role string) bool {
	set, ok := r.registry[role]
	return ok && len(set.Candidates) > 0
}
