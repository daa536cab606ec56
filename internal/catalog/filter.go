package catalog

import (
	"slices"
	"sync"

	"github.com/hpungsan/cassettes/internal/tape"
)

// Filter is a search-term projection over a Catalog. It holds no copy of
// the records: every View is computed from the catalog's current list.
//
// A Filter belongs to one client (a request, a CLI invocation). Several
// filters may share a Catalog.
type Filter struct {
	catalog *Catalog

	mu   sync.Mutex
	term string
}

// NewFilter creates an idle filter (empty term) over c.
func NewFilter(c *Catalog) *Filter {
	return &Filter{catalog: c}
}

// SetTerm stores the search term. Nothing is recomputed until View.
func (f *Filter) SetTerm(term string) {
	f.mu.Lock()
	f.term = term
	f.mu.Unlock()
}

// Term returns the stored search term.
func (f *Filter) Term() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.term
}

// Filtering reports whether a non-empty term is set.
func (f *Filter) Filtering() bool {
	return f.Term() != ""
}

// View returns the records matching the current term, most recent first.
// The term and the record list are read together, so a term replaced
// while a view is computed only affects the next View.
func (f *Filter) View() []tape.Tape {
	f.mu.Lock()
	term := f.term
	records := f.catalog.snapshot()
	f.mu.Unlock()

	if term == "" {
		return slices.Clone(records)
	}
	return tape.Filter(records, term)
}
