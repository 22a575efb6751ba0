// Package index builds the whole-project reference index: every use of
// every symbol, deduplicated by call site. Caller counts come from this
// index and never from text matching.
package index

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/slopdetect/slop/internal/source"
)

// CallSite identifies one reference to a symbol. Two occurrences are the
// same call site only when file, line and enclosing scope all match.
type CallSite struct {
	File  string
	Line  uint32
	Scope string // qualified enclosing scope within the file, "" for module level
	Test  bool   // reference originates in an index-only test file
}

// CallDetail pairs a call site with the argument list of the call
// expression, when the reference is the callee of a call. Verification
// uses the arguments for per-call-site reachability checks.
type CallDetail struct {
	Site CallSite
	Args *sitter.Node
	File *source.File
}

// Cardinality is the verified caller count of a symbol.
type Cardinality struct {
	// Total is the number of distinct call sites, test files included.
	Total int
	// Production excludes test-file call sites.
	Production int
	// Opaque marks a symbol reachable through dynamic or reflective
	// access. Opaque symbols have unbounded callers: never zero, never
	// one, for any cardinality-based check.
	Opaque bool
}

// Index is the frozen reference index. Built once per scan over every
// file's tree (production and index-only alike), read-only afterward.
type Index struct {
	refs   map[string]map[CallSite]struct{}
	calls  map[string][]CallDetail
	opaque map[string]bool
}

// New creates an empty index. Callers normally use Build.
func New() *Index {
	return &Index{
		refs:   make(map[string]map[CallSite]struct{}),
		calls:  make(map[string][]CallDetail),
		opaque: make(map[string]bool),
	}
}

// Record adds a reference to sym at site. Duplicate sites collapse.
func (ix *Index) Record(sym *source.Symbol, site CallSite) {
	sites, ok := ix.refs[sym.ID]
	if !ok {
		sites = make(map[CallSite]struct{})
		ix.refs[sym.ID] = sites
	}
	sites[site] = struct{}{}
}

// RecordOpaque marks sym as reachable through an access that cannot be
// statically bound.
func (ix *Index) RecordOpaque(sym *source.Symbol) {
	ix.opaque[sym.ID] = true
}

// CallerCount returns the deduplicated caller cardinality of sym.
func (ix *Index) CallerCount(sym *source.Symbol) Cardinality {
	c := Cardinality{Opaque: ix.opaque[sym.ID]}
	for site := range ix.refs[sym.ID] {
		c.Total++
		if !site.Test {
			c.Production++
		}
	}
	return c
}

// Callers returns the distinct call sites of sym in deterministic order.
func (ix *Index) Callers(sym *source.Symbol) []CallSite {
	out := make([]CallSite, 0, len(ix.refs[sym.ID]))
	for site := range ix.refs[sym.ID] {
		out = append(out, site)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Scope < out[j].Scope
	})
	return out
}

// Calls returns the call expressions targeting sym, with argument lists,
// in deterministic order. References that are not calls (bare name uses,
// decorator mentions) do not appear here.
func (ix *Index) Calls(sym *source.Symbol) []CallDetail {
	out := make([]CallDetail, len(ix.calls[sym.ID]))
	copy(out, ix.calls[sym.ID])
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Site, out[j].Site
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Scope < b.Scope
	})
	return out
}

func (ix *Index) recordCall(sym *source.Symbol, d CallDetail) {
	for _, existing := range ix.calls[sym.ID] {
		if existing.Site == d.Site {
			return
		}
	}
	ix.calls[sym.ID] = append(ix.calls[sym.ID], d)
}
