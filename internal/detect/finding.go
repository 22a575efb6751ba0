// Package detect holds the bloat pattern detectors. Each detector is a
// pure structural predicate over a single file's source model; cross-file
// evidence is strictly the verifier's business.
package detect

import (
	"fmt"

	"github.com/slopdetect/slop/internal/source"
)

// Category groups patterns by the kind of bloat they describe. The
// weights are fixed constants carried over from the methodology this
// engine implements; they are documented, not derived.
type Category int

const (
	// CategoryConfig covers non-code configuration files. Unweighted,
	// reported separately, never scored.
	CategoryConfig Category = iota
	// CategoryConditional is unreachable or redundant conditionals.
	CategoryConditional
	// CategoryDeadCode is code with provably zero callers.
	CategoryDeadCode
	// CategoryAbstraction is premature abstraction: one-caller helpers,
	// one-variant enums, thin wrappers, pass-through structures.
	CategoryAbstraction
	// CategoryShape is syntax with a strictly shorter canonical form.
	CategoryShape
	// CategoryDocumentation is comments and docstrings that restate the
	// adjacent code.
	CategoryDocumentation
	// CategoryFlow is single-use bindings read once immediately after.
	CategoryFlow
)

// Weight returns the scoring weight of the category.
func (c Category) Weight() float64 {
	switch c {
	case CategoryDeadCode, CategoryAbstraction, CategoryDocumentation:
		return 1.5
	case CategoryConditional, CategoryShape, CategoryFlow:
		return 1.0
	default:
		return 0
	}
}

func (c Category) String() string {
	switch c {
	case CategoryConfig:
		return "config"
	case CategoryConditional:
		return "conditional"
	case CategoryDeadCode:
		return "dead-code"
	case CategoryAbstraction:
		return "abstraction"
	case CategoryShape:
		return "shape"
	case CategoryDocumentation:
		return "documentation"
	case CategoryFlow:
		return "flow"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Technique names the verification technique applied to a finding.
type Technique string

const (
	TechniqueCallerCount     Technique = "caller-count"
	TechniqueReachability    Technique = "reachability"
	TechniqueDataTrace       Technique = "data-tracing"
	TechniqueParameterTax    Technique = "parameter-tax"
	TechniqueAttributeAccess Technique = "attribute-access"
	TechniqueStructural      Technique = "structural-equivalence"
	TechniqueTokenSubset     Technique = "token-subset"
)

// Outcome is the verification result attached to a finding. A finding
// without an outcome never reaches the scorer.
type Outcome struct {
	Confirmed bool
	Technique Technique
	Reason    string
}

// Finding is one candidate (and, once verified, confirmed) unit of bloat.
// Created by a detector; the verifier attaches the outcome.
type Finding struct {
	// ID is deterministic: file, start line and pattern name.
	ID       string
	Pattern  string
	Category Category

	File      string
	StartLine uint32
	EndLine   uint32

	// Excerpt is the verbatim source of the flagged range.
	Excerpt string
	// Replacement is the suggested rewrite; empty means delete.
	Replacement string
	// LinesSaved estimates the net line reduction of applying the fix.
	LinesSaved int

	// Subject is the symbol the verification checks apply to, when the
	// pattern is about a declaration. Nil for purely syntactic patterns.
	Subject *source.Symbol
	// Enclosing is the declaration containing the flagged construct,
	// used for per-call-site argument checks.
	Enclosing *source.Symbol

	Outcome *Outcome
}

// Weight returns the scoring weight of the finding.
func (f *Finding) Weight() float64 {
	return f.Category.Weight()
}

// Confirmed reports whether the finding carries a confirming outcome.
func (f *Finding) Confirmed() bool {
	return f.Outcome != nil && f.Outcome.Confirmed
}

func newFinding(pattern string, cat Category, f *source.File, start, end uint32) *Finding {
	return &Finding{
		ID:        fmt.Sprintf("%s:%d:%s", f.Path, start, pattern),
		Pattern:   pattern,
		Category:  cat,
		File:      f.Path,
		StartLine: start,
		EndLine:   end,
		Excerpt:   f.Excerpt(start, end),
	}
}
