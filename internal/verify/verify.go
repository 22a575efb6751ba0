// Package verify confirms or discards detector candidates against the
// whole-project reference index. Detection is cheap and local; every
// claim that depends on who calls what is settled here, conservatively:
// when a check cannot prove the pattern safe to fix, the candidate is
// discarded.
package verify

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/slopdetect/slop/internal/detect"
	"github.com/slopdetect/slop/internal/index"
	"github.com/slopdetect/slop/internal/source"
)

// Run applies the per-pattern verification technique to every candidate
// and splits the set into confirmed and discarded findings. Every
// finding comes back with an Outcome attached; order is preserved.
func Run(findings []*detect.Finding, ix *index.Index) (confirmed, discarded []*detect.Finding) {
	for _, f := range findings {
		f.Outcome = check(f, ix)
		if f.Outcome.Confirmed {
			confirmed = append(confirmed, f)
		} else {
			discarded = append(discarded, f)
		}
	}
	return confirmed, discarded
}

func check(f *detect.Finding, ix *index.Index) *detect.Outcome {
	switch f.Pattern {
	case "dead-private-symbol":
		return checkDead(f, ix)
	case "unused-parameter":
		return checkUnusedParameter(f, ix)
	case "one-caller-helper":
		return checkOneCaller(f, ix)
	case "single-variant-enum":
		return checkEnum(f, ix)
	case "thin-wrapper-class":
		return checkWrapper(f, ix)
	case "passthrough-struct":
		return checkPassthrough(f, ix)
	case "redundant-none-guard":
		return checkNoneGuard(f, ix)
	case "redundant-isinstance-guard":
		return checkIsinstanceGuard(f, ix)
	case "boolean-return", "accumulation-loop", "constructor-literal",
		"len-truthiness", "redundant-else":
		return &detect.Outcome{
			Confirmed: true,
			Technique: detect.TechniqueStructural,
			Reason:    "rewrite is a local structural equivalence",
		}
	case "restating-docstring", "restating-comment":
		return &detect.Outcome{
			Confirmed: true,
			Technique: detect.TechniqueTokenSubset,
			Reason:    "every content token already appears in the adjacent code",
		}
	case "single-use-binding":
		return &detect.Outcome{
			Confirmed: true,
			Technique: detect.TechniqueDataTrace,
			Reason:    "value flows to exactly one read on the next statement",
		}
	}
	return &detect.Outcome{
		Confirmed: false,
		Technique: detect.TechniqueStructural,
		Reason:    fmt.Sprintf("no verification rule for pattern %q", f.Pattern),
	}
}

// checkDead confirms a dead-code candidate when the index shows zero
// production call sites. Test-only callers do not keep a symbol alive;
// they are reported in the reason so the fix removes the tests too.
func checkDead(f *detect.Finding, ix *index.Index) *detect.Outcome {
	c := ix.CallerCount(f.Subject)
	if c.Opaque {
		return rejected(detect.TechniqueCallerCount, "symbol is reachable through dynamic access")
	}
	if c.Production > 0 {
		return rejected(detect.TechniqueCallerCount,
			fmt.Sprintf("%d production call sites", c.Production))
	}
	reason := "no call sites anywhere"
	if c.Total > 0 {
		reason = fmt.Sprintf("no production call sites, %d test-only", c.Total)
	}
	return &detect.Outcome{Confirmed: true, Technique: detect.TechniqueCallerCount, Reason: reason}
}

// checkUnusedParameter data-traces the call sites of the enclosing
// function: any splat or explicit keyword for the parameter means the
// signature cannot shrink without touching callers we cannot prove safe.
func checkUnusedParameter(f *detect.Finding, ix *index.Index) *detect.Outcome {
	fn := f.Enclosing
	c := ix.CallerCount(fn)
	if c.Opaque {
		return rejected(detect.TechniqueDataTrace, "function is reachable through dynamic access")
	}
	for _, call := range ix.Calls(fn) {
		if call.Args == nil {
			continue
		}
		for i := 0; i < int(call.Args.NamedChildCount()); i++ {
			arg := call.Args.NamedChild(i)
			switch arg.Type() {
			case "list_splat", "dictionary_splat":
				return rejected(detect.TechniqueDataTrace,
					fmt.Sprintf("%s:%d passes splat arguments", call.Site.File, call.Site.Line))
			case "keyword_argument":
				name := call.File.Text(arg.ChildByFieldName("name"))
				if name == f.Subject.Name {
					return rejected(detect.TechniqueDataTrace,
						fmt.Sprintf("%s:%d passes %s by keyword", call.Site.File, call.Site.Line, name))
				}
			}
		}
	}
	return &detect.Outcome{
		Confirmed: true,
		Technique: detect.TechniqueDataTrace,
		Reason:    "parameter never read and never passed by keyword or splat",
	}
}

// checkOneCaller confirms an inline candidate only at exactly one call
// site. Zero callers is the dead-code detector's finding, not this one;
// two or more means the helper genuinely factors shared code.
func checkOneCaller(f *detect.Finding, ix *index.Index) *detect.Outcome {
	c := ix.CallerCount(f.Subject)
	if c.Opaque {
		return rejected(detect.TechniqueCallerCount, "symbol is reachable through dynamic access")
	}
	if c.Total != 1 {
		return rejected(detect.TechniqueCallerCount,
			fmt.Sprintf("%d call sites, inlining needs exactly one", c.Total))
	}
	site := ix.Callers(f.Subject)[0]
	return &detect.Outcome{
		Confirmed: true,
		Technique: detect.TechniqueCallerCount,
		Reason:    fmt.Sprintf("single call site at %s:%d", site.File, site.Line),
	}
}

// checkEnum confirms a one-variant enum when neither the class nor its
// sole member is dynamically reached.
func checkEnum(f *detect.Finding, ix *index.Index) *detect.Outcome {
	if ix.CallerCount(f.Subject).Opaque {
		return rejected(detect.TechniqueAttributeAccess, "enum is reachable through dynamic access")
	}
	for _, m := range f.Subject.Body.Symbols() {
		if m.Kind == source.ConstantSymbol && ix.CallerCount(m).Opaque {
			return rejected(detect.TechniqueAttributeAccess,
				fmt.Sprintf("member %s is reachable through dynamic access", m.Name))
		}
	}
	return &detect.Outcome{
		Confirmed: true,
		Technique: detect.TechniqueAttributeAccess,
		Reason:    "single variant, all accesses statically bound",
	}
}

// checkWrapper counts the distinct wrapper members its callers actually
// touch. Up to two touched members, the wrapped value can stand in
// directly; beyond that the wrapper earns its interface.
func checkWrapper(f *detect.Finding, ix *index.Index) *detect.Outcome {
	if ix.CallerCount(f.Subject).Opaque {
		return rejected(detect.TechniqueAttributeAccess, "class is reachable through dynamic access")
	}
	touched := 0
	for _, m := range f.Subject.Body.Symbols() {
		if m.Kind != source.MethodSymbol || m.Name == "__init__" {
			continue
		}
		c := ix.CallerCount(m)
		if c.Opaque {
			return rejected(detect.TechniqueAttributeAccess,
				fmt.Sprintf("method %s is reachable through dynamic access", m.Name))
		}
		if c.Total > 0 {
			touched++
		}
	}
	if touched > 2 {
		return rejected(detect.TechniqueAttributeAccess,
			fmt.Sprintf("callers touch %d members", touched))
	}
	return &detect.Outcome{
		Confirmed: true,
		Technique: detect.TechniqueAttributeAccess,
		Reason:    fmt.Sprintf("callers touch %d of the wrapper's members", touched),
	}
}

// checkPassthrough applies the parameter-tax rule: a field carrier is
// removable only when few sites consume it and unpacking it into plain
// parameters nets fewer lines than the class costs.
func checkPassthrough(f *detect.Finding, ix *index.Index) *detect.Outcome {
	c := ix.CallerCount(f.Subject)
	if c.Opaque {
		return rejected(detect.TechniqueParameterTax, "class is reachable through dynamic access")
	}
	if c.Total > 2 {
		return rejected(detect.TechniqueParameterTax,
			fmt.Sprintf("consumed at %d sites, unpacking would tax every signature", c.Total))
	}
	if f.LinesSaved <= 0 {
		return rejected(detect.TechniqueParameterTax, "unpacking saves no lines")
	}
	return &detect.Outcome{
		Confirmed: true,
		Technique: detect.TechniqueParameterTax,
		Reason:    fmt.Sprintf("consumed at %d sites, fields travel as parameters", c.Total),
	}
}

// checkNoneGuard requires every observed call to pass a provably
// non-None argument for the guarded parameter. The concrete annotation
// alone is a claim; the call sites are the evidence.
func checkNoneGuard(f *detect.Finding, ix *index.Index) *detect.Outcome {
	fn, param := f.Enclosing, f.Subject
	c := ix.CallerCount(fn)
	if c.Opaque {
		return rejected(detect.TechniqueReachability, "function is reachable through dynamic access")
	}
	for _, call := range ix.Calls(fn) {
		arg, ok := argumentFor(call, param)
		if !ok {
			return rejected(detect.TechniqueReachability,
				fmt.Sprintf("%s:%d does not pass the parameter positionally or by keyword", call.Site.File, call.Site.Line))
		}
		if !provablyNonNone(call.File, arg) {
			return rejected(detect.TechniqueReachability,
				fmt.Sprintf("%s:%d passes %q, not provably non-None", call.Site.File, call.Site.Line, call.File.Text(arg)))
		}
	}
	return &detect.Outcome{
		Confirmed: true,
		Technique: detect.TechniqueReachability,
		Reason:    "every call site passes a provably non-None value",
	}
}

// checkIsinstanceGuard requires every observed call to pass a value of
// exactly the tested type, by literal or by concrete annotation.
func checkIsinstanceGuard(f *detect.Finding, ix *index.Index) *detect.Outcome {
	fn, param := f.Enclosing, f.Subject
	if ix.CallerCount(fn).Opaque {
		return rejected(detect.TechniqueReachability, "function is reachable through dynamic access")
	}
	want := baseType(param.Annotation)
	for _, call := range ix.Calls(fn) {
		arg, ok := argumentFor(call, param)
		if !ok {
			return rejected(detect.TechniqueReachability,
				fmt.Sprintf("%s:%d does not pass the parameter", call.Site.File, call.Site.Line))
		}
		if got := staticType(call.File, arg); got != want {
			return rejected(detect.TechniqueReachability,
				fmt.Sprintf("%s:%d argument type %q not provably %q", call.Site.File, call.Site.Line, got, want))
		}
	}
	return &detect.Outcome{
		Confirmed: true,
		Technique: detect.TechniqueReachability,
		Reason:    fmt.Sprintf("every call site passes a value of type %s", want),
	}
}

func rejected(t detect.Technique, reason string) *detect.Outcome {
	return &detect.Outcome{Confirmed: false, Technique: t, Reason: reason}
}

// argumentFor locates the argument bound to param in one call: a
// keyword argument by name, or the positional at the parameter's index
// once keywords are excluded.
func argumentFor(call index.CallDetail, param *source.Symbol) (*sitter.Node, bool) {
	if call.Args == nil {
		return nil, false
	}
	positional := 0
	for i := 0; i < int(call.Args.NamedChildCount()); i++ {
		arg := call.Args.NamedChild(i)
		switch arg.Type() {
		case "keyword_argument":
			if call.File.Text(arg.ChildByFieldName("name")) == param.Name {
				return arg.ChildByFieldName("value"), true
			}
		case "list_splat", "dictionary_splat":
			return nil, false
		default:
			if positional == param.ParamIndex {
				return arg, true
			}
			positional++
		}
	}
	return nil, false
}

// provablyNonNone accepts literals, constructions and identifiers whose
// binding carries a concrete annotation. Everything else is unproven.
func provablyNonNone(f *source.File, arg *sitter.Node) bool {
	switch arg.Type() {
	case "string", "concatenated_string", "integer", "float", "true", "false",
		"list", "dictionary", "set", "tuple", "list_comprehension",
		"dictionary_comprehension", "call", "unary_operator", "binary_operator":
		return arg.Type() != "call" || f.Text(arg.ChildByFieldName("function")) != "getattr"
	case "identifier":
		sym := f.ScopeFor(arg).Resolve(f.Text(arg))
		return sym != nil && source.ConcreteAnnotation(sym.Annotation)
	}
	return false
}

// staticType names the type of an argument when it is statically
// evident: literal syntax, or an identifier with a concrete annotation.
func staticType(f *source.File, arg *sitter.Node) string {
	switch arg.Type() {
	case "string", "concatenated_string":
		return "str"
	case "integer":
		return "int"
	case "float":
		return "float"
	case "true", "false":
		return "bool"
	case "list", "list_comprehension":
		return "list"
	case "dictionary", "dictionary_comprehension":
		return "dict"
	case "set":
		return "set"
	case "tuple":
		return "tuple"
	case "identifier":
		if sym := f.ScopeFor(arg).Resolve(f.Text(arg)); sym != nil && source.ConcreteAnnotation(sym.Annotation) {
			return baseType(sym.Annotation)
		}
	}
	return ""
}

func baseType(ann string) string {
	if i := strings.IndexByte(ann, '['); i >= 0 {
		return ann[:i]
	}
	return ann
}
