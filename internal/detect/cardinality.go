package detect

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/slopdetect/slop/internal/source"
)

// deadSymbolDetector nominates private functions, methods and module
// constants as dead-code candidates. The verifier confirms only those
// whose deduplicated caller count is exactly zero.
type deadSymbolDetector struct{}

func (d *deadSymbolDetector) Name() string       { return "dead-private-symbol" }
func (d *deadSymbolDetector) Category() Category { return CategoryDeadCode }

func (d *deadSymbolDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, sym := range f.Symbols {
		if !deadCandidate(sym) {
			continue
		}
		fd := newFinding(d.Name(), d.Category(), f, sym.StartLine, sym.EndLine)
		fd.Subject = sym
		fd.Replacement = ""
		fd.LinesSaved = int(sym.EndLine-sym.StartLine) + 1
		out = append(out, fd)
	}
	return out
}

// deadCandidate filters to declarations whose absence of callers is
// meaningful. Decorated definitions are registered with frameworks and
// dunder names are runtime hooks; neither can be presumed dead.
func deadCandidate(sym *source.Symbol) bool {
	switch sym.Kind {
	case source.FunctionSymbol, source.MethodSymbol:
		return sym.Private() && len(sym.Decorators) == 0
	case source.ConstantSymbol:
		return sym.Private() && sym.Scope.Kind == source.ModuleScope
	}
	return false
}

// unusedParameterDetector flags parameters never read in their function
// body. The verifier backs this with a data-trace over the whole-project
// index so dynamically passed keywords cannot slip through.
type unusedParameterDetector struct{}

func (d *unusedParameterDetector) Name() string       { return "unused-parameter" }
func (d *unusedParameterDetector) Category() Category { return CategoryDeadCode }

func (d *unusedParameterDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, fn := range functionSymbols(f) {
		if len(fn.Decorators) > 0 {
			continue
		}
		if fn.Kind == source.MethodSymbol && methodMayOverride(f, fn) {
			continue
		}
		body := fn.Node.ChildByFieldName("body")
		if body == nil {
			continue
		}

		for _, param := range fn.Body.Symbols() {
			if param.Kind != source.ParameterSymbol || param.ParamIndex < 0 {
				continue
			}
			if strings.HasPrefix(param.Name, "_") {
				continue
			}
			if countReads(f, body, param.Name) > 0 {
				continue
			}

			fd := newFinding(d.Name(), d.Category(), f, param.StartLine, param.StartLine)
			fd.ID = fmt.Sprintf("%s:%d:%s:%s", f.Path, param.StartLine, d.Name(), param.Name)
			fd.Subject = param
			fd.Enclosing = fn
			fd.Excerpt = f.Line(fn.StartLine)
			fd.Replacement = signatureWithout(f, fn, param.Name)
			fd.LinesSaved = 0
			out = append(out, fd)
		}
	}
	return out
}

// methodMayOverride reports whether fn's class inherits: an apparently
// unused parameter may satisfy an inherited signature.
func methodMayOverride(f *source.File, fn *source.Symbol) bool {
	for _, s := range f.Symbols {
		if s.Kind == source.ClassSymbol && s.Body == fn.Scope {
			return len(s.Bases) > 0
		}
	}
	return false
}

// countReads counts identifier occurrences of name inside body that are
// reads, staying within the function (nested defs included: closures
// genuinely read the binding).
func countReads(f *source.File, body *sitter.Node, name string) int {
	count := 0
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "identifier" && f.Text(n) == name {
			parent := n.Parent()
			if parent != nil && parent.Type() == "assignment" && parent.ChildByFieldName("left") == n {
				// plain write
			} else {
				count++
			}
		}
		for i := uint32(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(int(i)))
		}
	}
	walk(body)
	return count
}

// signatureWithout renders the def line with the named parameter removed.
func signatureWithout(f *source.File, fn *source.Symbol, name string) string {
	line := f.Line(fn.StartLine)
	open := strings.IndexByte(line, '(')
	close_ := strings.LastIndexByte(line, ')')
	if open < 0 || close_ < open {
		return line
	}
	parts := strings.Split(line[open+1:close_], ",")
	var kept []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == name || strings.HasPrefix(trimmed, name+":") || strings.HasPrefix(trimmed, name+" ") || strings.HasPrefix(trimmed, name+"=") {
			continue
		}
		kept = append(kept, trimmed)
	}
	return line[:open+1] + strings.Join(kept, ", ") + line[close_:]
}
