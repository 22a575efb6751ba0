package detect

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/slopdetect/slop/internal/parser"
	"github.com/slopdetect/slop/internal/source"
)

// noneGuardDetector flags `if x is not None:` guards (and `if x is None:`
// early exits) where x is a parameter whose declared type is concrete:
// the guarded branch cannot be reached with a None value. Verification
// additionally requires every call site to pass a provably non-None
// argument.
type noneGuardDetector struct{}

func (d *noneGuardDetector) Name() string       { return "redundant-none-guard" }
func (d *noneGuardDetector) Category() Category { return CategoryConditional }

func (d *noneGuardDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, fn := range functionSymbols(f) {
		body := fn.Node.ChildByFieldName("body")
		if body == nil {
			continue
		}
		walkWithin(body, func(n *sitter.Node) bool {
			if n.Type() != "if_statement" {
				return true
			}
			cond := n.ChildByFieldName("condition")
			if cond == nil {
				return true
			}
			name, negated, ok := noneComparison(f, cond)
			if !ok {
				return true
			}
			param := fn.Body.Lookup(name)
			if param == nil || param.Kind != source.ParameterSymbol {
				return true
			}
			if !source.ConcreteAnnotation(param.Annotation) {
				return true
			}
			if defaultsToNone(f, fn, name) {
				// `x: str = None` lies about the annotation; the guard
				// is load-bearing.
				return true
			}

			start, end := parser.LineRange(n)
			fd := newFinding(d.Name(), d.Category(), f, start, end)
			fd.Subject = param
			fd.Enclosing = fn
			if negated {
				// `if x is not None:` — keep the body, drop the guard.
				fd.Replacement = dedentBlock(f, n.ChildByFieldName("consequence"))
				fd.LinesSaved = 1
			} else {
				// `if x is None: ...` — the whole branch is unreachable.
				fd.Replacement = ""
				fd.LinesSaved = int(end-start) + 1
			}
			out = append(out, fd)
			return true
		})
	}
	return out
}

// isinstanceGuardDetector flags `if isinstance(x, T):` where x is a
// parameter declared exactly as T: the guard is always true.
type isinstanceGuardDetector struct{}

func (d *isinstanceGuardDetector) Name() string       { return "redundant-isinstance-guard" }
func (d *isinstanceGuardDetector) Category() Category { return CategoryConditional }

func (d *isinstanceGuardDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, fn := range functionSymbols(f) {
		body := fn.Node.ChildByFieldName("body")
		if body == nil {
			continue
		}
		walkWithin(body, func(n *sitter.Node) bool {
			if n.Type() != "if_statement" {
				return true
			}
			cond := n.ChildByFieldName("condition")
			if cond == nil || cond.Type() != "call" {
				return true
			}
			callee := cond.ChildByFieldName("function")
			if callee == nil || f.Text(callee) != "isinstance" {
				return true
			}
			args := cond.ChildByFieldName("arguments")
			if args == nil || args.NamedChildCount() != 2 {
				return true
			}
			if args.NamedChild(0).Type() != "identifier" {
				return true
			}
			name := f.Text(args.NamedChild(0))
			wanted := f.Text(args.NamedChild(1))

			param := fn.Body.Lookup(name)
			if param == nil || param.Kind != source.ParameterSymbol {
				return true
			}
			if !source.ConcreteAnnotation(param.Annotation) || baseTypeName(param.Annotation) != wanted {
				return true
			}

			start, end := parser.LineRange(n)
			fd := newFinding(d.Name(), d.Category(), f, start, end)
			fd.Subject = param
			fd.Enclosing = fn
			fd.Replacement = dedentBlock(f, n.ChildByFieldName("consequence"))
			fd.LinesSaved = 1
			out = append(out, fd)
			return true
		})
	}
	return out
}

// noneComparison matches `x is not None` (negated=true) and `x is None`.
func noneComparison(f *source.File, cond *sitter.Node) (name string, negated bool, ok bool) {
	if cond.Type() != "comparison_operator" {
		return "", false, false
	}
	text := strings.TrimSpace(f.Text(cond))
	if rest, found := strings.CutSuffix(text, " is not None"); found {
		if isIdentText(rest) {
			return rest, true, true
		}
		return "", false, false
	}
	if rest, found := strings.CutSuffix(text, " is None"); found {
		if isIdentText(rest) {
			return rest, false, true
		}
	}
	return "", false, false
}

// defaultsToNone reports whether the named parameter carries `= None`.
func defaultsToNone(f *source.File, fn *source.Symbol, name string) bool {
	params := fn.Node.ChildByFieldName("parameters")
	if params == nil {
		return false
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "default_parameter", "typed_default_parameter":
		default:
			continue
		}
		pname := p.ChildByFieldName("name")
		value := p.ChildByFieldName("value")
		if pname != nil && value != nil && f.Text(pname) == name && f.Text(value) == "None" {
			return true
		}
	}
	return false
}

func isIdentText(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// baseTypeName strips generic arguments: "list[int]" -> "list".
func baseTypeName(ann string) string {
	if i := strings.IndexByte(ann, '['); i >= 0 {
		return ann[:i]
	}
	return ann
}

// dedentBlock returns the source of a block with one indentation level
// removed, so a guard body can replace its guard.
func dedentBlock(f *source.File, block *sitter.Node) string {
	if block == nil {
		return ""
	}
	start, end := parser.LineRange(block)
	indent := leadingIndent(f.Line(start))
	guardIndent := ""
	if start > 1 {
		guardIndent = leadingIndent(f.Line(start - 1))
	}
	strip := len(indent) - len(guardIndent)
	if strip <= 0 {
		return f.Excerpt(start, end)
	}

	var lines []string
	for n := start; n <= end; n++ {
		l := f.Line(n)
		if len(l) >= strip && strings.TrimSpace(l[:strip]) == "" {
			l = l[strip:]
		}
		lines = append(lines, l)
	}
	return strings.Join(lines, "\n")
}

func leadingIndent(line string) string {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}
	return line
}

// functionSymbols returns function and method symbols of a file.
func functionSymbols(f *source.File) []*source.Symbol {
	var out []*source.Symbol
	for _, s := range f.Symbols {
		if s.Kind == source.FunctionSymbol || s.Kind == source.MethodSymbol {
			out = append(out, s)
		}
	}
	return out
}

// walkWithin walks a subtree depth-first without crossing into nested
// function or class definitions.
func walkWithin(node *sitter.Node, fn func(*sitter.Node) bool) {
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if !fn(n) {
			return
		}
		for i := uint32(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(int(i))
			switch c.Type() {
			case "function_definition", "class_definition":
				continue
			}
			walk(c)
		}
	}
	walk(node)
}
