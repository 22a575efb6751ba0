package detect

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/slopdetect/slop/internal/parser"
	"github.com/slopdetect/slop/internal/source"
)

// booleanReturnDetector collapses the four-line
// `if cond: return True / else: return False` tail into `return cond`
// (or `return not cond` for the inverted form).
type booleanReturnDetector struct{}

func (d *booleanReturnDetector) Name() string       { return "boolean-return" }
func (d *booleanReturnDetector) Category() Category { return CategoryShape }

func (d *booleanReturnDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, n := range f.Result.FindNodesByType("if_statement") {
		cond := n.ChildByFieldName("condition")
		cons := n.ChildByFieldName("consequence")
		alt := n.ChildByFieldName("alternative")
		if cond == nil || cons == nil {
			continue
		}
		thenVal, ok := soleBoolReturn(f, cons)
		if !ok {
			continue
		}
		var elseVal string
		switch {
		case alt != nil && alt.Type() == "else_clause":
			body := alt.ChildByFieldName("body")
			if body == nil {
				continue
			}
			elseVal, ok = soleBoolReturn(f, body)
		case alt == nil:
			// `if cond: return True` followed by `return False`.
			elseVal, ok = nextBoolReturn(f, n)
		default:
			ok = false
		}
		if !ok || thenVal == elseVal {
			continue
		}

		start, _ := parser.LineRange(n)
		end := start + uint32(returnTailSpan(f, n, alt))
		fd := newFinding(d.Name(), d.Category(), f, start, end)
		if thenVal == "True" {
			fd.Replacement = indentFor(f, n) + "return bool(" + f.Text(cond) + ")"
		} else {
			fd.Replacement = indentFor(f, n) + "return not (" + f.Text(cond) + ")"
		}
		fd.LinesSaved = int(end-start+1) - 1
		out = append(out, fd)
	}
	return out
}

// soleBoolReturn returns "True" or "False" when the block is a single
// return of that literal.
func soleBoolReturn(f *source.File, block *sitter.Node) (string, bool) {
	if block.NamedChildCount() != 1 {
		return "", false
	}
	ret := block.NamedChild(0)
	if ret.Type() != "return_statement" || ret.NamedChildCount() != 1 {
		return "", false
	}
	v := f.Text(ret.NamedChild(0))
	if v == "True" || v == "False" {
		return v, true
	}
	return "", false
}

func nextBoolReturn(f *source.File, ifStmt *sitter.Node) (string, bool) {
	sib := ifStmt.NextNamedSibling()
	if sib == nil || sib.Type() != "return_statement" || sib.NamedChildCount() != 1 {
		return "", false
	}
	v := f.Text(sib.NamedChild(0))
	if v == "True" || v == "False" {
		return v, true
	}
	return "", false
}

// returnTailSpan counts the extra lines past the if keyword covered by
// the rewrite: the else arm, or the trailing bare return.
func returnTailSpan(f *source.File, ifStmt, alt *sitter.Node) int {
	if alt != nil {
		_, end := parser.LineRange(ifStmt)
		start, _ := parser.LineRange(ifStmt)
		return int(end - start)
	}
	sib := ifStmt.NextNamedSibling()
	start, _ := parser.LineRange(ifStmt)
	_, end := parser.LineRange(sib)
	return int(end - start)
}

// accumulationLoopDetector rewrites `acc = [] ; for x in xs: acc.append(e)`
// into a comprehension when the loop body is that single append.
type accumulationLoopDetector struct{}

func (d *accumulationLoopDetector) Name() string       { return "accumulation-loop" }
func (d *accumulationLoopDetector) Category() Category { return CategoryShape }

func (d *accumulationLoopDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, loop := range f.Result.FindNodesByType("for_statement") {
		acc, init := precedingEmptyList(f, loop)
		if acc == "" {
			continue
		}
		elem, cond, ok := soleAppend(f, loop, acc)
		if !ok {
			continue
		}
		left := f.Text(loop.ChildByFieldName("left"))
		right := f.Text(loop.ChildByFieldName("right"))

		start, _ := parser.LineRange(init)
		_, end := parser.LineRange(loop)
		fd := newFinding(d.Name(), d.Category(), f, start, end)
		expr := fmt.Sprintf("%s = [%s for %s in %s", acc, elem, left, right)
		if cond != "" {
			expr += " if " + cond
		}
		expr += "]"
		fd.Replacement = indentFor(f, loop) + expr
		fd.LinesSaved = int(end-start+1) - 1
		out = append(out, fd)
	}
	return out
}

// precedingEmptyList matches `name = []` on the statement immediately
// before the loop and returns the name and the assignment node.
func precedingEmptyList(f *source.File, loop *sitter.Node) (string, *sitter.Node) {
	prev := loop.PrevNamedSibling()
	if prev == nil || prev.Type() != "expression_statement" {
		return "", nil
	}
	assign := prev.NamedChild(0)
	if assign == nil || assign.Type() != "assignment" {
		return "", nil
	}
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "identifier" {
		return "", nil
	}
	if f.Text(right) != "[]" {
		return "", nil
	}
	return f.Text(left), prev
}

// soleAppend matches a loop body of exactly `acc.append(expr)`, with an
// optional single `if cond:` wrapper around it, and returns the appended
// expression and the condition text.
func soleAppend(f *source.File, loop *sitter.Node, acc string) (elem, cond string, ok bool) {
	body := loop.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() != 1 {
		return "", "", false
	}
	stmt := body.NamedChild(0)
	if stmt.Type() == "if_statement" {
		if stmt.ChildByFieldName("alternative") != nil {
			return "", "", false
		}
		cond = f.Text(stmt.ChildByFieldName("condition"))
		inner := stmt.ChildByFieldName("consequence")
		if inner == nil || inner.NamedChildCount() != 1 {
			return "", "", false
		}
		stmt = inner.NamedChild(0)
	}
	if stmt.Type() != "expression_statement" {
		return "", "", false
	}
	call := stmt.NamedChild(0)
	if call == nil || call.Type() != "call" {
		return "", "", false
	}
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return "", "", false
	}
	obj := fn.ChildByFieldName("object")
	attr := fn.ChildByFieldName("attribute")
	if obj == nil || attr == nil || f.Text(obj) != acc || f.Text(attr) != "append" {
		return "", "", false
	}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() != 1 {
		return "", "", false
	}
	return f.Text(args.NamedChild(0)), cond, true
}

// constructorLiteralDetector flags constructor calls that duplicate
// literal syntax: zero-argument dict()/list() calls, and field-by-field
// population of a fresh object (`obj = Cls()` then consecutive
// `obj.f = v` lines) when the class's __init__ accepts those fields as
// keywords.
type constructorLiteralDetector struct{}

func (d *constructorLiteralDetector) Name() string       { return "constructor-literal" }
func (d *constructorLiteralDetector) Category() Category { return CategoryShape }

func (d *constructorLiteralDetector) Detect(f *source.File) []*Finding {
	out := d.builtinLiterals(f)
	for _, n := range f.Result.FindNodesByType("assignment") {
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		if left == nil || right == nil || left.Type() != "identifier" || right.Type() != "call" {
			continue
		}
		args := right.ChildByFieldName("arguments")
		if args == nil || args.NamedChildCount() != 0 {
			continue
		}
		fn := right.ChildByFieldName("function")
		if fn == nil || fn.Type() != "identifier" {
			continue
		}
		ctor := f.Text(fn)
		if !isCapitalized(ctor) {
			continue
		}
		name := f.Text(left)
		stmt := enclosingStatement(n)
		if stmt == nil {
			continue
		}

		var pairs []string
		var fields []string
		last := stmt
		for sib := stmt.NextNamedSibling(); sib != nil; sib = sib.NextNamedSibling() {
			field, value, ok := attrStore(f, sib, name)
			if !ok {
				break
			}
			pairs = append(pairs, field+"="+value)
			fields = append(fields, field)
			last = sib
		}
		if len(pairs) < 2 {
			continue
		}
		// Only a class defined in this file can be checked against its
		// __init__ keyword surface; an import stays untouched.
		if !initAccepts(f, n, ctor, fields) {
			continue
		}

		start, _ := parser.LineRange(stmt)
		_, end := parser.LineRange(last)
		fd := newFinding(d.Name(), d.Category(), f, start, end)
		fd.Replacement = indentFor(f, stmt) + name + " = " + ctor + "(" + strings.Join(pairs, ", ") + ")"
		fd.LinesSaved = int(end-start+1) - 1
		out = append(out, fd)
	}
	return out
}

// builtinLiterals rewrites zero-argument dict() and list() calls to the
// literal they spell out.
func (d *constructorLiteralDetector) builtinLiterals(f *source.File) []*Finding {
	var out []*Finding
	for _, call := range f.Result.FindNodesByType("call") {
		fn := call.ChildByFieldName("function")
		args := call.ChildByFieldName("arguments")
		if fn == nil || fn.Type() != "identifier" || args == nil || args.NamedChildCount() != 0 {
			continue
		}
		var lit string
		switch f.Text(fn) {
		case "dict":
			lit = "{}"
		case "list":
			lit = "[]"
		default:
			continue
		}
		// Shadowed builtins are someone else's constructor.
		if f.ScopeFor(call).Resolve(f.Text(fn)) != nil {
			continue
		}
		start, end := parser.LineRange(call)
		fd := newFinding(d.Name(), d.Category(), f, start, end)
		fd.ID += ":" + f.Text(fn)
		fd.Replacement = lit
		fd.LinesSaved = 0 // shape only, the line survives
		out = append(out, fd)
	}
	return out
}

// initAccepts reports whether ctor resolves to a class in this file
// whose __init__ takes every field as a keyword: a named parameter or a
// **kwargs catch-all. Without the definition in hand the keyword call
// cannot be verified.
func initAccepts(f *source.File, at *sitter.Node, ctor string, fields []string) bool {
	cls := f.ScopeFor(at).Resolve(ctor)
	if cls == nil || cls.Kind != source.ClassSymbol || cls.Body == nil {
		return false
	}
	init := cls.Body.Lookup("__init__")
	if init == nil || init.Body == nil {
		return false
	}
	named := map[string]bool{}
	for _, p := range init.Body.Symbols() {
		if p.Kind != source.ParameterSymbol {
			continue
		}
		if p.Node != nil && p.Node.Type() == "dictionary_splat_pattern" {
			return true
		}
		named[p.Name] = true
	}
	for _, field := range fields {
		if !named[field] {
			return false
		}
	}
	return true
}

// attrStore matches `name.field = value` and returns the pair.
func attrStore(f *source.File, stmt *sitter.Node, name string) (field, value string, ok bool) {
	if stmt.Type() != "expression_statement" {
		return "", "", false
	}
	assign := stmt.NamedChild(0)
	if assign == nil || assign.Type() != "assignment" {
		return "", "", false
	}
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "attribute" {
		return "", "", false
	}
	obj := left.ChildByFieldName("object")
	if obj == nil || f.Text(obj) != name {
		return "", "", false
	}
	return f.Text(left.ChildByFieldName("attribute")), f.Text(right), true
}

func isCapitalized(s string) bool {
	base := s
	if i := strings.LastIndex(s, "."); i >= 0 {
		base = s[i+1:]
	}
	return base != "" && base[0] >= 'A' && base[0] <= 'Z'
}

// lenTruthinessDetector rewrites `len(x) > 0` / `len(x) == 0` guards to
// plain truthiness. Only comparisons against zero qualify.
type lenTruthinessDetector struct{}

func (d *lenTruthinessDetector) Name() string       { return "len-truthiness" }
func (d *lenTruthinessDetector) Category() Category { return CategoryShape }

func (d *lenTruthinessDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, n := range f.Result.FindNodesByType("comparison_operator") {
		arg, repl, ok := lenZeroComparison(f, n)
		if !ok {
			continue
		}
		if !insideCondition(n) {
			continue
		}
		start, end := parser.LineRange(n)
		fd := newFinding(d.Name(), d.Category(), f, start, end)
		fd.ID += ":" + arg
		fd.Replacement = repl
		fd.LinesSaved = 0 // shape only, the line survives
		out = append(out, fd)
	}
	return out
}

func lenZeroComparison(f *source.File, cmp *sitter.Node) (arg, repl string, ok bool) {
	if cmp.NamedChildCount() != 2 {
		return "", "", false
	}
	lhs := cmp.NamedChild(0)
	rhs := cmp.NamedChild(1)
	if lhs.Type() != "call" || f.Text(rhs) != "0" {
		return "", "", false
	}
	fn := lhs.ChildByFieldName("function")
	if fn == nil || f.Text(fn) != "len" {
		return "", "", false
	}
	args := lhs.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() != 1 {
		return "", "", false
	}
	arg = f.Text(args.NamedChild(0))

	text := f.Text(cmp)
	switch {
	case strings.Contains(text, ">") || strings.Contains(text, "!="):
		return arg, arg, true
	case strings.Contains(text, "=="):
		return arg, "not " + arg, true
	}
	return "", "", false
}

// insideCondition reports whether the node sits in a boolean position:
// an if/while condition or a boolean operator chain.
func insideCondition(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "if_statement", "while_statement", "conditional_expression", "boolean_operator", "not_operator", "assert_statement":
			return true
		case "function_definition", "class_definition", "module":
			return false
		}
	}
	return false
}

// redundantElseDetector dedents else blocks that follow a terminating
// if arm (return, raise, continue, break).
type redundantElseDetector struct{}

func (d *redundantElseDetector) Name() string       { return "redundant-else" }
func (d *redundantElseDetector) Category() Category { return CategoryShape }

func (d *redundantElseDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, n := range f.Result.FindNodesByType("if_statement") {
		cons := n.ChildByFieldName("consequence")
		alt := n.ChildByFieldName("alternative")
		if cons == nil || alt == nil || alt.Type() != "else_clause" {
			continue
		}
		if !blockTerminates(f, cons) {
			continue
		}
		body := alt.ChildByFieldName("body")
		if body == nil {
			continue
		}
		start, end := parser.LineRange(alt)
		fd := newFinding(d.Name(), d.Category(), f, start, end)
		fd.Replacement = dedentBlock(f, body)
		fd.LinesSaved = 1 // the else: line
		out = append(out, fd)
	}
	return out
}

func blockTerminates(f *source.File, block *sitter.Node) bool {
	c := block.NamedChildCount()
	if c == 0 {
		return false
	}
	last := block.NamedChild(int(c - 1))
	switch last.Type() {
	case "return_statement", "raise_statement", "continue_statement", "break_statement":
		return true
	}
	return false
}

func enclosingStatement(n *sitter.Node) *sitter.Node {
	for p := n; p != nil; p = p.Parent() {
		if p.Type() == "expression_statement" {
			return p
		}
	}
	return nil
}

func indentFor(f *source.File, n *sitter.Node) string {
	start, _ := parser.LineRange(n)
	return leadingIndent(f.Line(start))
}
