// Package source builds the structural model of a Python file: a parse
// tree with resolved lexical scopes and symbol bindings for functions,
// classes, module constants, parameters and local variables.
package source

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/slopdetect/slop/internal/parser"
)

// File is the source model for a single file. It is immutable once built.
type File struct {
	Path string

	// Lines holds the raw source lines, addressed 1-based as Lines[i-1].
	Lines []string

	// NonEmptyLines counts lines containing at least one non-blank rune.
	NonEmptyLines int

	// Result holds the parse tree. Owned by the File for its lifetime.
	Result *parser.ParseResult

	// Module is the root of the scope tree.
	Module *Scope

	// Symbols lists every declaration in the file in document order.
	Symbols []*Symbol

	// IsTest marks files supplied for index-only ingestion.
	IsTest bool

	// Dynamic is set when the file contains a dynamic construct that
	// cannot be statically bound: eval/exec/globals/locals, a
	// non-literal getattr, or a star import. Every symbol the file can
	// see must then be treated as opaquely used.
	Dynamic bool

	// DynamicNames lists names referenced through literal-string dynamic
	// access, e.g. getattr(obj, "close").
	DynamicNames []string

	ownerScopes map[*sitter.Node]*Scope
}

// Close releases the parse tree.
func (f *File) Close() {
	if f.Result != nil {
		f.Result.Close()
	}
}

// ScopeFor returns the innermost scope containing the given node.
func (f *File) ScopeFor(node *sitter.Node) *Scope {
	for cur := node; cur != nil; cur = cur.Parent() {
		if s, ok := f.ownerScopes[cur]; ok {
			return s
		}
	}
	return f.Module
}

// Text returns the source text of a node.
func (f *File) Text(node *sitter.Node) string {
	return f.Result.NodeText(node)
}

// Line returns the 1-based source line, or "" when out of range.
func (f *File) Line(n uint32) string {
	if n == 0 || int(n) > len(f.Lines) {
		return ""
	}
	return f.Lines[n-1]
}

// Excerpt returns the verbatim source for a 1-based line range.
func (f *File) Excerpt(start, end uint32) string {
	if start == 0 || int(start) > len(f.Lines) {
		return ""
	}
	if int(end) > len(f.Lines) {
		end = uint32(len(f.Lines))
	}
	return strings.Join(f.Lines[start-1:end], "\n")
}

// Builder parses file content into source models. A Builder owns one
// tree-sitter parser and is not safe for concurrent use; the engine
// creates one per worker.
type Builder struct {
	parser *parser.Parser
}

// NewBuilder creates a source model builder.
func NewBuilder() *Builder {
	return &Builder{parser: parser.New()}
}

// Close releases the underlying parser.
func (b *Builder) Close() {
	b.parser.Close()
}

// CountNonEmptyLines counts lines containing at least one non-blank
// rune. Exposed so files the parser rejects keep their line count.
func CountNonEmptyLines(content []byte) int {
	nonEmpty := 0
	for _, l := range strings.Split(strings.TrimSuffix(string(content), "\n"), "\n") {
		if strings.TrimSpace(l) != "" {
			nonEmpty++
		}
	}
	return nonEmpty
}

// Build parses content and constructs the scope and symbol model.
// Malformed source fails with a *parser.ParseError; the caller excludes
// the file from detection and indexing but keeps its line count.
func (b *Builder) Build(path string, content []byte, isTest bool) (*File, error) {
	result, err := b.parser.Parse(content)
	if err != nil {
		if pe, ok := err.(*parser.ParseError); ok {
			pe.File = path
		}
		return nil, err
	}
	result.FilePath = path

	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	nonEmpty := CountNonEmptyLines(content)

	f := &File{
		Path:          path,
		Lines:         lines,
		NonEmptyLines: nonEmpty,
		Result:        result,
		IsTest:        isTest,
		ownerScopes:   make(map[*sitter.Node]*Scope),
	}
	f.Module = newScope(ModuleScope, "", nil, result.Root)
	f.ownerScopes[result.Root] = f.Module

	f.walkScope(result.Root, f.Module, nil)
	f.scanDynamic()

	return f, nil
}

// walkScope descends the tree collecting declarations. decorators carries
// decorator names from an enclosing decorated_definition to the wrapped
// function or class.
func (f *File) walkScope(node *sitter.Node, scope *Scope, decorators []string) {
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(int(i))
		switch child.Type() {
		case "decorated_definition":
			decs := f.extractDecorators(child)
			if def := child.ChildByFieldName("definition"); def != nil {
				f.declareDefinition(def, scope, decs, child)
			}
		case "function_definition":
			f.declareDefinition(child, scope, decorators, child)
		case "class_definition":
			f.declareDefinition(child, scope, decorators, child)
		case "expression_statement":
			f.declareAssignments(child, scope)
			f.walkScope(child, scope, nil)
		case "for_statement":
			f.declareForTarget(child, scope)
			f.walkScope(child, scope, nil)
		default:
			f.walkScope(child, scope, nil)
		}
	}
}

// declareDefinition handles a function_definition or class_definition node.
// rangeNode is the node whose line range the symbol reports, which is the
// decorated_definition when decorators are present.
func (f *File) declareDefinition(def *sitter.Node, scope *Scope, decorators []string, rangeNode *sitter.Node) {
	nameNode := def.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := f.Text(nameNode)
	start, end := parser.LineRange(rangeNode)

	switch def.Type() {
	case "function_definition":
		kind := FunctionSymbol
		if scope.Kind == ClassScope {
			kind = MethodSymbol
		}
		sym := &Symbol{
			Name:       name,
			Kind:       kind,
			File:       f.Path,
			StartLine:  start,
			EndLine:    end,
			Scope:      scope,
			Node:       def,
			ParamIndex: -1,
			Decorators: decorators,
		}
		if rt := def.ChildByFieldName("return_type"); rt != nil {
			sym.Annotation = strings.TrimSpace(f.Text(rt))
		}
		sym.ID = symbolID(f.Path, start, sym.Qualified())
		scope.Declare(sym)
		f.Symbols = append(f.Symbols, sym)

		body := newScope(FunctionScope, name, scope, def)
		sym.Body = body
		f.ownerScopes[def] = body
		f.declareParameters(def, body, kind == MethodSymbol && !isStatic(decorators))
		if block := def.ChildByFieldName("body"); block != nil {
			f.walkScope(block, body, nil)
		}

	case "class_definition":
		sym := &Symbol{
			Name:       name,
			Kind:       ClassSymbol,
			File:       f.Path,
			StartLine:  start,
			EndLine:    end,
			Scope:      scope,
			Node:       def,
			ParamIndex: -1,
			Decorators: decorators,
		}
		if sup := def.ChildByFieldName("superclasses"); sup != nil {
			sym.Bases = f.extractBases(sup)
		}
		sym.ID = symbolID(f.Path, start, sym.Qualified())
		scope.Declare(sym)
		f.Symbols = append(f.Symbols, sym)

		body := newScope(ClassScope, name, scope, def)
		sym.Body = body
		f.ownerScopes[def] = body
		if block := def.ChildByFieldName("body"); block != nil {
			f.walkScope(block, body, nil)
		}
	}
}

// declareParameters binds each parameter in the function's own scope.
// For instance and class methods the leading self/cls receiver is bound
// but excluded from positional indexing.
func (f *File) declareParameters(def *sitter.Node, body *Scope, hasReceiver bool) {
	params := def.ChildByFieldName("parameters")
	if params == nil {
		return
	}

	index := 0
	first := true
	for i := uint32(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(int(i))

		var nameNode *sitter.Node
		annotation := ""
		splat := false

		switch p.Type() {
		case "identifier":
			nameNode = p
		case "typed_parameter":
			nameNode = firstChildOfType(p, "identifier")
			if t := p.ChildByFieldName("type"); t != nil {
				annotation = strings.TrimSpace(f.Text(t))
			}
		case "default_parameter":
			nameNode = p.ChildByFieldName("name")
			if nameNode == nil {
				nameNode = firstChildOfType(p, "identifier")
			}
		case "typed_default_parameter":
			nameNode = p.ChildByFieldName("name")
			if nameNode == nil {
				nameNode = firstChildOfType(p, "identifier")
			}
			if t := p.ChildByFieldName("type"); t != nil {
				annotation = strings.TrimSpace(f.Text(t))
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			nameNode = firstChildOfType(p, "identifier")
			splat = true
		default:
			continue
		}

		if nameNode == nil {
			continue
		}
		name := f.Text(nameNode)
		line, _ := parser.LineRange(p)

		sym := &Symbol{
			Name:       name,
			Kind:       ParameterSymbol,
			File:       f.Path,
			StartLine:  line,
			EndLine:    line,
			Annotation: annotation,
			Scope:      body,
			Node:       p,
			ParamIndex: -1,
		}
		if first && hasReceiver && (name == "self" || name == "cls") {
			// Receiver: bound but not positional.
		} else if !splat {
			sym.ParamIndex = index
			index++
		}
		first = false
		sym.ID = symbolID(f.Path, line, sym.Qualified())
		body.Declare(sym)
		f.Symbols = append(f.Symbols, sym)
	}
}

// declareAssignments binds assignment targets inside an expression
// statement. Module-level targets become constants, function-level targets
// become locals, class-level targets become class attributes (modeled as
// constants in the class scope).
func (f *File) declareAssignments(stmt *sitter.Node, scope *Scope) {
	assign := firstChildOfType(stmt, "assignment")
	if assign == nil {
		assign = firstChildOfType(stmt, "augmented_assignment")
		if assign == nil {
			return
		}
	}

	left := assign.ChildByFieldName("left")
	if left == nil {
		return
	}

	annotation := ""
	if t := assign.ChildByFieldName("type"); t != nil {
		annotation = strings.TrimSpace(f.Text(t))
	}

	kind := LocalSymbol
	if scope.Kind == ModuleScope || scope.Kind == ClassScope {
		kind = ConstantSymbol
	}

	for _, target := range assignmentTargets(left) {
		name := f.Text(target)
		if name == "" || name == "_" {
			continue
		}
		if scope.Lookup(name) != nil {
			continue // re-assignment, not a new declaration
		}
		line, _ := parser.LineRange(stmt)
		_, end := parser.LineRange(stmt)
		sym := &Symbol{
			Name:       name,
			Kind:       kind,
			File:       f.Path,
			StartLine:  line,
			EndLine:    end,
			Annotation: annotation,
			Scope:      scope,
			Node:       assign,
			ParamIndex: -1,
		}
		sym.ID = symbolID(f.Path, line, sym.Qualified())
		scope.Declare(sym)
		f.Symbols = append(f.Symbols, sym)
	}
}

// declareForTarget binds loop variables of a for statement.
func (f *File) declareForTarget(stmt *sitter.Node, scope *Scope) {
	left := stmt.ChildByFieldName("left")
	if left == nil {
		return
	}
	for _, target := range assignmentTargets(left) {
		name := f.Text(target)
		if name == "" || name == "_" || scope.Lookup(name) != nil {
			continue
		}
		line, _ := parser.LineRange(target)
		sym := &Symbol{
			Name:       name,
			Kind:       LocalSymbol,
			File:       f.Path,
			StartLine:  line,
			EndLine:    line,
			Scope:      scope,
			Node:       target,
			ParamIndex: -1,
		}
		sym.ID = symbolID(f.Path, line, sym.Qualified())
		scope.Declare(sym)
		f.Symbols = append(f.Symbols, sym)
	}
}

// assignmentTargets flattens an assignment left-hand side into plain
// identifier targets. Attribute and subscript targets are not bindings.
func assignmentTargets(left *sitter.Node) []*sitter.Node {
	switch left.Type() {
	case "identifier":
		return []*sitter.Node{left}
	case "pattern_list", "tuple_pattern":
		var out []*sitter.Node
		for i := uint32(0); i < left.NamedChildCount(); i++ {
			c := left.NamedChild(int(i))
			if c.Type() == "identifier" {
				out = append(out, c)
			}
		}
		return out
	}
	return nil
}

// extractDecorators returns decorator names of a decorated_definition.
func (f *File) extractDecorators(node *sitter.Node) []string {
	var out []string
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		c := node.NamedChild(int(i))
		if c.Type() != "decorator" {
			continue
		}
		for j := uint32(0); j < c.NamedChildCount(); j++ {
			expr := c.NamedChild(int(j))
			switch expr.Type() {
			case "identifier", "attribute":
				out = append(out, f.Text(expr))
			case "call":
				if fn := expr.ChildByFieldName("function"); fn != nil {
					out = append(out, f.Text(fn))
				}
			}
		}
	}
	return out
}

// extractBases returns base class names from a superclasses argument_list.
func (f *File) extractBases(node *sitter.Node) []string {
	var out []string
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		c := node.NamedChild(int(i))
		switch c.Type() {
		case "identifier", "attribute":
			out = append(out, f.Text(c))
		}
	}
	return out
}

// dynamicCallees are callables whose use defeats static binding entirely.
var dynamicCallees = map[string]bool{
	"eval":       true,
	"exec":       true,
	"globals":    true,
	"locals":     true,
	"vars":       true,
	"compile":    true,
	"__import__": true,
}

// scanDynamic records dynamic-access constructs. A literal-string
// getattr/setattr/hasattr contributes the named member to DynamicNames;
// anything else that defeats static binding marks the whole file Dynamic.
func (f *File) scanDynamic() {
	f.Result.WalkNodes(func(n *sitter.Node) bool {
		switch n.Type() {
		case "call":
			fn := n.ChildByFieldName("function")
			if fn == nil || fn.Type() != "identifier" {
				return true
			}
			callee := f.Text(fn)
			if dynamicCallees[callee] {
				f.Dynamic = true
				return true
			}
			if callee == "getattr" || callee == "setattr" || callee == "hasattr" || callee == "delattr" {
				args := n.ChildByFieldName("arguments")
				if args == nil || args.NamedChildCount() < 2 {
					f.Dynamic = true
					return true
				}
				nameArg := args.NamedChild(1)
				if nameArg.Type() == "string" {
					f.DynamicNames = append(f.DynamicNames, stripQuotes(f.Text(nameArg)))
				} else {
					f.Dynamic = true
				}
			}
		case "wildcard_import":
			f.Dynamic = true
		}
		return true
	})
}

func stripQuotes(s string) string {
	s = strings.Trim(s, "\"'")
	return s
}

func firstChildOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		c := node.NamedChild(int(i))
		if c.Type() == nodeType {
			return c
		}
	}
	return nil
}

func isStatic(decorators []string) bool {
	for _, d := range decorators {
		if d == "staticmethod" {
			return true
		}
	}
	return false
}
