package index

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/slopdetect/slop/internal/source"
)

// Build runs the single global indexing pass over every file's tree and
// returns the frozen index. The result does not depend on the order of
// files: each reference is keyed by its own coordinates and opaque marks
// are idempotent.
func Build(files []*source.File) *Index {
	b := &builder{
		ix:         New(),
		global:     make(map[string][]*source.Symbol),
		members:    make(map[string][]*source.Symbol),
		modules:    make(map[string][]*source.File),
		classes:    make(map[string][]*source.Symbol),
		fileScopes: make(map[*source.File]struct{}),
	}

	for _, f := range files {
		b.modules[moduleName(f.Path)] = append(b.modules[moduleName(f.Path)], f)
		for _, sym := range f.Symbols {
			if sym.Scope != nil && sym.Scope.Kind == source.ModuleScope {
				b.global[sym.Name] = append(b.global[sym.Name], sym)
				if sym.Kind == source.ClassSymbol {
					b.classes[sym.Name] = append(b.classes[sym.Name], sym)
				}
			}
			if sym.Scope != nil && sym.Scope.Kind == source.ClassScope {
				b.members[sym.Name] = append(b.members[sym.Name], sym)
			}
		}
	}

	for _, f := range files {
		b.walk(f)
	}
	for _, f := range files {
		b.applyDynamic(f)
	}

	return b.ix
}

type builder struct {
	ix *Index

	// global maps bare names to module-level declarations across files.
	global map[string][]*source.Symbol
	// members maps names to class-scope declarations (methods, attrs).
	members map[string][]*source.Symbol
	// modules maps module basenames to their files, for mod.attr uses.
	modules map[string][]*source.File
	// classes maps class names to class symbols, for annotation-driven
	// attribute resolution.
	classes map[string][]*source.Symbol

	fileScopes map[*source.File]struct{}
}

func moduleName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (b *builder) walk(f *source.File) {
	f.Result.WalkNodes(func(n *sitter.Node) bool {
		switch n.Type() {
		case "identifier":
			b.identifier(f, n)
		case "attribute":
			b.attribute(f, n)
		case "import_statement", "import_from_statement":
			return false // import clauses bind names, they do not use them
		}
		return true
	})
}

// identifier handles a bare name occurrence.
func (b *builder) identifier(f *source.File, n *sitter.Node) {
	if !isReference(n) {
		return
	}
	name := f.Text(n)

	scope := f.ScopeFor(n)
	sym := scope.Resolve(name)
	if sym == nil {
		// Cross-file: a unique module-level declaration elsewhere binds
		// the name (the common from-import case). Ambiguity is opaque.
		candidates := b.global[name]
		switch len(candidates) {
		case 0:
			return // external or builtin
		case 1:
			sym = candidates[0]
		default:
			for _, c := range candidates {
				b.ix.RecordOpaque(c)
			}
			return
		}
	}

	b.record(f, n, sym)
}

// attribute handles obj.attr occurrences, binding attr where the object
// is statically known: self/cls receivers, class names, annotated values
// and module basenames. Anything else is a dynamic dispatch and marks
// every same-named member opaque.
func (b *builder) attribute(f *source.File, n *sitter.Node) {
	attrNode := n.ChildByFieldName("attribute")
	objNode := n.ChildByFieldName("object")
	if attrNode == nil || objNode == nil {
		return
	}
	attr := f.Text(attrNode)

	if target := b.resolveAttr(f, n, objNode, attr); target != nil {
		b.record(f, attrNode, target)
		return
	}

	// Unbound: conservative opaque use on every possible target.
	for _, m := range b.members[attr] {
		b.ix.RecordOpaque(m)
	}
}

func (b *builder) resolveAttr(f *source.File, n, objNode *sitter.Node, attr string) *source.Symbol {
	if objNode.Type() != "identifier" {
		return nil
	}
	objName := f.Text(objNode)

	// self.attr / cls.attr inside a method body.
	if objName == "self" || objName == "cls" {
		if cls := enclosingClassScope(f.ScopeFor(n)); cls != nil {
			return cls.Lookup(attr)
		}
		return nil
	}

	scope := f.ScopeFor(n)
	if objSym := scope.Resolve(objName); objSym != nil {
		switch {
		case objSym.Kind == source.ClassSymbol && objSym.Body != nil:
			return objSym.Body.Lookup(attr)
		case source.ConcreteAnnotation(objSym.Annotation):
			if classes := b.classes[baseType(objSym.Annotation)]; len(classes) == 1 {
				return classes[0].Body.Lookup(attr)
			}
		}
		return nil
	}

	// mod.attr where the object names exactly one scanned module.
	if mods := b.modules[objName]; len(mods) == 1 {
		return mods[0].Module.Lookup(attr)
	}
	return nil
}

// baseType strips a generic suffix so `list[Item]` indexes as `list`.
func baseType(ann string) string {
	if i := strings.IndexByte(ann, '['); i >= 0 {
		return ann[:i]
	}
	return ann
}

// record registers the reference and, when the occurrence is the callee
// of a call expression, the call's argument list.
func (b *builder) record(f *source.File, n *sitter.Node, sym *source.Symbol) {
	site := CallSite{
		File:  f.Path,
		Line:  n.StartPoint().Row + 1,
		Scope: f.ScopeFor(n).Qualified(),
		Test:  f.IsTest,
	}
	b.ix.Record(sym, site)

	if call := enclosingCall(n); call != nil {
		b.ix.recordCall(sym, CallDetail{
			Site: site,
			Args: call.ChildByFieldName("arguments"),
			File: f,
		})
	}
}

// applyDynamic propagates a file's dynamic constructs into opaque marks.
// A fully dynamic file makes its own declarations and every module-level
// declaration it could reach opaque; literal dynamic names mark every
// same-named symbol opaque.
func (b *builder) applyDynamic(f *source.File) {
	if f.Dynamic {
		for _, sym := range f.Symbols {
			b.ix.RecordOpaque(sym)
		}
		for _, syms := range b.global {
			for _, sym := range syms {
				b.ix.RecordOpaque(sym)
			}
		}
	}
	for _, name := range f.DynamicNames {
		for _, sym := range b.global[name] {
			b.ix.RecordOpaque(sym)
		}
		for _, sym := range b.members[name] {
			b.ix.RecordOpaque(sym)
		}
	}
}

// isReference reports whether an identifier occurrence is a use rather
// than a binding or a syntactic name.
func isReference(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}

	switch parent.Type() {
	case "function_definition", "class_definition":
		return parent.ChildByFieldName("name") != n
	case "attribute":
		// The member name is handled by the attribute pass; the object
		// identifier is a normal use.
		return parent.ChildByFieldName("attribute") != n
	case "keyword_argument":
		return parent.ChildByFieldName("name") != n
	case "parameters", "typed_parameter", "default_parameter",
		"typed_default_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		// Parameter declarations bind, except default values which read.
		if parent.Type() == "default_parameter" || parent.Type() == "typed_default_parameter" {
			return parent.ChildByFieldName("value") == n
		}
		return false
	case "assignment":
		// Plain writes are not references; reads on the right are.
		return parent.ChildByFieldName("left") != n
	case "pattern_list", "tuple_pattern":
		gp := parent.Parent()
		if gp != nil && (gp.Type() == "assignment" && gp.ChildByFieldName("left") == parent ||
			gp.Type() == "for_statement" && gp.ChildByFieldName("left") == parent) {
			return false
		}
	case "for_statement":
		return parent.ChildByFieldName("left") != n
	case "dotted_name", "aliased_import":
		return false
	}
	return true
}

func enclosingCall(n *sitter.Node) *sitter.Node {
	parent := n.Parent()
	for parent != nil {
		switch parent.Type() {
		case "call":
			if parent.ChildByFieldName("function") == n {
				return parent
			}
			return nil
		case "attribute":
			n = parent
			parent = parent.Parent()
		default:
			return nil
		}
	}
	return nil
}

func enclosingClassScope(s *source.Scope) *source.Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == source.ClassScope {
			return cur
		}
	}
	return nil
}
