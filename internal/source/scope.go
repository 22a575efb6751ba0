package source

import sitter "github.com/smacker/go-tree-sitter"

// ScopeKind classifies a lexical scope.
type ScopeKind string

const (
	// ModuleScope is the top-level scope of a file.
	ModuleScope ScopeKind = "module"
	// ClassScope is the body of a class definition.
	ClassScope ScopeKind = "class"
	// FunctionScope is the body of a function or method.
	FunctionScope ScopeKind = "function"
)

// Scope is a node in the lexical containment tree. Identifier references
// resolve to the nearest enclosing binding, shadowing outer ones.
type Scope struct {
	Kind     ScopeKind
	Name     string // empty for the module scope
	Parent   *Scope
	Children []*Scope

	// Node is the tree node that owns this scope: the module root, a
	// class_definition or a function_definition.
	Node *sitter.Node

	bindings map[string]*Symbol
}

func newScope(kind ScopeKind, name string, parent *Scope, node *sitter.Node) *Scope {
	s := &Scope{
		Kind:     kind,
		Name:     name,
		Parent:   parent,
		Node:     node,
		bindings: make(map[string]*Symbol),
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Declare binds a symbol in this scope. The first declaration of a name
// wins; re-assignments do not create new symbols.
func (s *Scope) Declare(sym *Symbol) {
	if _, exists := s.bindings[sym.Name]; !exists {
		s.bindings[sym.Name] = sym
	}
}

// Lookup returns the binding declared directly in this scope, or nil.
func (s *Scope) Lookup(name string) *Symbol {
	return s.bindings[name]
}

// Resolve walks from this scope outward and returns the nearest enclosing
// binding for name, or nil if the identifier is unresolved.
//
// Class scopes are skipped when resolving from a nested function scope:
// Python function bodies do not see their enclosing class's namespace
// without a self/cls receiver.
func (s *Scope) Resolve(name string) *Symbol {
	from := s
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == ClassScope && from.Kind == FunctionScope && cur != from {
			continue
		}
		if sym, ok := cur.bindings[name]; ok {
			return sym
		}
	}
	return nil
}

// Qualified returns the dotted path of the scope, e.g. "Parser.parse".
// The module scope qualifies as "".
func (s *Scope) Qualified() string {
	if s.Parent == nil {
		return ""
	}
	parent := s.Parent.Qualified()
	if parent == "" {
		return s.Name
	}
	return parent + "." + s.Name
}

// Symbols returns the bindings declared directly in this scope, in an
// unspecified order. Callers that need determinism sort by ID.
func (s *Scope) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(s.bindings))
	for _, sym := range s.bindings {
		out = append(out, sym)
	}
	return out
}
