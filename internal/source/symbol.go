package source

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// SymbolKind classifies a declaration.
type SymbolKind string

const (
	// FunctionSymbol is a module-level function declaration.
	FunctionSymbol SymbolKind = "function"
	// MethodSymbol is a function declared inside a class body.
	MethodSymbol SymbolKind = "method"
	// ClassSymbol is a class declaration.
	ClassSymbol SymbolKind = "class"
	// ConstantSymbol is a module-level assignment target.
	ConstantSymbol SymbolKind = "constant"
	// ParameterSymbol is a function or method parameter.
	ParameterSymbol SymbolKind = "parameter"
	// LocalSymbol is a variable first assigned inside a function body.
	LocalSymbol SymbolKind = "local"
)

// Symbol is a single declaration. Exactly one Symbol exists per declaration
// site; references are resolved back to it through the scope tree.
type Symbol struct {
	// ID uniquely and deterministically identifies the declaration.
	ID   string
	Name string
	Kind SymbolKind

	// File and line range of the declaration.
	File      string
	StartLine uint32
	EndLine   uint32

	// Annotation is the declared type annotation, verbatim. Empty means
	// the symbol is dynamically typed.
	Annotation string

	// Scope is the scope the symbol is declared in.
	Scope *Scope

	// Body is the scope the symbol owns (functions, methods, classes).
	// Nil for constants, parameters and locals.
	Body *Scope

	// Node is the declaration node in the parse tree.
	Node *sitter.Node

	// ParamIndex is the zero-based positional index for parameters,
	// after any skipped self/cls receiver. -1 for non-parameters.
	ParamIndex int

	// Decorators holds decorator names for functions, methods and classes.
	Decorators []string

	// Bases holds base class names for classes.
	Bases []string
}

// Private reports whether the symbol uses the leading-underscore naming
// convention for module-private names. Dunder names are not private in
// this sense; they are protocol hooks invoked by the runtime.
func (s *Symbol) Private() bool {
	if !strings.HasPrefix(s.Name, "_") {
		return false
	}
	return !(strings.HasPrefix(s.Name, "__") && strings.HasSuffix(s.Name, "__"))
}

// Qualified returns the dotted path of the symbol within its module,
// e.g. "Parser.parse" for a method.
func (s *Symbol) Qualified() string {
	if s.Scope == nil || s.Scope.Qualified() == "" {
		return s.Name
	}
	return s.Scope.Qualified() + "." + s.Name
}

// Location returns the file:line of the declaration.
func (s *Symbol) Location() string {
	return fmt.Sprintf("%s:%d", s.File, s.StartLine)
}

// symbolID builds the deterministic identity for a declaration.
func symbolID(file string, line uint32, qualified string) string {
	return fmt.Sprintf("%s:%d:%s", file, line, qualified)
}

// ConcreteAnnotation reports whether a declared annotation pins the value
// to a single concrete, non-optional type. Optionals, unions, Any and
// missing annotations are all non-concrete: a guard against None on such
// a value can never be proven redundant.
func ConcreteAnnotation(ann string) bool {
	ann = strings.TrimSpace(ann)
	if ann == "" {
		return false
	}
	switch ann {
	case "Any", "object", "None":
		return false
	}
	if strings.Contains(ann, "|") {
		return false
	}
	if strings.HasPrefix(ann, "Optional[") || strings.HasPrefix(ann, "typing.Optional[") {
		return false
	}
	if strings.HasPrefix(ann, "Union[") || strings.HasPrefix(ann, "typing.Union[") {
		return false
	}
	return true
}
