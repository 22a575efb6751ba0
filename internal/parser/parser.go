// Package parser provides tree-sitter based parsing for the Python sources
// the engine analyzes.
//
// The parser package wraps the tree-sitter library behind a small interface
// that preserves exact line and byte positions, which later stages rely on
// when reporting findings and emitting edits.
package parser

import (
	"context"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Parser wraps a tree-sitter parser configured for Python.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	// Tree is the complete tree-sitter parse tree.
	Tree *sitter.Tree
	// Root is the root node of the AST.
	Root *sitter.Node
	// Source is the original source code that was parsed.
	Source []byte
	// FilePath is the path to the source file (empty for in-memory parsing).
	FilePath string
}

// New creates a Python parser.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// Parse parses source code and returns the AST.
// A tree containing syntax errors is reported as a *ParseError with the
// location of the first error node, so malformed files can be excluded
// from analysis without aborting the scan.
func (p *Parser) Parse(source []byte) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}

	root := tree.RootNode()
	if root.HasError() {
		if errNode := firstErrorNode(root); errNode != nil {
			tree.Close()
			return nil, &ParseError{
				Message: "syntax error",
				Line:    errNode.StartPoint().Row + 1,
				Column:  errNode.StartPoint().Column + 1,
			}
		}
	}

	return &ParseResult{
		Tree:   tree,
		Root:   root,
		Source: source,
	}, nil
}

// ParseFile parses a file from disk.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}

	result, err := p.Parse(source)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.File = path
		}
		return nil, err
	}

	result.FilePath = path
	return result, nil
}

// Close releases parser resources.
// After calling Close, the parser should not be used.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
}

// Close releases the parse tree resources.
func (r *ParseResult) Close() {
	if r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
		r.Root = nil
	}
}

// WalkNodes traverses the AST depth-first, calling the visitor function
// for each node. If the visitor returns false, the node's children are
// skipped.
func (r *ParseResult) WalkNodes(visitor func(*sitter.Node) bool) {
	if r.Root == nil {
		return
	}
	walkNode(r.Root, visitor)
}

func walkNode(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if !visitor(node) {
		return
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		walkNode(node.Child(int(i)), visitor)
	}
}

// FindNodesByType returns all nodes of the specified type in document order.
func (r *ParseResult) FindNodesByType(nodeType string) []*sitter.Node {
	var nodes []*sitter.Node
	r.WalkNodes(func(node *sitter.Node) bool {
		if node.Type() == nodeType {
			nodes = append(nodes, node)
		}
		return true
	})
	return nodes
}

// NodeText returns the source text for a node.
func (r *ParseResult) NodeText(node *sitter.Node) string {
	if node == nil || r.Source == nil {
		return ""
	}
	if node.EndByte() > uint32(len(r.Source)) {
		return ""
	}
	return node.Content(r.Source)
}

// LineRange returns the 1-based start and end lines of a node.
func LineRange(node *sitter.Node) (uint32, uint32) {
	return node.StartPoint().Row + 1, node.EndPoint().Row + 1
}

// firstErrorNode finds the first ERROR or MISSING node in the tree.
func firstErrorNode(root *sitter.Node) *sitter.Node {
	var found *sitter.Node
	walkNode(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return true
	})
	return found
}
