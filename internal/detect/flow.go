package detect

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/slopdetect/slop/internal/parser"
	"github.com/slopdetect/slop/internal/source"
)

// singleUseBindingDetector flags `x = expr` immediately followed by the
// sole read of x: the binding adds a name without adding clarity. The
// verifier traces the value to confirm nothing else observes it.
type singleUseBindingDetector struct{}

func (d *singleUseBindingDetector) Name() string       { return "single-use-binding" }
func (d *singleUseBindingDetector) Category() Category { return CategoryFlow }

func (d *singleUseBindingDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, fn := range functionSymbols(f) {
		body := fn.Node.ChildByFieldName("body")
		if body == nil {
			continue
		}
		for i := 0; i < int(body.NamedChildCount())-1; i++ {
			stmt := body.NamedChild(i)
			name, value, ok := simpleBinding(f, stmt)
			if !ok {
				continue
			}
			next := body.NamedChild(i + 1)
			if countReadsIn(f, body, name, stmt) != 1 || !readInlineable(f, next, name) {
				continue
			}
			// Long expressions earn their name.
			if len(value) > 60 {
				continue
			}
			start, _ := parser.LineRange(stmt)
			_, end := parser.LineRange(stmt)
			fd := newFinding(d.Name(), d.Category(), f, start, end)
			fd.ID += ":" + name
			fd.Enclosing = fn
			fd.Replacement = "" // inline value into the next statement
			fd.LinesSaved = 1
			out = append(out, fd)
		}
	}
	return out
}

// simpleBinding matches `name = expr` where name is a plain identifier
// and expr has no side-effect-ordering hazard beyond a single call.
func simpleBinding(f *source.File, stmt *sitter.Node) (name, value string, ok bool) {
	if stmt.Type() != "expression_statement" {
		return "", "", false
	}
	assign := stmt.NamedChild(0)
	if assign == nil || assign.Type() != "assignment" {
		return "", "", false
	}
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "identifier" {
		return "", "", false
	}
	n := f.Text(left)
	if n == "_" {
		return "", "", false
	}
	return n, f.Text(right), true
}

// readInlineable reports whether the sole read sits where inlining the
// value cannot reorder or skip its evaluation: a simple next statement,
// or the condition of an immediately following if/while. A read inside
// a guarded body would move the value's evaluation under the branch.
func readInlineable(f *source.File, next *sitter.Node, name string) bool {
	switch next.Type() {
	case "if_statement", "while_statement":
		cond := next.ChildByFieldName("condition")
		return cond != nil && countReadsIn(f, cond, name, nil) == 1
	case "for_statement", "with_statement", "try_statement", "match_statement",
		"function_definition", "class_definition", "decorated_definition":
		return false
	}
	return countReadsIn(f, next, name, nil) == 1
}

// countReadsIn counts identifier reads of name under root, excluding the
// binding statement itself and excluding attribute member positions.
// Nested defs are descended: closures genuinely read the binding.
func countReadsIn(f *source.File, root *sitter.Node, name string, skip *sitter.Node) int {
	reads := 0
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == skip {
			return
		}
		read := n.Type() == "identifier" && f.Text(n) == name
		if read {
			if p := n.Parent(); p != nil {
				if p.Type() == "attribute" && p.ChildByFieldName("attribute") == n {
					read = false
				}
				if p.Type() == "assignment" && p.ChildByFieldName("left") == n {
					read = false
				}
				if p.Type() == "keyword_argument" && p.ChildByFieldName("name") == n {
					read = false
				}
			}
		}
		if read {
			reads++
		}
		for i := uint32(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(int(i)))
		}
	}
	walk(root)
	return reads
}
