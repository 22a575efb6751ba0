package source

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/slopdetect/slop/internal/parser"
)

// Docstring returns the docstring of a function, method or class symbol:
// its text with quotes stripped, its 1-based line range, and whether one
// is present.
func (f *File) Docstring(sym *Symbol) (string, uint32, uint32, bool) {
	if sym.Node == nil {
		return "", 0, 0, false
	}
	body := sym.Node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return "", 0, 0, false
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return "", 0, 0, false
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return "", 0, 0, false
	}
	start, end := parser.LineRange(first)
	return stripDocQuotes(f.Text(str)), start, end, true
}

// Comments returns every comment node in the file in document order.
func (f *File) Comments() []*sitter.Node {
	return f.Result.FindNodesByType("comment")
}

func stripDocQuotes(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return strings.TrimSpace(s[len(q) : len(s)-len(q)])
		}
	}
	return s
}
