package detect

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/slopdetect/slop/internal/parser"
	"github.com/slopdetect/slop/internal/source"
)

// docstringDetector flags docstrings that restate the signature: every
// content word already appears in the function name, parameter names,
// or annotation. Such a docstring costs lines and teaches nothing.
type docstringDetector struct{}

func (d *docstringDetector) Name() string       { return "restating-docstring" }
func (d *docstringDetector) Category() Category { return CategoryDocumentation }

func (d *docstringDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, sym := range f.Symbols {
		switch sym.Kind {
		case source.FunctionSymbol, source.MethodSymbol, source.ClassSymbol:
		default:
			continue
		}
		text, start, end, ok := f.Docstring(sym)
		if !ok {
			continue
		}
		vocab := signatureWords(f, sym)
		if !restates(text, vocab) {
			continue
		}
		fd := newFinding(d.Name(), d.Category(), f, start, end)
		fd.Subject = sym
		fd.Replacement = ""
		fd.LinesSaved = int(end-start) + 1
		out = append(out, fd)
	}
	return out
}

// signatureWords splits the symbol name, parameter names, and return
// annotation into lowercase words. Snake and camel boundaries both
// split.
func signatureWords(f *source.File, sym *source.Symbol) map[string]bool {
	vocab := map[string]bool{}
	add := func(ident string) {
		for _, w := range splitIdent(ident) {
			vocab[w] = true
		}
	}
	add(sym.Name)
	add(sym.Annotation)
	if sym.Body != nil {
		for _, p := range sym.Body.Symbols() {
			if p.Kind == source.ParameterSymbol {
				add(p.Name)
				add(p.Annotation)
			}
		}
	}
	if sym.Kind == source.MethodSymbol {
		if cls := sym.Scope; cls != nil {
			add(cls.Name)
		}
	}
	return vocab
}

// restates reports whether every content word of the docstring is in
// the vocabulary. Filler words never count against the docstring.
func restates(doc string, vocab map[string]bool) bool {
	content := 0
	for _, w := range splitIdent(doc) {
		if fillerWords[w] {
			continue
		}
		content++
		if !vocab[w] {
			return false
		}
	}
	return content > 0
}

var fillerWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"by": true, "for": true, "from": true, "given": true, "if": true,
	"in": true, "is": true, "it": true, "its": true, "new": true,
	"of": true, "on": true, "one": true, "or": true, "return": true,
	"returns": true, "that": true, "the": true, "this": true,
	"to": true, "with": true,
}

// splitIdent lowercases and splits on snake, camel, and non-letter
// boundaries.
func splitIdent(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			flush()
			cur = append(cur, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()
	return words
}

// commentDetector flags comments that restate the statement they sit on
// or precede. Directive comments (noqa, type:, pragma) are exempt.
type commentDetector struct{}

func (d *commentDetector) Name() string       { return "restating-comment" }
func (d *commentDetector) Category() Category { return CategoryDocumentation }

var directivePrefixes = []string{"noqa", "type:", "pylint", "pragma", "mypy", "isort", "fmt:", "ruff:"}

func (d *commentDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, n := range f.Comments() {
		text := strings.TrimLeft(f.Text(n), "# ")
		if isDirective(text) {
			continue
		}
		code, trailing := describedCode(f, n)
		if code == "" {
			continue
		}
		vocab := map[string]bool{}
		for _, w := range splitIdent(code) {
			vocab[w] = true
		}
		if !restates(text, vocab) {
			continue
		}
		start, end := parser.LineRange(n)
		fd := newFinding(d.Name(), d.Category(), f, start, end)
		if trailing {
			fd.Replacement = strings.TrimRight(strings.SplitN(f.Line(start), "#", 2)[0], " \t")
			fd.LinesSaved = 0
		} else {
			fd.Replacement = ""
			fd.LinesSaved = 1
		}
		out = append(out, fd)
	}
	return out
}

func isDirective(text string) bool {
	for _, p := range directivePrefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

// describedCode returns the code a comment talks about: the rest of its
// own line for a trailing comment, otherwise the next non-comment line.
func describedCode(f *source.File, comment *sitter.Node) (code string, trailing bool) {
	line, _ := parser.LineRange(comment)
	before := strings.SplitN(f.Line(line), "#", 2)[0]
	if strings.TrimSpace(before) != "" {
		return before, true
	}
	for n := line + 1; n <= uint32(len(f.Lines)); n++ {
		l := f.Line(n)
		t := strings.TrimSpace(l)
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		return l, false
	}
	return "", false
}
