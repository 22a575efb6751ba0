package parser

import (
	"testing"
)

func TestParseSimpleFunction(t *testing.T) {
	p := New()
	defer p.Close()

	result, err := p.Parse([]byte("def greet(name):\n    return name\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer result.Close()

	funcs := result.FindNodesByType("function_definition")
	if len(funcs) != 1 {
		t.Fatalf("expected 1 function_definition, got %d", len(funcs))
	}

	start, end := LineRange(funcs[0])
	if start != 1 || end != 2 {
		t.Errorf("expected lines 1-2, got %d-%d", start, end)
	}
}

func TestParseSyntaxError(t *testing.T) {
	p := New()
	defer p.Close()

	_, err := p.Parse([]byte("def broken(:\n    pass\n"))
	if err == nil {
		t.Fatal("expected ParseError for malformed source")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
}

func TestNodeText(t *testing.T) {
	p := New()
	defer p.Close()

	src := []byte("x = 1\n")
	result, err := p.Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer result.Close()

	assigns := result.FindNodesByType("assignment")
	if len(assigns) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assigns))
	}
	if got := result.NodeText(assigns[0]); got != "x = 1" {
		t.Errorf("expected %q, got %q", "x = 1", got)
	}
}
