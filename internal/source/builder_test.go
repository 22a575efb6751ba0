package source

import (
	"testing"

	"github.com/slopdetect/slop/internal/parser"
)

func buildFile(t *testing.T, code string) *File {
	t.Helper()
	b := NewBuilder()
	defer b.Close()

	f, err := b.Build("app.py", []byte(code), false)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(f.Close)
	return f
}

func findSymbol(t *testing.T, f *File, name string, kind SymbolKind) *Symbol {
	t.Helper()
	for _, s := range f.Symbols {
		if s.Name == name && s.Kind == kind {
			return s
		}
	}
	t.Fatalf("symbol %s (%s) not found", name, kind)
	return nil
}

func TestBuildFunctionAndParams(t *testing.T) {
	f := buildFile(t, `def process(item: Item, retries: int = 3) -> bool:
    total = 0
    return total > retries
`)

	fn := findSymbol(t, f, "process", FunctionSymbol)
	if fn.StartLine != 1 || fn.EndLine != 3 {
		t.Errorf("expected lines 1-3, got %d-%d", fn.StartLine, fn.EndLine)
	}
	if fn.Annotation != "bool" {
		t.Errorf("expected return annotation bool, got %q", fn.Annotation)
	}

	item := findSymbol(t, f, "item", ParameterSymbol)
	if item.Annotation != "Item" {
		t.Errorf("expected annotation Item, got %q", item.Annotation)
	}
	if item.ParamIndex != 0 {
		t.Errorf("expected param index 0, got %d", item.ParamIndex)
	}

	retries := findSymbol(t, f, "retries", ParameterSymbol)
	if retries.ParamIndex != 1 {
		t.Errorf("expected param index 1, got %d", retries.ParamIndex)
	}

	total := findSymbol(t, f, "total", LocalSymbol)
	if total.Scope != fn.Body {
		t.Error("local should be declared in the function body scope")
	}
}

func TestBuildClassAndMethods(t *testing.T) {
	f := buildFile(t, `class Store:
    LIMIT = 10

    def get(self, key: str) -> str:
        return self.data[key]
`)

	cls := findSymbol(t, f, "Store", ClassSymbol)
	get := findSymbol(t, f, "get", MethodSymbol)
	if get.Scope != cls.Body {
		t.Error("method should be declared in the class scope")
	}
	if get.Qualified() != "Store.get" {
		t.Errorf("expected qualified Store.get, got %q", get.Qualified())
	}

	key := findSymbol(t, f, "key", ParameterSymbol)
	if key.ParamIndex != 0 {
		t.Errorf("self must not consume a positional index; got %d for key", key.ParamIndex)
	}

	limit := findSymbol(t, f, "LIMIT", ConstantSymbol)
	if limit.Scope != cls.Body {
		t.Error("class attribute should live in the class scope")
	}
}

func TestResolveShadowing(t *testing.T) {
	f := buildFile(t, `value = 1

def outer():
    value = 2
    return value
`)

	outer := findSymbol(t, f, "outer", FunctionSymbol)
	resolved := outer.Body.Resolve("value")
	if resolved == nil || resolved.Kind != LocalSymbol {
		t.Fatal("inner binding must shadow the module constant")
	}
	if got := f.Module.Resolve("value"); got == nil || got.Kind != ConstantSymbol {
		t.Fatal("module scope must still resolve to the constant")
	}
}

func TestClassScopeNotVisibleFromMethod(t *testing.T) {
	f := buildFile(t, `class C:
    FIELD = 1

    def m(self):
        return FIELD
`)

	m := findSymbol(t, f, "m", MethodSymbol)
	if m.Body.Resolve("FIELD") != nil {
		t.Error("method body must not see class attributes without a receiver")
	}
}

func TestDynamicDetection(t *testing.T) {
	f := buildFile(t, `import importlib

def load(name):
    mod = eval(name)
    return mod
`)
	if !f.Dynamic {
		t.Error("eval must mark the file dynamic")
	}

	g := buildFile(t, `def close_all(conn):
    fn = getattr(conn, "close")
    fn()
`)
	if g.Dynamic {
		t.Error("literal getattr must not mark the whole file dynamic")
	}
	if len(g.DynamicNames) != 1 || g.DynamicNames[0] != "close" {
		t.Errorf("expected dynamic name close, got %v", g.DynamicNames)
	}
}

func TestParseFailure(t *testing.T) {
	b := NewBuilder()
	defer b.Close()

	_, err := b.Build("bad.py", []byte("def broken(:\n"), false)
	if err == nil {
		t.Fatal("expected error for malformed source")
	}
	if _, ok := err.(*parser.ParseError); !ok {
		t.Fatalf("expected *parser.ParseError, got %T", err)
	}
}

func TestNonEmptyLineCount(t *testing.T) {
	f := buildFile(t, "x = 1\n\n\ny = 2\n")
	if f.NonEmptyLines != 2 {
		t.Errorf("expected 2 non-empty lines, got %d", f.NonEmptyLines)
	}
}

func TestDocstring(t *testing.T) {
	f := buildFile(t, `def get_user(user_id):
    """Get user by user id."""
    return user_id
`)
	fn := findSymbol(t, f, "get_user", FunctionSymbol)
	text, start, end, ok := f.Docstring(fn)
	if !ok {
		t.Fatal("expected a docstring")
	}
	if text != "Get user by user id." {
		t.Errorf("unexpected docstring text %q", text)
	}
	if start != 2 || end != 2 {
		t.Errorf("expected docstring on line 2, got %d-%d", start, end)
	}
}
