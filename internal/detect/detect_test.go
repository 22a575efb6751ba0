package detect

import (
	"strings"
	"testing"

	"github.com/slopdetect/slop/internal/source"
)

func buildFile(t *testing.T, path, code string) *source.File {
	t.Helper()
	b := source.NewBuilder()
	defer b.Close()

	f, err := b.Build(path, []byte(code), false)
	if err != nil {
		t.Fatalf("Build %s failed: %v", path, err)
	}
	t.Cleanup(f.Close)
	return f
}

func onlyFinding(t *testing.T, fs []*Finding) *Finding {
	t.Helper()
	if len(fs) != 1 {
		t.Fatalf("expected exactly one finding, got %d: %+v", len(fs), fs)
	}
	return fs[0]
}

func TestNoneGuardOnConcreteParam(t *testing.T) {
	f := buildFile(t, "emit.py", `def emit(msg: str):
    if msg is not None:
        print(msg)
`)
	fd := onlyFinding(t, (&noneGuardDetector{}).Detect(f))
	if fd.StartLine != 2 || fd.LinesSaved != 1 {
		t.Errorf("unexpected range/savings: %+v", fd)
	}
	if fd.Replacement != "    print(msg)" {
		t.Errorf("body not dedented: %q", fd.Replacement)
	}
}

func TestNoneGuardEarlyExitDeleted(t *testing.T) {
	f := buildFile(t, "emit.py", `def emit(msg: str):
    if msg is None:
        return
    print(msg)
`)
	fd := onlyFinding(t, (&noneGuardDetector{}).Detect(f))
	if fd.Replacement != "" || fd.LinesSaved != 2 {
		t.Errorf("early exit should delete both lines: %+v", fd)
	}
}

func TestNoneGuardSkipsOptionalAnnotations(t *testing.T) {
	for _, ann := range []string{"str | None", "Optional[str]", "Any", ""} {
		code := "def emit(msg: " + ann + "):\n    if msg is not None:\n        print(msg)\n"
		if ann == "" {
			code = "def emit(msg):\n    if msg is not None:\n        print(msg)\n"
		}
		f := buildFile(t, "emit.py", code)
		if got := (&noneGuardDetector{}).Detect(f); len(got) != 0 {
			t.Errorf("annotation %q must not produce findings, got %d", ann, len(got))
		}
	}
}

func TestIsinstanceGuardOnExactType(t *testing.T) {
	f := buildFile(t, "num.py", `def double(x: int):
    if isinstance(x, int):
        return x * 2
`)
	fd := onlyFinding(t, (&isinstanceGuardDetector{}).Detect(f))
	if fd.Pattern != "redundant-isinstance-guard" || fd.LinesSaved != 1 {
		t.Errorf("unexpected finding: %+v", fd)
	}
}

func TestIsinstanceGuardDifferentTypeKept(t *testing.T) {
	f := buildFile(t, "num.py", `def double(x: int):
    if isinstance(x, float):
        return x * 2
`)
	if got := (&isinstanceGuardDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("isinstance against another type must stay, got %d findings", len(got))
	}
}

func TestDeadSymbolCandidates(t *testing.T) {
	f := buildFile(t, "mod.py", `_LIMIT = 5

def _helper():
    return _LIMIT

def public():
    return 1

@app.route("/")
def _handler():
    return 2
`)
	got := (&deadSymbolDetector{}).Detect(f)
	names := map[string]bool{}
	for _, fd := range got {
		names[fd.Subject.Name] = true
	}
	if !names["_LIMIT"] || !names["_helper"] {
		t.Errorf("private constant and function must be candidates: %v", names)
	}
	if names["public"] || names["_handler"] {
		t.Errorf("public and decorated symbols must not be candidates: %v", names)
	}
}

func TestUnusedParameter(t *testing.T) {
	f := buildFile(t, "calc.py", `def add(a: int, unused: int, _ignored: int):
    return a + 1
`)
	fd := onlyFinding(t, (&unusedParameterDetector{}).Detect(f))
	if fd.Subject.Name != "unused" {
		t.Errorf("expected the unused parameter, got %s", fd.Subject.Name)
	}
	if !strings.HasSuffix(fd.ID, ":unused") {
		t.Errorf("ID must disambiguate by parameter name: %s", fd.ID)
	}
	if strings.Contains(fd.Replacement, "unused") {
		t.Errorf("replacement signature still mentions the parameter: %q", fd.Replacement)
	}
}

func TestUnusedParameterSkipsOverrides(t *testing.T) {
	f := buildFile(t, "handler.py", `class JSONHandler(BaseHandler):
    def handle(self, request, context):
        return request.body
`)
	if got := (&unusedParameterDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("methods of inheriting classes must be skipped, got %d findings", len(got))
	}
}

func TestOneCallerHelperSkipsOneLiners(t *testing.T) {
	f := buildFile(t, "util.py", `def _tiny(): return 1

def _real():
    a = 1
    return a
`)
	fd := onlyFinding(t, (&oneCallerHelperDetector{}).Detect(f))
	if fd.Subject.Name != "_real" || fd.LinesSaved != 2 {
		t.Errorf("unexpected candidate: %+v", fd)
	}
}

func TestSingleVariantEnum(t *testing.T) {
	f := buildFile(t, "state.py", `class Mode(Enum):
    DEFAULT = 1

class Color(Enum):
    RED = 1
    BLUE = 2
`)
	fd := onlyFinding(t, (&singleVariantEnumDetector{}).Detect(f))
	if fd.Subject.Name != "Mode" {
		t.Errorf("expected the one-variant enum, got %s", fd.Subject.Name)
	}
}

func TestWrapperClass(t *testing.T) {
	f := buildFile(t, "box.py", `class Box:
    def __init__(self, value):
        self.value = value

    def get(self):
        return self.value
`)
	fd := onlyFinding(t, (&wrapperClassDetector{}).Detect(f))
	if fd.Subject.Name != "Box" || fd.Pattern != "thin-wrapper-class" {
		t.Errorf("unexpected finding: %+v", fd)
	}
}

func TestWrapperClassWithBehaviorKept(t *testing.T) {
	f := buildFile(t, "box.py", `class Counter:
    def __init__(self, value):
        self.value = value

    def bump(self):
        self.value += 1
        return self.value
`)
	if got := (&wrapperClassDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("class with real behavior must stay, got %d findings", len(got))
	}
}

func TestPassthroughStruct(t *testing.T) {
	f := buildFile(t, "geo.py", `class Point:
    x = 0
    y = 0
`)
	fd := onlyFinding(t, (&passthroughStructDetector{}).Detect(f))
	if fd.Subject.Name != "Point" || fd.LinesSaved != 1 {
		t.Errorf("unexpected finding: %+v", fd)
	}
}

func TestBooleanReturnWithElse(t *testing.T) {
	f := buildFile(t, "sign.py", `def positive(n):
    if n > 0:
        return True
    else:
        return False
`)
	fd := onlyFinding(t, (&booleanReturnDetector{}).Detect(f))
	if fd.Replacement != "    return bool(n > 0)" {
		t.Errorf("unexpected rewrite: %q", fd.Replacement)
	}
	if fd.LinesSaved != 3 {
		t.Errorf("four lines collapse to one, got savings %d", fd.LinesSaved)
	}
}

func TestBooleanReturnInverted(t *testing.T) {
	f := buildFile(t, "sign.py", `def empty(xs):
    if xs:
        return False
    return True
`)
	fd := onlyFinding(t, (&booleanReturnDetector{}).Detect(f))
	if fd.Replacement != "    return not (xs)" {
		t.Errorf("unexpected rewrite: %q", fd.Replacement)
	}
}

func TestAccumulationLoop(t *testing.T) {
	f := buildFile(t, "sq.py", `def squares(xs):
    out = []
    for x in xs:
        out.append(x * x)
    return out
`)
	fd := onlyFinding(t, (&accumulationLoopDetector{}).Detect(f))
	if fd.Replacement != "    out = [x * x for x in xs]" {
		t.Errorf("unexpected rewrite: %q", fd.Replacement)
	}
	if fd.StartLine != 2 || fd.EndLine != 4 || fd.LinesSaved != 2 {
		t.Errorf("unexpected range: %+v", fd)
	}
}

func TestAccumulationLoopWithFilter(t *testing.T) {
	f := buildFile(t, "sq.py", `def evens(xs):
    out = []
    for x in xs:
        if x % 2 == 0:
            out.append(x)
    return out
`)
	fd := onlyFinding(t, (&accumulationLoopDetector{}).Detect(f))
	if fd.Replacement != "    out = [x for x in xs if x % 2 == 0]" {
		t.Errorf("unexpected rewrite: %q", fd.Replacement)
	}
}

func TestConstructorLiteral(t *testing.T) {
	f := buildFile(t, "conf.py", `class Config:
    def __init__(self, host=None, port=None):
        self.host = host
        self.port = port

def make():
    cfg = Config()
    cfg.host = "localhost"
    cfg.port = 8080
    return cfg
`)
	fd := onlyFinding(t, (&constructorLiteralDetector{}).Detect(f))
	want := `    cfg = Config(host="localhost", port=8080)`
	if fd.Replacement != want {
		t.Errorf("unexpected rewrite: %q", fd.Replacement)
	}
	if fd.LinesSaved != 2 {
		t.Errorf("three lines collapse to one, got savings %d", fd.LinesSaved)
	}
}

func TestConstructorLiteralUnknownClass(t *testing.T) {
	// Config comes from another module; its __init__ may not take
	// host/port as keywords, so the rewrite cannot be checked.
	f := buildFile(t, "conf.py", `from settings import Config

def make():
    cfg = Config()
    cfg.host = "localhost"
    cfg.port = 8080
    return cfg
`)
	if got := (&constructorLiteralDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("unverifiable constructor flagged: %+v", got[0])
	}
}

func TestConstructorLiteralInitMismatch(t *testing.T) {
	f := buildFile(t, "conf.py", `class Config:
    def __init__(self):
        self.host = None
        self.port = None

def make():
    cfg = Config()
    cfg.host = "localhost"
    cfg.port = 8080
    return cfg
`)
	if got := (&constructorLiteralDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("__init__ takes no keywords, yet flagged: %+v", got[0])
	}
}

func TestConstructorLiteralKwargsInit(t *testing.T) {
	f := buildFile(t, "conf.py", `class Config:
    def __init__(self, **kwargs):
        self.__dict__.update(kwargs)

def make():
    cfg = Config()
    cfg.host = "localhost"
    cfg.port = 8080
    return cfg
`)
	fd := onlyFinding(t, (&constructorLiteralDetector{}).Detect(f))
	want := `    cfg = Config(host="localhost", port=8080)`
	if fd.Replacement != want {
		t.Errorf("unexpected rewrite: %q", fd.Replacement)
	}
}

func TestBuiltinConstructorLiterals(t *testing.T) {
	f := buildFile(t, "lit.py", `def fresh():
    seen = dict()
    items = list()
    return seen, items
`)
	got := (&constructorLiteralDetector{}).Detect(f)
	if len(got) != 2 {
		t.Fatalf("expected both calls flagged, got %d", len(got))
	}
	if got[0].Replacement != "{}" && got[1].Replacement != "{}" {
		t.Errorf("dict() should rewrite to {}: %+v", got)
	}
	if got[0].Replacement != "[]" && got[1].Replacement != "[]" {
		t.Errorf("list() should rewrite to []: %+v", got)
	}
	for _, fd := range got {
		if fd.LinesSaved != 0 {
			t.Errorf("literal rewrite keeps the line, got savings %d", fd.LinesSaved)
		}
	}
}

func TestShadowedDictKept(t *testing.T) {
	f := buildFile(t, "shadow.py", `def build(dict):
    return dict()
`)
	if got := (&constructorLiteralDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("shadowed name flagged: %+v", got[0])
	}
}

func TestLenTruthiness(t *testing.T) {
	f := buildFile(t, "chk.py", `def has_items(xs):
    if len(xs) > 0:
        pass
    if len(xs) == 0:
        pass
`)
	got := (&lenTruthinessDetector{}).Detect(f)
	if len(got) != 2 {
		t.Fatalf("expected both comparisons flagged, got %d", len(got))
	}
	if got[0].Replacement != "xs" || got[1].Replacement != "not xs" {
		t.Errorf("unexpected rewrites: %q, %q", got[0].Replacement, got[1].Replacement)
	}
}

func TestLenOutsideConditionKept(t *testing.T) {
	f := buildFile(t, "chk.py", `def count_flag(xs):
    return len(xs) > 0
`)
	if got := (&lenTruthinessDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("len comparison outside a condition must stay, got %d", len(got))
	}
}

func TestRedundantElse(t *testing.T) {
	f := buildFile(t, "sgn.py", `def check(n):
    if n < 0:
        return -1
    else:
        return 1
`)
	fd := onlyFinding(t, (&redundantElseDetector{}).Detect(f))
	if fd.Replacement != "    return 1" || fd.LinesSaved != 1 {
		t.Errorf("unexpected finding: %+v", fd)
	}
}

func TestRestatingDocstring(t *testing.T) {
	f := buildFile(t, "acct.py", `def get_name(user):
    """Get the name of the user."""
    return user.name
`)
	fd := onlyFinding(t, (&docstringDetector{}).Detect(f))
	if fd.Pattern != "restating-docstring" || fd.LinesSaved != 1 {
		t.Errorf("unexpected finding: %+v", fd)
	}
}

func TestInformativeDocstringKept(t *testing.T) {
	f := buildFile(t, "acct.py", `def get_name(user):
    """Resolve against the directory service, falling back to email."""
    return user.name
`)
	if got := (&docstringDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("informative docstring must stay, got %d findings", len(got))
	}
}

func TestRestatingComment(t *testing.T) {
	f := buildFile(t, "load.py", `def run():
    # user name
    user_name = fetch()
    return user_name
`)
	fd := onlyFinding(t, (&commentDetector{}).Detect(f))
	if fd.Replacement != "" || fd.LinesSaved != 1 {
		t.Errorf("standalone restating comment should be deleted: %+v", fd)
	}
}

func TestDirectiveCommentKept(t *testing.T) {
	f := buildFile(t, "load.py", `def run():
    user_name = fetch()  # type: ignore
    return user_name
`)
	if got := (&commentDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("directive comments must stay, got %d findings", len(got))
	}
}

func TestSingleUseBinding(t *testing.T) {
	f := buildFile(t, "sum.py", `def total(items):
    s = sum(items)
    return s
`)
	fd := onlyFinding(t, (&singleUseBindingDetector{}).Detect(f))
	if !strings.HasSuffix(fd.ID, ":s") || fd.LinesSaved != 1 {
		t.Errorf("unexpected finding: %+v", fd)
	}
}

func TestReusedBindingKept(t *testing.T) {
	f := buildFile(t, "sum.py", `def total(items):
    s = sum(items)
    log(s)
    return s
`)
	if got := (&singleUseBindingDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("binding read twice must stay, got %d findings", len(got))
	}
}

func TestClosureReadBindingKept(t *testing.T) {
	// The nested function captures x, so the binding has two readers
	// even though only one sits on the next statement.
	f := buildFile(t, "cap.py", `def outer():
    x = compute()
    def inner():
        return x
    return use(x, inner)
`)
	if got := (&singleUseBindingDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("captured binding must stay, got %d findings", len(got))
	}
}

func TestBindingReadInConditionInlined(t *testing.T) {
	f := buildFile(t, "chk.py", `def ready(conn):
    ok = conn.ping()
    if ok:
        return True
    return False
`)
	found := false
	for _, fd := range (&singleUseBindingDetector{}).Detect(f) {
		if strings.HasSuffix(fd.ID, ":ok") {
			found = true
		}
	}
	if !found {
		t.Error("read in the following if condition should inline")
	}
}

func TestBindingReadInGuardedBodyKept(t *testing.T) {
	// Inlining would move compute() under the branch, skipping its
	// evaluation when the guard is false.
	f := buildFile(t, "grd.py", `def run(flag):
    x = compute()
    if flag:
        use(x)
`)
	if got := (&singleUseBindingDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("read under a guard must stay, got %d findings", len(got))
	}
}

func TestBindingReadInLoopKept(t *testing.T) {
	f := buildFile(t, "loop.py", `def run(items):
    x = compute()
    for item in items:
        use(item, x)
`)
	if got := (&singleUseBindingDetector{}).Detect(f); len(got) != 0 {
		t.Errorf("read inside a loop must stay, got %d findings", len(got))
	}
}

func TestDetectConfigDuplicateKeys(t *testing.T) {
	lines := []string{
		"host: localhost",
		"port: 8080",
		"host: remote",
		"[db]",
		"host: db1", // new section, not a duplicate
	}
	got := DetectConfig("app.yaml", lines)
	fd := onlyFinding(t, got)
	if fd.StartLine != 3 || fd.Category != CategoryConfig {
		t.Errorf("unexpected finding: %+v", fd)
	}
	if !fd.Confirmed() || fd.Weight() != 0 {
		t.Errorf("config findings are pre-confirmed and unweighted: %+v", fd)
	}
}

func TestRunOrderDeterministic(t *testing.T) {
	code := `_DEAD = 1

def _helper(x: str):
    if x is not None:
        return x
`
	f := buildFile(t, "mix.py", code)
	a := Run(f)
	b := Run(f)
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("runs disagree: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("order differs at %d: %s vs %s", i, a[i].ID, b[i].ID)
		}
	}
	for i := 1; i < len(a); i++ {
		if a[i].StartLine < a[i-1].StartLine {
			t.Errorf("findings not sorted by line: %d after %d", a[i].StartLine, a[i-1].StartLine)
		}
	}
}

func TestCategoryWeights(t *testing.T) {
	heavy := []Category{CategoryDeadCode, CategoryAbstraction, CategoryDocumentation}
	for _, c := range heavy {
		if c.Weight() != 1.5 {
			t.Errorf("%s weight = %v, want 1.5", c, c.Weight())
		}
	}
	light := []Category{CategoryConditional, CategoryShape, CategoryFlow}
	for _, c := range light {
		if c.Weight() != 1.0 {
			t.Errorf("%s weight = %v, want 1.0", c, c.Weight())
		}
	}
	if CategoryConfig.Weight() != 0 {
		t.Errorf("config weight = %v, want 0", CategoryConfig.Weight())
	}
}
