package verify

import (
	"strings"
	"testing"

	"github.com/slopdetect/slop/internal/detect"
	"github.com/slopdetect/slop/internal/index"
	"github.com/slopdetect/slop/internal/source"
)

func buildFiles(t *testing.T, sources map[string]string) []*source.File {
	t.Helper()
	b := source.NewBuilder()
	defer b.Close()

	var files []*source.File
	for path, code := range sources {
		f, err := b.Build(path, []byte(code), strings.HasPrefix(path, "test_"))
		if err != nil {
			t.Fatalf("Build %s failed: %v", path, err)
		}
		t.Cleanup(f.Close)
		files = append(files, f)
	}
	return files
}

// scan runs detection on every non-test file and verification over the
// whole-project index.
func scan(t *testing.T, sources map[string]string) (confirmed, discarded []*detect.Finding) {
	t.Helper()
	files := buildFiles(t, sources)
	ix := index.Build(files)

	var candidates []*detect.Finding
	for _, f := range files {
		if f.IsTest {
			continue
		}
		candidates = append(candidates, detect.Run(f)...)
	}
	return Run(candidates, ix)
}

func byPattern(fs []*detect.Finding, pattern string) []*detect.Finding {
	var out []*detect.Finding
	for _, f := range fs {
		if f.Pattern == pattern {
			out = append(out, f)
		}
	}
	return out
}

func TestDeadSymbolZeroCallersConfirmed(t *testing.T) {
	confirmed, _ := scan(t, map[string]string{
		"app.py": `def _orphan():
    return 1

def main():
    return 2
`,
	})
	got := byPattern(confirmed, "dead-private-symbol")
	if len(got) != 1 || got[0].Subject.Name != "_orphan" {
		t.Fatalf("expected _orphan confirmed dead, got %+v", got)
	}
	if got[0].Outcome.Technique != detect.TechniqueCallerCount {
		t.Errorf("wrong technique: %s", got[0].Outcome.Technique)
	}
}

func TestDeadSymbolWithProductionCallerDiscarded(t *testing.T) {
	confirmed, discarded := scan(t, map[string]string{
		"app.py": `def _used():
    return 1

def main():
    return _used()
`,
	})
	if len(byPattern(confirmed, "dead-private-symbol")) != 0 {
		t.Error("called symbol must not be confirmed dead")
	}
	got := byPattern(discarded, "dead-private-symbol")
	if len(got) != 1 || !strings.Contains(got[0].Outcome.Reason, "1 production") {
		t.Errorf("expected production-caller rejection, got %+v", got)
	}
}

func TestDeadSymbolTestOnlyCallersStillDead(t *testing.T) {
	confirmed, _ := scan(t, map[string]string{
		"app.py": `def _shim():
    return 1
`,
		"test_app.py": `def test_shim():
    assert _shim() == 1
`,
	})
	got := byPattern(confirmed, "dead-private-symbol")
	if len(got) != 1 {
		t.Fatalf("test-only callers must not keep code alive, got %+v", got)
	}
	if !strings.Contains(got[0].Outcome.Reason, "test-only") {
		t.Errorf("reason should mention the test callers: %q", got[0].Outcome.Reason)
	}
}

func TestOpaqueSymbolNeverDead(t *testing.T) {
	_, discarded := scan(t, map[string]string{
		"app.py": `def _maybe_used():
    return 1

def dispatch(name):
    return eval(name)
`,
	})
	got := byPattern(discarded, "dead-private-symbol")
	if len(got) != 1 || !strings.Contains(got[0].Outcome.Reason, "dynamic") {
		t.Errorf("dynamic file must make symbols opaque, got %+v", got)
	}
}

func TestOneCallerConfirmedTwoDiscarded(t *testing.T) {
	confirmed, discarded := scan(t, map[string]string{
		"one.py": `def _inline_me():
    x = 1
    return x

def caller():
    return _inline_me()
`,
		"two.py": `def _shared():
    x = 2
    return x

def a():
    return _shared()

def b():
    return _shared()
`,
	})
	ok := byPattern(confirmed, "one-caller-helper")
	if len(ok) != 1 || ok[0].Subject.Name != "_inline_me" {
		t.Fatalf("expected only _inline_me confirmed, got %+v", ok)
	}
	no := byPattern(discarded, "one-caller-helper")
	if len(no) != 1 || no[0].Subject.Name != "_shared" {
		t.Fatalf("expected _shared discarded, got %+v", no)
	}
	if !strings.Contains(no[0].Outcome.Reason, "2 call sites") {
		t.Errorf("reason should carry the count: %q", no[0].Outcome.Reason)
	}
}

func TestNoneGuardConfirmedByLiteralCalls(t *testing.T) {
	confirmed, _ := scan(t, map[string]string{
		"emit.py": `def emit(msg: str):
    if msg is not None:
        print(msg)

def main():
    emit("hello")
`,
	})
	got := byPattern(confirmed, "redundant-none-guard")
	if len(got) != 1 {
		t.Fatalf("literal call site should confirm the guard, got %+v", got)
	}
	if got[0].Outcome.Technique != detect.TechniqueReachability {
		t.Errorf("wrong technique: %s", got[0].Outcome.Technique)
	}
}

func TestNoneGuardUnprovenArgumentDiscarded(t *testing.T) {
	_, discarded := scan(t, map[string]string{
		"emit.py": `def emit(msg: str):
    if msg is not None:
        print(msg)

def main(value):
    emit(value)
`,
	})
	got := byPattern(discarded, "redundant-none-guard")
	if len(got) != 1 || !strings.Contains(got[0].Outcome.Reason, "not provably non-None") {
		t.Errorf("unannotated argument must reject the guard, got %+v", got)
	}
}

func TestNoneGuardKeywordArgument(t *testing.T) {
	confirmed, _ := scan(t, map[string]string{
		"emit.py": `def emit(msg: str):
    if msg is not None:
        print(msg)

def main():
    emit(msg="hello")
`,
	})
	if len(byPattern(confirmed, "redundant-none-guard")) != 1 {
		t.Error("keyword literal should confirm the guard")
	}
}

func TestUnusedParameterKeywordCallDiscarded(t *testing.T) {
	_, discarded := scan(t, map[string]string{
		"calc.py": `def add(a: int, legacy: int):
    return a

def main():
    return add(1, legacy=2)
`,
	})
	got := byPattern(discarded, "unused-parameter")
	if len(got) != 1 || !strings.Contains(got[0].Outcome.Reason, "keyword") {
		t.Errorf("keyword call must block parameter removal, got %+v", got)
	}
}

func TestUnusedParameterPositionalConfirmed(t *testing.T) {
	confirmed, _ := scan(t, map[string]string{
		"calc.py": `def add(a: int, legacy: int):
    return a

def main():
    return add(1, 2)
`,
	})
	if len(byPattern(confirmed, "unused-parameter")) != 1 {
		t.Error("positional-only calls should confirm removal")
	}
}

func TestUnusedParameterSplatDiscarded(t *testing.T) {
	_, discarded := scan(t, map[string]string{
		"calc.py": `def add(a: int, legacy: int):
    return a

def main(args):
    return add(*args)
`,
	})
	got := byPattern(discarded, "unused-parameter")
	if len(got) != 1 || !strings.Contains(got[0].Outcome.Reason, "splat") {
		t.Errorf("splat call must block parameter removal, got %+v", got)
	}
}

func TestShapeFindingsConfirmStructurally(t *testing.T) {
	confirmed, _ := scan(t, map[string]string{
		"sq.py": `def squares(xs):
    out = []
    for x in xs:
        out.append(x * x)
    return out
`,
	})
	got := byPattern(confirmed, "accumulation-loop")
	if len(got) != 1 || got[0].Outcome.Technique != detect.TechniqueStructural {
		t.Errorf("shape rewrites confirm structurally, got %+v", got)
	}
}

func TestEveryFindingGetsAnOutcome(t *testing.T) {
	confirmed, discarded := scan(t, map[string]string{
		"mix.py": `_DEAD = 1

def _helper(x: str):
    s = str(x)
    return s
`,
	})
	for _, f := range append(confirmed, discarded...) {
		if f.Outcome == nil {
			t.Errorf("finding %s has no outcome", f.ID)
		}
	}
	if len(confirmed)+len(discarded) == 0 {
		t.Fatal("scan produced no findings at all")
	}
}
