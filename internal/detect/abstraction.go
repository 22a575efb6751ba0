package detect

import (
	"strings"

	"github.com/slopdetect/slop/internal/source"
)

// oneCallerHelperDetector nominates private helpers for inlining. The
// verifier confirms only symbols whose caller count is exactly one;
// two or more callers disqualify.
type oneCallerHelperDetector struct{}

func (d *oneCallerHelperDetector) Name() string       { return "one-caller-helper" }
func (d *oneCallerHelperDetector) Category() Category { return CategoryAbstraction }

func (d *oneCallerHelperDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, fn := range functionSymbols(f) {
		if !fn.Private() || len(fn.Decorators) > 0 {
			continue
		}
		// Inlining a one-line helper nets nothing.
		span := int(fn.EndLine-fn.StartLine) + 1
		if span < 2 {
			continue
		}
		fd := newFinding(d.Name(), d.Category(), f, fn.StartLine, fn.EndLine)
		fd.Subject = fn
		fd.Replacement = ""
		fd.LinesSaved = span - 1 // body moves to the single call site
		out = append(out, fd)
	}
	return out
}

// singleVariantEnumDetector flags Enum subclasses with exactly one
// member: an enum with one variant is a constant wearing a costume.
type singleVariantEnumDetector struct{}

func (d *singleVariantEnumDetector) Name() string       { return "single-variant-enum" }
func (d *singleVariantEnumDetector) Category() Category { return CategoryAbstraction }

func (d *singleVariantEnumDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, cls := range classSymbols(f) {
		if !inheritsEnum(cls) {
			continue
		}
		members := 0
		for _, m := range cls.Body.Symbols() {
			if m.Kind == source.ConstantSymbol {
				members++
			}
		}
		if members != 1 {
			continue
		}
		fd := newFinding(d.Name(), d.Category(), f, cls.StartLine, cls.EndLine)
		fd.Subject = cls
		fd.Replacement = ""
		fd.LinesSaved = int(cls.EndLine-cls.StartLine) + 1 - 1 // one constant remains
		out = append(out, fd)
	}
	return out
}

func inheritsEnum(cls *source.Symbol) bool {
	for _, b := range cls.Bases {
		if b == "Enum" || b == "enum.Enum" || b == "IntEnum" || b == "enum.IntEnum" || b == "StrEnum" || b == "enum.StrEnum" {
			return true
		}
	}
	return false
}

// wrapperClassDetector flags classes that store a single value in
// __init__ and otherwise only forward to it. The verifier confirms only
// wrappers whose external callers touch at most two distinct members.
type wrapperClassDetector struct{}

func (d *wrapperClassDetector) Name() string       { return "thin-wrapper-class" }
func (d *wrapperClassDetector) Category() Category { return CategoryAbstraction }

func (d *wrapperClassDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, cls := range classSymbols(f) {
		if len(cls.Bases) > 0 {
			continue
		}
		field, ok := singleStoredField(f, cls)
		if !ok {
			continue
		}
		forwards := 0
		opaque := false
		for _, m := range cls.Body.Symbols() {
			if m.Kind != source.MethodSymbol || m.Name == "__init__" {
				continue
			}
			if forwardsToField(f, m, field) {
				forwards++
			} else {
				opaque = true
			}
		}
		if opaque || forwards == 0 || forwards > 2 {
			continue
		}
		fd := newFinding(d.Name(), d.Category(), f, cls.StartLine, cls.EndLine)
		fd.Subject = cls
		fd.Replacement = "" // callers use the wrapped value directly
		fd.LinesSaved = int(cls.EndLine-cls.StartLine) + 1
		out = append(out, fd)
	}
	return out
}

// singleStoredField returns the attribute name when __init__ performs
// exactly one `self.<field> = <param>` store and nothing else.
func singleStoredField(f *source.File, cls *source.Symbol) (string, bool) {
	init := cls.Body.Lookup("__init__")
	if init == nil || init.Kind != source.MethodSymbol {
		return "", false
	}
	body := init.Node.ChildByFieldName("body")
	if body == nil {
		return "", false
	}

	field := ""
	for i := uint32(0); i < body.NamedChildCount(); i++ {
		stmt := body.NamedChild(int(i))
		if stmt.Type() != "expression_statement" {
			return "", false
		}
		assign := stmt.NamedChild(0)
		if assign == nil || assign.Type() != "assignment" {
			return "", false
		}
		left := assign.ChildByFieldName("left")
		if left == nil || left.Type() != "attribute" {
			return "", false
		}
		obj := left.ChildByFieldName("object")
		if obj == nil || f.Text(obj) != "self" {
			return "", false
		}
		if field != "" {
			return "", false // more than one stored field
		}
		field = f.Text(left.ChildByFieldName("attribute"))
	}
	return field, field != ""
}

// forwardsToField reports whether a method body is a single return whose
// expression starts at self.<field>.
func forwardsToField(f *source.File, m *source.Symbol, field string) bool {
	body := m.Node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() != 1 {
		return false
	}
	ret := body.NamedChild(0)
	if ret.Type() != "return_statement" || ret.NamedChildCount() == 0 {
		return false
	}
	expr := strings.TrimSpace(f.Text(ret.NamedChild(0)))
	return strings.HasPrefix(expr, "self."+field)
}

// passthroughStructDetector flags field-only carrier classes (dataclass
// or bare field declarations, no behavior). The verifier applies the
// parameter-tax rule: the carrier survives unless it is consumed at no
// more than two call sites and removing it nets fewer lines.
type passthroughStructDetector struct{}

func (d *passthroughStructDetector) Name() string       { return "passthrough-struct" }
func (d *passthroughStructDetector) Category() Category { return CategoryAbstraction }

func (d *passthroughStructDetector) Detect(f *source.File) []*Finding {
	var out []*Finding
	for _, cls := range classSymbols(f) {
		if len(cls.Bases) > 0 && !isDataclassBase(cls.Bases) {
			continue
		}
		fields, methods := 0, 0
		for _, m := range cls.Body.Symbols() {
			switch m.Kind {
			case source.ConstantSymbol:
				fields++
			case source.MethodSymbol:
				methods++
			}
		}
		if methods > 0 || fields == 0 || fields > 3 {
			continue
		}
		fd := newFinding(d.Name(), d.Category(), f, cls.StartLine, cls.EndLine)
		fd.Subject = cls
		fd.Replacement = "" // pass the fields as plain parameters
		fd.LinesSaved = int(cls.EndLine-cls.StartLine) + 1 - fields
		out = append(out, fd)
	}
	return out
}

func isDataclassBase(bases []string) bool {
	for _, b := range bases {
		if b == "NamedTuple" || b == "typing.NamedTuple" {
			return true
		}
	}
	return false
}

func classSymbols(f *source.File) []*source.Symbol {
	var out []*source.Symbol
	for _, s := range f.Symbols {
		if s.Kind == source.ClassSymbol {
			out = append(out, s)
		}
	}
	return out
}
